package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/mpis/persona-genesis/internal/core/genesis"
	"github.com/mpis/persona-genesis/internal/core/patch"
	"github.com/mpis/persona-genesis/internal/core/persona"
)

// GenesisStartAction は新しいペルソナ生成ジョブを開始するコマンドのアクション
func GenesisStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	input := genesis.JobInput{
		PersonaName:       cmd.String("name"),
		InspirationSource: cmd.String("inspiration"),
		Language:          cmd.String("language"),
		PublicPersona:     cmd.Bool("public"),
		PublicName:        cmd.String("public-name"),
		FolderID:          cmd.String("folder"),
		Notes:             cmd.String("notes"),
		InlineTexts:       cmd.StringSlice("text"),
	}

	result, err := appCtx.Container.GenesisService.Start(ctx, input)
	if err != nil {
		return fmt.Errorf("ジョブの開始に失敗: %w", err)
	}

	fmt.Printf("\n=== ジョブ開始 ===\n\n")
	fmt.Printf("Job ID:   %s\n", result.JobID)
	fmt.Printf("Status:   %s\n", result.Status)
	fmt.Printf("Draft No: %d\n", result.DraftNo)
	renderPreview(result.Preview)
	renderHumanPrompt(result.HumanPrompt)

	return nil
}

// GenesisStatusAction はジョブ状態を表示するコマンドのアクション
func GenesisStatusAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	jobID, err := uuid.Parse(cmd.String("job"))
	if err != nil {
		return fmt.Errorf("--job はUUID形式で指定してください: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	info, err := appCtx.Container.GenesisService.GetStatus(ctx, jobID)
	if err != nil {
		return fmt.Errorf("状態の取得に失敗: %w", err)
	}

	fmt.Printf("\n=== ジョブ状態 ===\n\n")
	fmt.Printf("Job ID:   %s\n", info.JobID)
	fmt.Printf("Status:   %s\n", info.Status)
	fmt.Printf("Progress: %d%% (%s)\n", info.Progress.Percent, info.Progress.Message)
	fmt.Printf("Draft No: %d\n", info.DraftNo)
	if len(info.Errors) > 0 {
		fmt.Printf("Errors:   %s\n", strings.Join(info.Errors, "; "))
	}
	renderPreview(info.Preview)
	if info.HumanPrompt != nil {
		renderHumanPrompt(*info.HumanPrompt)
	}

	return nil
}

// GenesisApproveAction はドラフトへの編集適用コマンドのアクション
func GenesisApproveAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	jobID, err := uuid.Parse(cmd.String("job"))
	if err != nil {
		return fmt.Errorf("--job はUUID形式で指定してください: %w", err)
	}

	edits, err := loadEdits(cmd.String("edits"), cmd.String("edits-file"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.GenesisService.Approve(ctx, jobID, cmd.Int("draft"), edits)
	if err != nil {
		return fmt.Errorf("編集の適用に失敗: %w", err)
	}

	fmt.Printf("\n=== ドラフト更新 ===\n\n")
	fmt.Printf("Job ID:   %s\n", result.JobID)
	fmt.Printf("Status:   %s\n", result.Status)
	fmt.Printf("Draft No: %d\n", result.DraftNo)
	renderPreview(result.Preview)
	renderHumanPrompt(result.HumanPrompt)

	return nil
}

// GenesisConfirmAction はドラフト確定コマンドのアクション
func GenesisConfirmAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	jobID, err := uuid.Parse(cmd.String("job"))
	if err != nil {
		return fmt.Errorf("--job はUUID形式で指定してください: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.GenesisService.Confirm(ctx, jobID, cmd.Int("draft"))
	if err != nil {
		return fmt.Errorf("ペルソナの確定に失敗: %w", err)
	}

	fmt.Printf("\n=== ペルソナ確定 ===\n\n")
	fmt.Printf("Job ID:     %s\n", result.JobID)
	fmt.Printf("Status:     %s\n", result.Status)
	fmt.Printf("Persona ID: %s\n", result.PersonaID)
	fmt.Printf("Version:    %s\n", result.Version)
	if result.Export != nil {
		fmt.Printf("Exported:   %s (%d files)\n", result.Export.BasePath, len(result.Export.Files))
	}
	renderPreview(result.Preview)

	return nil
}

// GenesisAuditAction はジョブの監査ログを表示するコマンドのアクション
func GenesisAuditAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	jobID, err := uuid.Parse(cmd.String("job"))
	if err != nil {
		return fmt.Errorf("--job はUUID形式で指定してください: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	entries, err := appCtx.Container.GenesisService.ListAuditEntries(ctx, jobID)
	if err != nil {
		return fmt.Errorf("監査ログの取得に失敗: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("監査ログはありません")
		return nil
	}

	renderAuditTable(entries)

	return nil
}

// renderAuditTable はテーブル形式で監査ログを表示します
func renderAuditTable(entries []*genesis.AuditEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Event", "Details", "Created At")

	for _, entry := range entries {
		details := ""
		if len(entry.Details) > 0 {
			if data, err := json.Marshal(entry.Details); err == nil {
				details = truncateString(string(data), 60)
			}
		}
		table.Append(
			string(entry.EventType),
			details,
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	table.Render()
}

// loadEdits は --edits (JSON文字列) または --edits-file (パス) から編集バッチを読み込む
func loadEdits(editsJSON, editsFile string) ([]patch.Edit, error) {
	if editsJSON != "" && editsFile != "" {
		return nil, fmt.Errorf("--edits と --edits-file は同時に指定できません")
	}

	data := []byte(editsJSON)
	if editsFile != "" {
		fileData, err := os.ReadFile(editsFile)
		if err != nil {
			return nil, fmt.Errorf("編集ファイルの読み込みに失敗: %w", err)
		}
		data = fileData
	}
	if len(data) == 0 {
		return nil, nil
	}

	var edits []patch.Edit
	if err := json.Unmarshal(data, &edits); err != nil {
		return nil, fmt.Errorf("編集内容のパースに失敗: %w", err)
	}
	return edits, nil
}

// renderPreview はプレビューカードを表示する
func renderPreview(card *persona.Card) {
	if card == nil {
		return
	}
	fmt.Printf("\n--- プレビュー ---\n")
	fmt.Printf("Name:    %s (%s)\n", card.Name, card.Slug)
	fmt.Printf("Version: %s\n", card.ActiveVersion)
	fmt.Printf("Summary: %s\n", card.Summary)
	if len(card.TopTopics) > 0 {
		fmt.Printf("Topics:  %s\n", strings.Join(card.TopTopics, ", "))
	}
	if len(card.DominantTones) > 0 {
		fmt.Printf("Tones:   %s\n", strings.Join(card.DominantTones, ", "))
	}
	for _, action := range card.NextActions {
		fmt.Printf("Next:    %s\n", action)
	}
}

// renderHumanPrompt はレビュー用プロンプトを表示する
func renderHumanPrompt(prompt string) {
	if prompt == "" {
		return
	}
	fmt.Printf("\n--- レビュー ---\n%s\n", prompt)
}
