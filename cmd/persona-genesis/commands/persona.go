package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/mpis/persona-genesis/internal/core/genesis"
)

// PersonaListAction はペルソナ一覧を表示するコマンドのアクション
func PersonaListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	personas, err := appCtx.Container.Repository.ListPersonas(ctx)
	if err != nil {
		return fmt.Errorf("ペルソナの取得に失敗: %w", err)
	}

	if len(personas) == 0 {
		fmt.Println("ペルソナはありません")
		return nil
	}

	renderPersonasTable(personas)

	return nil
}

// PersonaShowAction はペルソナ詳細を表示するコマンドのアクション
func PersonaShowAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	slug := cmd.String("slug")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	personaOpt, err := appCtx.Container.Repository.GetPersonaBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("ペルソナの取得に失敗: %w", err)
	}
	personaEntity, exists := personaOpt.Get()
	if !exists {
		return fmt.Errorf("ペルソナが見つかりません: %s", slug)
	}

	renderPersonaDetail(personaEntity)

	versionOpt, err := appCtx.Container.Repository.GetPersonaVersion(ctx, personaEntity.ID, personaEntity.ActiveVersion)
	if err != nil {
		return fmt.Errorf("バージョンの取得に失敗: %w", err)
	}
	if version, ok := versionOpt.Get(); ok {
		coreJSON, err := json.MarshalIndent(version.Core, "", "  ")
		if err != nil {
			return fmt.Errorf("コアのシリアライズに失敗: %w", err)
		}
		fmt.Printf("\n--- コア (v%s) ---\n%s\n", version.Version, coreJSON)
	}

	return nil
}

// PersonaExportAction はペルソナのファイルツリーを再出力するコマンドのアクション
func PersonaExportAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	slug := cmd.String("slug")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.GenesisService.Export(ctx, slug)
	if err != nil {
		return fmt.Errorf("ペルソナの出力に失敗: %w", err)
	}

	fmt.Printf("\n=== エクスポート完了 ===\n\n")
	fmt.Printf("Base Path: %s\n", result.BasePath)
	for name, path := range result.Files {
		fmt.Printf("  %-25s %s\n", name, path)
	}

	return nil
}

// renderPersonasTable はテーブル形式でペルソナ一覧を表示します
func renderPersonasTable(personas []*genesis.Persona) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Slug", "Name", "Language", "Version", "Description", "Created At")

	for _, p := range personas {
		description := ""
		if p.Description != nil {
			description = truncateString(*p.Description, 50)
		}
		table.Append(
			p.Slug,
			p.Name,
			p.Language,
			p.ActiveVersion,
			description,
			p.CreatedAt.Format("2006-01-02 15:04"),
		)
	}

	table.Render()
}

// renderPersonaDetail はペルソナの詳細を表示します
func renderPersonaDetail(p *genesis.Persona) {
	fmt.Printf("\n=== ペルソナ詳細 ===\n\n")
	fmt.Printf("ID:             %s\n", p.ID)
	fmt.Printf("Name:           %s\n", p.Name)
	fmt.Printf("Slug:           %s\n", p.Slug)
	fmt.Printf("Language:       %s\n", p.Language)
	fmt.Printf("Active Version: %s\n", p.ActiveVersion)
	if p.Description != nil {
		fmt.Printf("Description:    %s\n", *p.Description)
	}
	fmt.Printf("Created At:     %s\n", p.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated At:     %s\n", p.UpdatedAt.Format(time.RFC3339))
}
