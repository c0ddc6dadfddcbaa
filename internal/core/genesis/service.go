package genesis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mpis/persona-genesis/internal/core/patch"
	"github.com/mpis/persona-genesis/internal/core/persona"
	"github.com/mpis/persona-genesis/internal/core/sources"
	"github.com/mpis/persona-genesis/internal/core/textutil"
)

// PipelineConfig はパイプライン実行の設定
type PipelineConfig struct {
	ChunkMinTokens     int
	ChunkMaxTokens     int
	ChunkOverlapTokens int
	// EmbedChunkLimit は埋め込み対象チャンクの上限
	EmbedChunkLimit int
	DryRun          bool
}

// DefaultPipelineConfig は既定のパイプライン設定を返す
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		ChunkMinTokens:     500,
		ChunkMaxTokens:     1200,
		ChunkOverlapTokens: 100,
		EmbedChunkLimit:    100,
	}
}

// StartResult はジョブ開始の結果を表す
type StartResult struct {
	JobID       uuid.UUID     `json:"jobID"`
	Status      Status        `json:"status"`
	DraftNo     int           `json:"draftNo"`
	HumanPrompt string        `json:"humanPrompt"`
	Preview     *persona.Card `json:"preview,omitempty"`
}

// ApproveResult は編集適用の結果を表す
type ApproveResult struct {
	JobID       uuid.UUID     `json:"jobID"`
	Status      Status        `json:"status"`
	DraftNo     int           `json:"draftNo"`
	HumanPrompt string        `json:"humanPrompt"`
	Preview     *persona.Card `json:"preview,omitempty"`
}

// CommitResult はペルソナ確定の結果を表す
type CommitResult struct {
	JobID     uuid.UUID     `json:"jobID"`
	Status    Status        `json:"status"`
	PersonaID uuid.UUID     `json:"personaID"`
	Version   string        `json:"version"`
	Export    *ExportResult `json:"export,omitempty"`
	Preview   *persona.Card `json:"preview,omitempty"`
}

// StatusInfo はジョブ状態照会の結果を表す
type StatusInfo struct {
	JobID       uuid.UUID     `json:"jobID"`
	Status      Status        `json:"status"`
	Progress    ProgressInfo  `json:"progress"`
	DraftNo     int           `json:"draftNo"`
	HumanPrompt *string       `json:"humanPrompt,omitempty"`
	Preview     *persona.Card `json:"preview,omitempty"`
	Errors      []string      `json:"errors"`
}

// Service はペルソナ生成ワークフロー全体を統括する。
//
// パイプライン: ソース収集 → コーパス処理 → 概念抽出 →
// コア生成 → 人手レビューのループ → コミットと出力
type Service struct {
	repo       Repository
	sourceRepo sources.Repository
	collector  SourceCollector
	generator  Generator
	embedder   Embedder
	memory     MemoryIndex
	exporter   Exporter
	config     *PipelineConfig
	logger     *slog.Logger
}

type serviceOptions struct {
	config *PipelineConfig
	logger *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithServiceLogger は Service にロガーを設定する
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithPipelineConfig はパイプライン設定を上書きする
func WithPipelineConfig(cfg *PipelineConfig) ServiceOption {
	return func(o *serviceOptions) {
		o.config = cfg
	}
}

// NewService は新しいServiceを作成する
func NewService(
	repo Repository,
	sourceRepo sources.Repository,
	collector SourceCollector,
	generator Generator,
	embedder Embedder,
	memory MemoryIndex,
	exporter Exporter,
	opts ...ServiceOption,
) *Service {
	options := serviceOptions{
		config: DefaultPipelineConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.config == nil {
		options.config = DefaultPipelineConfig()
	}

	return &Service{
		repo:       repo,
		sourceRepo: sourceRepo,
		collector:  collector,
		generator:  generator,
		embedder:   embedder,
		memory:     memory,
		exporter:   exporter,
		config:     options.config,
		logger:     options.logger,
	}
}

// Start は新しいペルソナ生成ジョブを開始し、最初のドラフトまで進める。
// 収集・処理中のエラーはジョブをfailed(終端)へ落とし、エラーとして返す。
func (s *Service) Start(ctx context.Context, input JobInput) (*StartResult, error) {
	if strings.TrimSpace(input.PersonaName) == "" {
		return nil, fmt.Errorf("ペルソナ名は必須です")
	}
	if input.Language == "" {
		input.Language = "en"
	}

	slug, err := s.ensureUniqueSlug(ctx, textutil.Slugify(input.PersonaName, textutil.DefaultSlugMaxLength))
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:          uuid.New(),
		PersonaName: input.PersonaName,
		Slug:        slug,
		Input:       input,
		Config: JobConfig{
			ChunkMinTokens:     s.config.ChunkMinTokens,
			ChunkMaxTokens:     s.config.ChunkMaxTokens,
			ChunkOverlapTokens: s.config.ChunkOverlapTokens,
			DryRun:             s.config.DryRun,
		},
		Status:    StatusQueued,
		DraftNo:   0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("ジョブの作成に失敗しました: %w", err)
	}

	s.audit(ctx, EventSourcesDiscovered, job.ID, map[string]any{
		"personaName": input.PersonaName,
	})

	result, err := s.runPipeline(ctx, job)
	if err != nil {
		s.logger.Error("パイプラインが失敗しました",
			slog.String("jobID", job.ID.String()), slog.Any("error", err))
		message := err.Error()
		if updateErr := s.repo.UpdateJobStatus(ctx, job.ID, StatusFailed, &message); updateErr != nil {
			s.logger.Error("失敗状態の記録に失敗しました", slog.Any("error", updateErr))
		}
		return nil, err
	}

	return result, nil
}

// runPipeline は収集から最初のドラフト生成までを実行する
func (s *Service) runPipeline(ctx context.Context, job *Job) (*StartResult, error) {
	if err := s.transition(ctx, job, StatusCollecting); err != nil {
		return nil, err
	}

	collectResult, err := s.collector.CollectAll(ctx, sources.CollectRequest{
		JobID:         job.ID,
		Slug:          job.Slug,
		FolderID:      job.Input.FolderID,
		PublicPersona: job.Input.PublicPersona,
		PublicName:    job.Input.PublicName,
		InlineSources: inlineSources(job.Input.InlineTexts),
	})
	if err != nil {
		return nil, fmt.Errorf("ソース収集に失敗しました: %w", err)
	}

	s.audit(ctx, EventSourcesFetched, job.ID, map[string]any{
		"youtube":      collectResult.YouTube,
		"gdrive":       collectResult.Drive,
		"web":          collectResult.Web,
		"text":         collectResult.Text,
		"totalSources": collectResult.TotalSources,
	})

	if err := s.transition(ctx, job, StatusProcessing); err != nil {
		return nil, err
	}

	texts, err := s.loadSourceTexts(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	var chunks []string
	for _, text := range texts {
		chunks = append(chunks, textutil.Chunk(text,
			s.config.ChunkMinTokens, s.config.ChunkMaxTokens, s.config.ChunkOverlapTokens)...)
	}

	s.audit(ctx, EventCorpusChunked, job.ID, map[string]any{
		"chunkCount": len(chunks),
	})

	// 埋め込み登録はベストエフォート(失敗してもジョブは進む)
	s.upsertChunkEmbeddings(ctx, job, chunks)

	concepts, err := s.generator.ExtractConcepts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("概念抽出に失敗しました: %w", err)
	}

	s.audit(ctx, EventConceptsExtracted, job.ID, map[string]any{
		"themes":  concepts.Themes,
		"virtues": concepts.Virtues,
		"tone":    concepts.Tone,
	})

	core, err := s.generator.GenerateCore(ctx, GenerateCoreRequest{
		PersonaName:       job.PersonaName,
		InspirationSource: job.Input.InspirationSource,
		Language:          job.Input.Language,
		Concepts:          concepts,
		Texts:             texts,
	})
	if err != nil {
		return nil, fmt.Errorf("コア生成に失敗しました: %w", err)
	}

	humanPrompt, err := s.generator.GenerateReviewPrompt(ctx, core, 1)
	if err != nil {
		return nil, fmt.Errorf("レビュー文の生成に失敗しました: %w", err)
	}

	draft := &Draft{
		ID:           uuid.New(),
		JobID:        job.ID,
		DraftNo:      1,
		CoreDocument: core.Document(),
		HumanPrompt:  humanPrompt,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("ドラフトの保存に失敗しました: %w", err)
	}

	// 抽出済み概念はジョブ設定に残す(コミット時の出力で使う)
	job.Config.Concepts = &concepts
	if err := s.repo.UpdateJobConfig(ctx, job.ID, job.Config); err != nil {
		return nil, fmt.Errorf("ジョブ設定の更新に失敗しました: %w", err)
	}

	if err := s.transition(ctx, job, StatusAwaitingApproval); err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateJobDraftCAS(ctx, job.ID, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("ドラフト番号の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, ErrDraftConflict
	}
	job.DraftNo = 1

	s.audit(ctx, EventDraftGenerated, job.ID, map[string]any{"draftNo": 1})
	s.audit(ctx, EventApprovalRequested, job.ID, map[string]any{"draftNo": 1})

	card := persona.BuildCard(nil, job.PersonaName, job.Slug, core, persona.DraftVersion)

	return &StartResult{
		JobID:       job.ID,
		Status:      job.Status,
		DraftNo:     job.DraftNo,
		HumanPrompt: humanPrompt,
		Preview:     &card,
	}, nil
}

// upsertChunkEmbeddings はチャンク埋め込みをメモリインデックスへ登録する。
// 障害時は警告ログのみでパイプラインを止めない。
func (s *Service) upsertChunkEmbeddings(ctx context.Context, job *Job, chunks []string) {
	if len(chunks) == 0 || s.memory == nil || !s.memory.Available() {
		return
	}

	if err := s.memory.EnsureReady(ctx); err != nil {
		s.logger.Warn("メモリインデックスの準備に失敗しました", slog.Any("error", err))
		return
	}

	if len(chunks) > s.config.EmbedChunkLimit {
		chunks = chunks[:s.config.EmbedChunkLimit]
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, chunks)
	if err != nil {
		s.logger.Warn("チャンク埋め込みの生成に失敗しました", slog.Any("error", err))
		return
	}

	memoryChunks := make([]MemoryChunk, len(chunks))
	now := time.Now()
	for i, text := range chunks {
		memoryChunks[i] = MemoryChunk{
			ChunkID:   fmt.Sprintf("%s_%d", job.ID, i),
			Text:      text,
			Timestamp: now,
		}
	}

	if err := s.memory.UpsertChunks(ctx, job.ID, job.Slug, memoryChunks, embeddings); err != nil {
		s.logger.Warn("チャンク埋め込みの登録に失敗しました", slog.Any("error", err))
		return
	}

	s.audit(ctx, EventEmbeddingsUpserted, job.ID, map[string]any{
		"count": len(embeddings),
	})
}

// GetStatus はジョブの現在状態と最新ドラフトのプレビューを返す
func (s *Service) GetStatus(ctx context.Context, jobID uuid.UUID) (*StatusInfo, error) {
	jobOpt, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("ジョブの取得に失敗しました: %w", err)
	}
	job, exists := jobOpt.Get()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	info := &StatusInfo{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: BuildProgress(job.Status),
		DraftNo:  job.DraftNo,
		Errors:   []string{},
	}
	if job.Error != nil {
		info.Errors = append(info.Errors, *job.Error)
	}

	if job.DraftNo > 0 {
		draftOpt, err := s.repo.GetDraft(ctx, jobID, job.DraftNo)
		if err != nil {
			return nil, fmt.Errorf("ドラフトの取得に失敗しました: %w", err)
		}
		if draft, ok := draftOpt.Get(); ok {
			core, err := persona.FromDocument(draft.CoreDocument)
			if err != nil {
				return nil, fmt.Errorf("ドラフトの復元に失敗しました: %w", err)
			}
			card := persona.BuildCard(job.PersonaID, job.PersonaName, job.Slug, core, persona.DraftVersion)
			info.Preview = &card
			info.HumanPrompt = &draft.HumanPrompt
		}
	}

	return info, nil
}

// Approve は編集バッチを現在のドラフトへ適用し、新しいドラフトを作る。
// 指定されたdraftNoが現在値と一致しない場合は副作用なしで拒否する。
func (s *Service) Approve(ctx context.Context, jobID uuid.UUID, draftNo int, edits []patch.Edit) (*ApproveResult, error) {
	if len(edits) == 0 {
		return nil, ErrNoEdits
	}

	job, draft, err := s.currentDraft(ctx, jobID, draftNo)
	if err != nil {
		return nil, err
	}

	updatedDoc, err := patch.Apply(draft.CoreDocument, edits)
	if err != nil {
		return nil, fmt.Errorf("編集の適用に失敗しました: %w", err)
	}

	// 編集後も構造が正しいことを確認する
	core, err := persona.FromDocument(updatedDoc)
	if err != nil {
		return nil, fmt.Errorf("編集後の検証に失敗しました: %w", err)
	}

	newDraftNo := draftNo + 1
	humanPrompt, err := s.generator.GenerateReviewPrompt(ctx, core, newDraftNo)
	if err != nil {
		return nil, fmt.Errorf("レビュー文の生成に失敗しました: %w", err)
	}

	newDraft := &Draft{
		ID:           uuid.New(),
		JobID:        job.ID,
		DraftNo:      newDraftNo,
		CoreDocument: updatedDoc,
		HumanPrompt:  humanPrompt,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateDraft(ctx, newDraft); err != nil {
		return nil, fmt.Errorf("ドラフトの保存に失敗しました: %w", err)
	}

	ok, err := s.repo.UpdateJobDraftCAS(ctx, job.ID, draftNo, newDraftNo)
	if err != nil {
		return nil, fmt.Errorf("ドラフト番号の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: expected draft %d", ErrDraftConflict, draftNo)
	}

	s.audit(ctx, EventApprovalApplied, job.ID, map[string]any{
		"draftNo":    newDraftNo,
		"editsCount": len(edits),
	})

	card := persona.BuildCard(nil, job.PersonaName, job.Slug, core, persona.DraftVersion)

	return &ApproveResult{
		JobID:       job.ID,
		Status:      job.Status,
		DraftNo:     newDraftNo,
		HumanPrompt: humanPrompt,
		Preview:     &card,
	}, nil
}

// Confirm は現在のドラフトをペルソナとして確定する。
// メモリインデックスへの登録に失敗した場合は
// committed_with_memory_pending で終端する。
func (s *Service) Confirm(ctx context.Context, jobID uuid.UUID, draftNo int) (*CommitResult, error) {
	job, draft, err := s.currentDraft(ctx, jobID, draftNo)
	if err != nil {
		return nil, err
	}

	core, err := persona.FromDocument(draft.CoreDocument)
	if err != nil {
		return nil, fmt.Errorf("ドラフトの復元に失敗しました: %w", err)
	}

	description := core.Credo.Summary
	personaEntity := &Persona{
		ID:            uuid.New(),
		Name:          job.PersonaName,
		Slug:          job.Slug,
		Description:   &description,
		Language:      core.Language,
		ActiveVersion: InitialVersion,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := s.repo.CreatePersona(ctx, personaEntity); err != nil {
		return nil, fmt.Errorf("ペルソナの作成に失敗しました: %w", err)
	}

	reason := "Initial persona creation via Genesis"
	if err := s.repo.CreatePersonaVersion(ctx, &PersonaVersion{
		ID:        uuid.New(),
		PersonaID: personaEntity.ID,
		Version:   InitialVersion,
		Core:      draft.CoreDocument,
		Reason:    &reason,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("バージョンの作成に失敗しました: %w", err)
	}

	if err := s.repo.LinkSourcesToPersona(ctx, job.ID, personaEntity.ID); err != nil {
		return nil, fmt.Errorf("ソースの関連付けに失敗しました: %w", err)
	}
	if err := s.repo.SetJobPersona(ctx, job.ID, personaEntity.ID); err != nil {
		return nil, fmt.Errorf("ジョブの更新に失敗しました: %w", err)
	}

	var concepts Concepts
	if job.Config.Concepts != nil {
		concepts = *job.Config.Concepts
	}

	records, err := s.sourceRepo.ListSourcesByJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("ソース一覧の取得に失敗しました: %w", err)
	}

	exportResult, err := s.exporter.ExportPersona(ctx, ExportRequest{
		PersonaID:    personaEntity.ID,
		Slug:         job.Slug,
		Version:      InitialVersion,
		Core:         core,
		CoreDocument: draft.CoreDocument,
		Concepts:     concepts,
		Sources:      records,
	})
	if err != nil {
		return nil, fmt.Errorf("ペルソナの出力に失敗しました: %w", err)
	}

	memoryPending := !s.upsertCoreEmbeddings(ctx, personaEntity.ID, job.Slug, core)

	nextStatus := StatusCommitted
	if memoryPending {
		nextStatus = StatusCommittedMemoryPending
	}
	if err := s.transition(ctx, job, nextStatus); err != nil {
		return nil, err
	}

	s.audit(ctx, EventPersonaCommitted, job.ID, map[string]any{
		"version":       InitialVersion,
		"memoryPending": memoryPending,
	})
	s.audit(ctx, EventExportCompleted, job.ID, map[string]any{
		"basePath": exportResult.BasePath,
	})

	card := persona.BuildCard(&personaEntity.ID, job.PersonaName, job.Slug, core, InitialVersion)

	return &CommitResult{
		JobID:     job.ID,
		Status:    job.Status,
		PersonaID: personaEntity.ID,
		Version:   InitialVersion,
		Export:    exportResult,
		Preview:   &card,
	}, nil
}

// Export は確定済みペルソナのファイルツリーを再出力する。
// コアはアクティブバージョンから復元し、概念とソースは元ジョブから引き継ぐ。
func (s *Service) Export(ctx context.Context, slug string) (*ExportResult, error) {
	personaOpt, err := s.repo.GetPersonaBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("ペルソナの取得に失敗しました: %w", err)
	}
	personaEntity, exists := personaOpt.Get()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPersonaNotFound, slug)
	}

	versionOpt, err := s.repo.GetPersonaVersion(ctx, personaEntity.ID, personaEntity.ActiveVersion)
	if err != nil {
		return nil, fmt.Errorf("バージョンの取得に失敗しました: %w", err)
	}
	version, exists := versionOpt.Get()
	if !exists {
		return nil, fmt.Errorf("%w: version %s", ErrPersonaNotFound, personaEntity.ActiveVersion)
	}

	core, err := persona.FromDocument(version.Core)
	if err != nil {
		return nil, fmt.Errorf("コアの復元に失敗しました: %w", err)
	}

	var concepts Concepts
	var records []*sources.SourceRecord
	jobOpt, err := s.repo.GetJobBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("ジョブの取得に失敗しました: %w", err)
	}
	job, hasJob := jobOpt.Get()
	if hasJob {
		if job.Config.Concepts != nil {
			concepts = *job.Config.Concepts
		}
		records, err = s.sourceRepo.ListSourcesByJob(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("ソース一覧の取得に失敗しました: %w", err)
		}
	}

	exportResult, err := s.exporter.ExportPersona(ctx, ExportRequest{
		PersonaID:    personaEntity.ID,
		Slug:         personaEntity.Slug,
		Version:      personaEntity.ActiveVersion,
		Core:         core,
		CoreDocument: version.Core,
		Concepts:     concepts,
		Sources:      records,
	})
	if err != nil {
		return nil, fmt.Errorf("ペルソナの出力に失敗しました: %w", err)
	}

	if hasJob {
		s.audit(ctx, EventExportCompleted, job.ID, map[string]any{
			"basePath": exportResult.BasePath,
			"slug":     personaEntity.Slug,
		})
	}

	return exportResult, nil
}

// ListAuditEntries はジョブの監査ログを時系列で返す
func (s *Service) ListAuditEntries(ctx context.Context, jobID uuid.UUID) ([]*AuditEntry, error) {
	return s.repo.ListAuditEntriesByJob(ctx, jobID)
}

// upsertCoreEmbeddings はコアセクションの埋め込みを登録し、成否を返す
func (s *Service) upsertCoreEmbeddings(ctx context.Context, personaID uuid.UUID, slug string, core persona.Core) bool {
	if s.memory == nil || !s.memory.Available() {
		return false
	}

	sections := []CoreSection{
		{Section: "credo", Text: strings.TrimSpace(core.Credo.Summary + " " + strings.Join(core.Credo.Statements, " "))},
		{Section: "ethos", Text: strings.Join(append(append([]string{}, core.Ethos.Virtues...), core.Ethos.EmotionalTone...), " ")},
		{Section: "style", Text: strings.TrimSpace(core.Style.Voice + " " + core.Style.Cadence)},
	}
	texts := make([]string, len(sections))
	for i, sec := range sections {
		texts[i] = sec.Text
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		s.logger.Warn("コア埋め込みの生成に失敗しました", slog.Any("error", err))
		return false
	}
	if err := s.memory.UpsertCoreSections(ctx, personaID, slug, sections, embeddings); err != nil {
		s.logger.Warn("コア埋め込みの登録に失敗しました", slog.Any("error", err))
		return false
	}
	return true
}

// currentDraft は承認待ちジョブと現在のドラフトを取得する
func (s *Service) currentDraft(ctx context.Context, jobID uuid.UUID, draftNo int) (*Job, *Draft, error) {
	jobOpt, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("ジョブの取得に失敗しました: %w", err)
	}
	job, exists := jobOpt.Get()
	if !exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if job.Status != StatusAwaitingApproval {
		return nil, nil, fmt.Errorf("%w: status is %s", ErrNotAwaitingApproval, job.Status)
	}
	if job.DraftNo != draftNo {
		return nil, nil, fmt.Errorf("%w: expected %d, got %d", ErrStaleDraft, job.DraftNo, draftNo)
	}

	draftOpt, err := s.repo.GetDraft(ctx, jobID, draftNo)
	if err != nil {
		return nil, nil, fmt.Errorf("ドラフトの取得に失敗しました: %w", err)
	}
	draft, exists := draftOpt.Get()
	if !exists {
		return nil, nil, fmt.Errorf("%w: draft %d", ErrDraftNotFound, draftNo)
	}

	return job, draft, nil
}

// transition は遷移表の検査付きで状態を更新し、永続化する
func (s *Service) transition(ctx context.Context, job *Job, next Status) error {
	if err := job.Transition(next); err != nil {
		return err
	}
	if err := s.repo.UpdateJobStatus(ctx, job.ID, next, nil); err != nil {
		return fmt.Errorf("状態の更新に失敗しました: %w", err)
	}
	return nil
}

// ensureUniqueSlug はペルソナとジョブの両方に対して一意なスラグを求める
func (s *Service) ensureUniqueSlug(ctx context.Context, slug string) (string, error) {
	candidate := slug
	for counter := 1; ; counter++ {
		personaOpt, err := s.repo.GetPersonaBySlug(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("スラグの確認に失敗しました: %w", err)
		}
		if personaOpt.IsAbsent() {
			jobOpt, err := s.repo.GetJobBySlug(ctx, candidate)
			if err != nil {
				return "", fmt.Errorf("スラグの確認に失敗しました: %w", err)
			}
			if jobOpt.IsAbsent() {
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s-%d", slug, counter+1)
	}
}

// loadSourceTexts は処理状態okのソース本文を読み出す
func (s *Service) loadSourceTexts(ctx context.Context, jobID uuid.UUID) ([]string, error) {
	records, err := s.sourceRepo.ListOKSourcesByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("ソース一覧の取得に失敗しました: %w", err)
	}

	var texts []string
	for _, record := range records {
		switch {
		case record.ExtractedTextPath != nil:
			data, err := os.ReadFile(*record.ExtractedTextPath)
			if err != nil {
				s.logger.Warn("ソースファイルの読み込みに失敗しました",
					slog.String("path", *record.ExtractedTextPath), slog.Any("error", err))
				continue
			}
			texts = append(texts, string(data))
		case record.SourceType == sources.ChannelText:
			texts = append(texts, record.SourceRef)
		}
	}

	return texts, nil
}

// audit は監査イベントを記録する。失敗は警告ログに留める。
func (s *Service) audit(ctx context.Context, eventType AuditEventType, jobID uuid.UUID, details map[string]any) {
	entry := &AuditEntry{
		ID:        uuid.New(),
		EventType: eventType,
		JobID:     &jobID,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AppendAuditEntry(ctx, entry); err != nil {
		s.logger.Warn("監査ログの記録に失敗しました",
			slog.String("eventType", string(eventType)), slog.Any("error", err))
	}
}

func inlineSources(texts []string) []sources.InlineSource {
	if len(texts) == 0 {
		return nil
	}
	out := make([]sources.InlineSource, len(texts))
	for i, t := range texts {
		out[i] = sources.InlineSource{Text: t}
	}
	return out
}
