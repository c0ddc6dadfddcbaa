package genesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpis/persona-genesis/internal/core/patch"
	"github.com/mpis/persona-genesis/internal/core/persona"
	"github.com/mpis/persona-genesis/internal/core/sources"
)

// === スタブ ===

type stubRepo struct {
	jobs     map[uuid.UUID]*Job
	drafts   map[uuid.UUID][]*Draft
	personas []*Persona
	versions []*PersonaVersion
	linked   map[uuid.UUID]uuid.UUID // jobID -> personaID
	audit    []*AuditEntry
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		jobs:   map[uuid.UUID]*Job{},
		drafts: map[uuid.UUID][]*Draft{},
		linked: map[uuid.UUID]uuid.UUID{},
	}
}

func (r *stubRepo) CreateJob(_ context.Context, job *Job) error {
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *stubRepo) GetJobByID(_ context.Context, id uuid.UUID) (mo.Option[*Job], error) {
	if job, ok := r.jobs[id]; ok {
		copied := *job
		return mo.Some(&copied), nil
	}
	return mo.None[*Job](), nil
}

func (r *stubRepo) GetJobBySlug(_ context.Context, slug string) (mo.Option[*Job], error) {
	for _, job := range r.jobs {
		if job.Slug == slug {
			copied := *job
			return mo.Some(&copied), nil
		}
	}
	return mo.None[*Job](), nil
}

func (r *stubRepo) UpdateJobStatus(_ context.Context, id uuid.UUID, status Status, errorMessage *string) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = status
	job.Error = errorMessage
	return nil
}

func (r *stubRepo) UpdateJobConfig(_ context.Context, id uuid.UUID, config JobConfig) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	job.Config = config
	return nil
}

func (r *stubRepo) UpdateJobDraftCAS(_ context.Context, jobID uuid.UUID, expectDraftNo, newDraftNo int) (bool, error) {
	job, ok := r.jobs[jobID]
	if !ok {
		return false, errors.New("job not found")
	}
	if job.DraftNo != expectDraftNo {
		return false, nil
	}
	job.DraftNo = newDraftNo
	return true, nil
}

func (r *stubRepo) SetJobPersona(_ context.Context, jobID, personaID uuid.UUID) error {
	job, ok := r.jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	job.PersonaID = &personaID
	return nil
}

func (r *stubRepo) CreateDraft(_ context.Context, draft *Draft) error {
	r.drafts[draft.JobID] = append(r.drafts[draft.JobID], draft)
	return nil
}

func (r *stubRepo) GetDraft(_ context.Context, jobID uuid.UUID, draftNo int) (mo.Option[*Draft], error) {
	for _, draft := range r.drafts[jobID] {
		if draft.DraftNo == draftNo {
			return mo.Some(draft), nil
		}
	}
	return mo.None[*Draft](), nil
}

func (r *stubRepo) CreatePersona(_ context.Context, p *Persona) error {
	r.personas = append(r.personas, p)
	return nil
}

func (r *stubRepo) GetPersonaByID(_ context.Context, id uuid.UUID) (mo.Option[*Persona], error) {
	for _, p := range r.personas {
		if p.ID == id {
			return mo.Some(p), nil
		}
	}
	return mo.None[*Persona](), nil
}

func (r *stubRepo) GetPersonaBySlug(_ context.Context, slug string) (mo.Option[*Persona], error) {
	for _, p := range r.personas {
		if p.Slug == slug {
			return mo.Some(p), nil
		}
	}
	return mo.None[*Persona](), nil
}

func (r *stubRepo) ListPersonas(_ context.Context) ([]*Persona, error) {
	return r.personas, nil
}

func (r *stubRepo) CreatePersonaVersion(_ context.Context, version *PersonaVersion) error {
	r.versions = append(r.versions, version)
	return nil
}

func (r *stubRepo) GetPersonaVersion(_ context.Context, personaID uuid.UUID, version string) (mo.Option[*PersonaVersion], error) {
	for _, v := range r.versions {
		if v.PersonaID == personaID && v.Version == version {
			return mo.Some(v), nil
		}
	}
	return mo.None[*PersonaVersion](), nil
}

func (r *stubRepo) LinkSourcesToPersona(_ context.Context, jobID, personaID uuid.UUID) error {
	r.linked[jobID] = personaID
	return nil
}

func (r *stubRepo) AppendAuditEntry(_ context.Context, entry *AuditEntry) error {
	r.audit = append(r.audit, entry)
	return nil
}

func (r *stubRepo) ListAuditEntriesByJob(_ context.Context, jobID uuid.UUID) ([]*AuditEntry, error) {
	var out []*AuditEntry
	for _, entry := range r.audit {
		if entry.JobID != nil && *entry.JobID == jobID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *stubRepo) eventTypes(jobID uuid.UUID) []AuditEventType {
	var types []AuditEventType
	for _, entry := range r.audit {
		if entry.JobID != nil && *entry.JobID == jobID {
			types = append(types, entry.EventType)
		}
	}
	return types
}

type stubSourceRepo struct {
	records []*sources.SourceRecord
}

func (r *stubSourceRepo) GetSourceByHash(_ context.Context, jobID uuid.UUID, contentHash string) (mo.Option[*sources.SourceRecord], error) {
	for _, rec := range r.records {
		if rec.JobID == jobID && rec.ContentHash == contentHash {
			return mo.Some(rec), nil
		}
	}
	return mo.None[*sources.SourceRecord](), nil
}

func (r *stubSourceRepo) CreateSource(_ context.Context, source *sources.SourceRecord) error {
	r.records = append(r.records, source)
	return nil
}

func (r *stubSourceRepo) ListOKSourcesByJob(_ context.Context, jobID uuid.UUID) ([]*sources.SourceRecord, error) {
	var out []*sources.SourceRecord
	for _, rec := range r.records {
		if rec.JobID == jobID && rec.Metadata.Status() == sources.ItemStatusOK {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubSourceRepo) ListSourcesByJob(_ context.Context, jobID uuid.UUID) ([]*sources.SourceRecord, error) {
	var out []*sources.SourceRecord
	for _, rec := range r.records {
		if rec.JobID == jobID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// stubCollector は収集結果を固定で返し、インラインテキストをソースとして登録する
type stubCollector struct {
	sourceRepo *stubSourceRepo
	texts      []string
	err        error
}

func (c *stubCollector) CollectAll(_ context.Context, req sources.CollectRequest) (*sources.CollectResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	for _, text := range c.texts {
		c.sourceRepo.records = append(c.sourceRepo.records, &sources.SourceRecord{
			ID:         uuid.New(),
			JobID:      req.JobID,
			SourceType: sources.ChannelText,
			SourceRef:  text,
			Metadata:   sources.SourceMetadata{"status": string(sources.ItemStatusOK)},
		})
	}
	return &sources.CollectResult{
		Text:         sources.ChannelSummary{Count: len(c.texts), Success: len(c.texts)},
		TotalSources: len(c.texts),
	}, nil
}

type stubGenerator struct{}

func (stubGenerator) ExtractConcepts(_ context.Context, _ []string) (Concepts, error) {
	return Concepts{
		Themes:  []string{"faith", "hope", "meaning", "suffering"},
		Virtues: []string{"humility", "wisdom"},
		Tone:    []string{"thoughtful", "warm"},
	}, nil
}

func (stubGenerator) GenerateCore(_ context.Context, req GenerateCoreRequest) (persona.Core, error) {
	core := persona.NewCore(req.Language)
	core.Credo.Summary = "A thoughtful persona inspired by " + req.InspirationSource
	core.Credo.Statements = []string{"Meaning emerges through relationship"}
	core.Ethos.Virtues = req.Concepts.Virtues
	core.Ethos.EmotionalTone = req.Concepts.Tone
	core.Topics.Primary = req.Concepts.Themes[:3]
	core.Lexicon.SignaturePhrases = []string{"Consider this..."}
	return core, nil
}

func (stubGenerator) GenerateReviewPrompt(_ context.Context, _ persona.Core, draftNo int) (string, error) {
	return fmt.Sprintf("Draft v%d review", draftNo), nil
}

type stubEmbedder struct {
	calls [][]string
}

func (e *stubEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type stubMemory struct {
	available    bool
	upsertErr    error
	chunkCount   int
	sectionCount int
}

func (m *stubMemory) Available() bool { return m.available }

func (m *stubMemory) EnsureReady(_ context.Context) error { return nil }

func (m *stubMemory) UpsertChunks(_ context.Context, _ uuid.UUID, _ string, chunks []MemoryChunk, _ [][]float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.chunkCount += len(chunks)
	return nil
}

func (m *stubMemory) UpsertCoreSections(_ context.Context, _ uuid.UUID, _ string, sections []CoreSection, _ [][]float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.sectionCount += len(sections)
	return nil
}

type stubExporter struct {
	requests []ExportRequest
}

func (e *stubExporter) ExportPersona(_ context.Context, req ExportRequest) (*ExportResult, error) {
	e.requests = append(e.requests, req)
	return &ExportResult{
		BasePath: "/personas/" + req.Slug,
		Files:    map[string]string{"persona_core.json": "/personas/" + req.Slug + "/core/persona_core.json"},
	}, nil
}

// === ヘルパー ===

type serviceFixture struct {
	service    *Service
	repo       *stubRepo
	sourceRepo *stubSourceRepo
	collector  *stubCollector
	memory     *stubMemory
	exporter   *stubExporter
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	repo := newStubRepo()
	sourceRepo := &stubSourceRepo{}
	collector := &stubCollector{
		sourceRepo: sourceRepo,
		texts:      []string{strings.Repeat("meaning emerges through shared stories ", 40)},
	}
	memory := &stubMemory{available: true}
	exporter := &stubExporter{}

	cfg := DefaultPipelineConfig()
	cfg.ChunkMinTokens = 10
	cfg.ChunkMaxTokens = 40
	cfg.ChunkOverlapTokens = 4

	service := NewService(repo, sourceRepo, collector, stubGenerator{}, &stubEmbedder{}, memory, exporter,
		WithPipelineConfig(cfg),
		WithServiceLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	return &serviceFixture{
		service:    service,
		repo:       repo,
		sourceRepo: sourceRepo,
		collector:  collector,
		memory:     memory,
		exporter:   exporter,
	}
}

func startJob(t *testing.T, f *serviceFixture) *StartResult {
	t.Helper()
	result, err := f.service.Start(context.Background(), JobInput{
		PersonaName:       "Sample Mentor",
		InspirationSource: "sample teacher",
		Language:          "en",
	})
	require.NoError(t, err)
	return result
}

// === テスト ===

// TestStart_FullPipeline は開始から承認待ちまでの一連の流れをテストする
func TestStart_FullPipeline(t *testing.T) {
	f := newFixture(t)

	result := startJob(t, f)

	assert.Equal(t, StatusAwaitingApproval, result.Status)
	assert.Equal(t, 1, result.DraftNo)
	assert.Equal(t, "Draft v1 review", result.HumanPrompt)
	require.NotNil(t, result.Preview)
	assert.Equal(t, "sample-mentor", result.Preview.Slug)
	assert.Equal(t, persona.DraftVersion, result.Preview.ActiveVersion)

	job := f.repo.jobs[result.JobID]
	require.NotNil(t, job)
	assert.Equal(t, StatusAwaitingApproval, job.Status)
	assert.Equal(t, 1, job.DraftNo)
	require.NotNil(t, job.Config.Concepts)
	assert.Equal(t, []string{"faith", "hope", "meaning", "suffering"}, job.Config.Concepts.Themes)

	// チャンク埋め込みはメモリインデックスへ登録される
	assert.Greater(t, f.memory.chunkCount, 0)

	types := f.repo.eventTypes(result.JobID)
	assert.Equal(t, []AuditEventType{
		EventSourcesDiscovered,
		EventSourcesFetched,
		EventCorpusChunked,
		EventEmbeddingsUpserted,
		EventConceptsExtracted,
		EventDraftGenerated,
		EventApprovalRequested,
	}, types)
}

// TestStart_CollectFailure は収集エラーでジョブがfailed終端になることをテストする
func TestStart_CollectFailure(t *testing.T) {
	f := newFixture(t)
	f.collector.err = errors.New("network unreachable")

	_, err := f.service.Start(context.Background(), JobInput{PersonaName: "Broken"})
	require.Error(t, err)

	var failed *Job
	for _, job := range f.repo.jobs {
		failed = job
	}
	require.NotNil(t, failed)
	assert.Equal(t, StatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "network unreachable")
}

// TestStart_SlugCollision は既存スラグとの衝突時に連番が付くことをテストする
func TestStart_SlugCollision(t *testing.T) {
	f := newFixture(t)
	f.repo.personas = append(f.repo.personas, &Persona{
		ID: uuid.New(), Name: "Sample Mentor", Slug: "sample-mentor",
	})

	result := startJob(t, f)

	assert.Equal(t, "sample-mentor-2", f.repo.jobs[result.JobID].Slug)
}

// TestApprove_CreatesNewDraft は編集適用で次のドラフトができることをテストする
func TestApprove_CreatesNewDraft(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	result, err := f.service.Approve(context.Background(), started.JobID, 1, []patch.Edit{
		{Path: "credo.summary", Op: patch.OpReplace, Value: "edited summary"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.DraftNo)
	assert.Equal(t, "Draft v2 review", result.HumanPrompt)
	assert.Equal(t, "edited summary", result.Preview.Summary)
	assert.Equal(t, 2, f.repo.jobs[started.JobID].DraftNo)
	assert.Len(t, f.repo.drafts[started.JobID], 2)

	// 元のドラフトは変更されない
	first, _ := f.repo.GetDraft(context.Background(), started.JobID, 1)
	draft1, _ := first.Get()
	credo := draft1.CoreDocument["credo"].(map[string]any)
	assert.NotEqual(t, "edited summary", credo["summary"])
}

// TestApprove_StaleDraftRejected は古いドラフト番号が副作用なしで拒否されることをテストする
func TestApprove_StaleDraftRejected(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	_, err := f.service.Approve(context.Background(), started.JobID, 1, []patch.Edit{
		{Path: "credo.summary", Op: patch.OpReplace, Value: "first edit"},
	})
	require.NoError(t, err)

	// 1回目の編集でdraft_noは2になっているため、1の再指定は古い
	_, err = f.service.Approve(context.Background(), started.JobID, 1, []patch.Edit{
		{Path: "credo.summary", Op: patch.OpReplace, Value: "second edit"},
	})
	assert.ErrorIs(t, err, ErrStaleDraft)
	assert.Len(t, f.repo.drafts[started.JobID], 2)
	assert.Equal(t, 2, f.repo.jobs[started.JobID].DraftNo)
}

// TestApprove_RequiresEdits は編集なしの承認が拒否されることをテストする
func TestApprove_RequiresEdits(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	_, err := f.service.Approve(context.Background(), started.JobID, 1, nil)
	assert.ErrorIs(t, err, ErrNoEdits)
}

// TestApprove_InvalidEditRejected は構造を壊す編集が拒否されることをテストする
func TestApprove_InvalidEditRejected(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	// summaryを数値にすると構造検証で弾かれる
	_, err := f.service.Approve(context.Background(), started.JobID, 1, []patch.Edit{
		{Path: "credo.summary", Op: patch.OpReplace, Value: 42.0},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, persona.ErrInvalidDocument)
	assert.Len(t, f.repo.drafts[started.JobID], 1)
}

// TestConfirm_CommitsPersona は確定でペルソナと版が作られることをテストする
func TestConfirm_CommitsPersona(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	result, err := f.service.Confirm(context.Background(), started.JobID, 1)
	require.NoError(t, err)

	assert.Equal(t, StatusCommitted, result.Status)
	assert.Equal(t, InitialVersion, result.Version)
	require.NotNil(t, result.Export)

	require.Len(t, f.repo.personas, 1)
	committed := f.repo.personas[0]
	assert.Equal(t, "sample-mentor", committed.Slug)
	assert.Equal(t, InitialVersion, committed.ActiveVersion)

	require.Len(t, f.repo.versions, 1)
	assert.Equal(t, committed.ID, f.repo.versions[0].PersonaID)

	// ソースはペルソナへ関連付けられる
	assert.Equal(t, committed.ID, f.repo.linked[started.JobID])
	// コアセクションの埋め込みが登録される
	assert.Equal(t, 3, f.memory.sectionCount)
	// 出力は1回呼ばれる
	require.Len(t, f.exporter.requests, 1)
	assert.Equal(t, committed.ID, f.exporter.requests[0].PersonaID)

	types := f.repo.eventTypes(started.JobID)
	assert.Contains(t, types, EventPersonaCommitted)
	assert.Contains(t, types, EventExportCompleted)
}

// TestConfirm_MemoryPending はメモリ登録失敗時の終端状態をテストする
func TestConfirm_MemoryPending(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	f.memory.upsertErr = errors.New("vector store down")

	result, err := f.service.Confirm(context.Background(), started.JobID, 1)
	require.NoError(t, err)

	assert.Equal(t, StatusCommittedMemoryPending, result.Status)
	assert.Equal(t, StatusCommittedMemoryPending, f.repo.jobs[started.JobID].Status)
}

// TestConfirm_MemoryUnavailable はメモリ未設定時もpending終端になることをテストする
func TestConfirm_MemoryUnavailable(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	f.memory.available = false

	result, err := f.service.Confirm(context.Background(), started.JobID, 1)
	require.NoError(t, err)

	assert.Equal(t, StatusCommittedMemoryPending, result.Status)
}

// TestConfirm_StaleDraftRejected は古いドラフト番号での確定が拒否されることをテストする
func TestConfirm_StaleDraftRejected(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	_, err := f.service.Confirm(context.Background(), started.JobID, 99)
	assert.ErrorIs(t, err, ErrStaleDraft)
	assert.Empty(t, f.repo.personas)
}

// TestConfirm_AfterEdits は編集を挟んだ確定の一連の流れをテストする
func TestConfirm_AfterEdits(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	approved, err := f.service.Approve(context.Background(), started.JobID, 1, []patch.Edit{
		{Path: "credo.summary", Op: patch.OpReplace, Value: "final summary"},
	})
	require.NoError(t, err)

	result, err := f.service.Confirm(context.Background(), started.JobID, approved.DraftNo)
	require.NoError(t, err)

	assert.Equal(t, StatusCommitted, result.Status)
	assert.Equal(t, "final summary", result.Preview.Summary)
	require.Len(t, f.repo.versions, 1)
	credo := f.repo.versions[0].Core["credo"].(map[string]any)
	assert.Equal(t, "final summary", credo["summary"])
}

// TestConfirm_TwiceRejected は確定済みジョブへの再操作が拒否されることをテストする
func TestConfirm_TwiceRejected(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	_, err := f.service.Confirm(context.Background(), started.JobID, 1)
	require.NoError(t, err)

	_, err = f.service.Confirm(context.Background(), started.JobID, 1)
	assert.ErrorIs(t, err, ErrNotAwaitingApproval)
}

// TestGetStatus はドラフト付きの状態照会をテストする
func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	info, err := f.service.GetStatus(context.Background(), started.JobID)
	require.NoError(t, err)

	assert.Equal(t, StatusAwaitingApproval, info.Status)
	assert.Equal(t, 80, info.Progress.Percent)
	assert.Equal(t, 1, info.DraftNo)
	require.NotNil(t, info.HumanPrompt)
	assert.Equal(t, "Draft v1 review", *info.HumanPrompt)
	require.NotNil(t, info.Preview)
	assert.Empty(t, info.Errors)
}

// TestGetStatus_NotFound は存在しないジョブの照会をテストする
func TestGetStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

// TestExport_RecommittedPersona は確定済みペルソナの再出力をテストする
func TestExport_RecommittedPersona(t *testing.T) {
	f := newFixture(t)
	started := startJob(t, f)

	committed, err := f.service.Confirm(context.Background(), started.JobID, 1)
	require.NoError(t, err)

	result, err := f.service.Export(context.Background(), "sample-mentor")
	require.NoError(t, err)

	assert.Equal(t, "/personas/sample-mentor", result.BasePath)

	// 確定時と再出力で2回呼ばれる
	require.Len(t, f.exporter.requests, 2)
	req := f.exporter.requests[1]
	assert.Equal(t, committed.PersonaID, req.PersonaID)
	assert.Equal(t, InitialVersion, req.Version)
	// 概念とソースは元ジョブから引き継がれる
	assert.Equal(t, []string{"faith", "hope", "meaning", "suffering"}, req.Concepts.Themes)
}

// TestExport_UnknownSlug は存在しないペルソナの再出力をテストする
func TestExport_UnknownSlug(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Export(context.Background(), "no-such-persona")
	assert.ErrorIs(t, err, ErrPersonaNotFound)
}
