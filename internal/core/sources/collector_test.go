package sources

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpis/persona-genesis/internal/core/textutil"
)

// === スタブ ===

type stubSourceRepo struct {
	records []*SourceRecord
}

func (r *stubSourceRepo) GetSourceByHash(_ context.Context, jobID uuid.UUID, contentHash string) (mo.Option[*SourceRecord], error) {
	for _, rec := range r.records {
		if rec.JobID == jobID && rec.ContentHash == contentHash {
			return mo.Some(rec), nil
		}
	}
	return mo.None[*SourceRecord](), nil
}

func (r *stubSourceRepo) CreateSource(_ context.Context, source *SourceRecord) error {
	r.records = append(r.records, source)
	return nil
}

func (r *stubSourceRepo) ListOKSourcesByJob(_ context.Context, jobID uuid.UUID) ([]*SourceRecord, error) {
	var out []*SourceRecord
	for _, rec := range r.records {
		if rec.JobID == jobID && rec.Metadata.Status() == ItemStatusOK {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubSourceRepo) ListSourcesByJob(_ context.Context, jobID uuid.UUID) ([]*SourceRecord, error) {
	var out []*SourceRecord
	for _, rec := range r.records {
		if rec.JobID == jobID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type stubTranscripts struct {
	transcripts map[string]string
}

func (s *stubTranscripts) FetchTranscript(_ context.Context, videoID string) (string, error) {
	if text, ok := s.transcripts[videoID]; ok {
		return text, nil
	}
	return "", errors.New("transcript disabled")
}

type stubPages struct {
	pages map[string]string
}

func (s *stubPages) Summarize(_ context.Context, url string) (string, error) {
	if text, ok := s.pages[url]; ok {
		return text, nil
	}
	return "", errors.New("fetch failed")
}

type stubSearcher struct {
	hits []SearchHit
}

func (s *stubSearcher) Search(_ context.Context, _ string) ([]SearchHit, error) {
	return s.hits, nil
}

type stubFolder struct {
	files []DocumentFile
	texts map[string]string
	blobs map[string][]byte
}

func (s *stubFolder) ListFiles(_ context.Context, _ string) ([]DocumentFile, error) {
	return s.files, nil
}

func (s *stubFolder) ReadText(_ context.Context, fileID string) (string, error) {
	if text, ok := s.texts[fileID]; ok {
		return text, nil
	}
	return "", errors.New("not found")
}

func (s *stubFolder) ReadBytes(_ context.Context, fileID string) ([]byte, error) {
	if data, ok := s.blobs[fileID]; ok {
		return data, nil
	}
	return nil, errors.New("not found")
}

// stubDocx はバイト列をそのままテキストと見なす
type stubDocx struct{}

func (stubDocx) ExtractDocx(data []byte) (string, error) {
	return string(data), nil
}

// === ヘルパー ===

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *CollectorConfig {
	t.Helper()
	dir := t.TempDir()
	return &CollectorConfig{
		YouTubeLinksPath:   filepath.Join(dir, "youtube_links.txt"),
		SourcesBaseDir:     filepath.Join(dir, "sources"),
		WebMaxSources:      20,
		WebSummaryMaxChars: 500,
		WebRequestDelay:    0,
	}
}

func writeManifest(t *testing.T, cfg *CollectorConfig, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(cfg.YouTubeLinksPath, []byte(content), 0o644))
}

// === テスト ===

// TestCollectAll_TranscriptTally は有効1件+不正1件のマニフェスト集計をテストする
func TestCollectAll_TranscriptTally(t *testing.T) {
	cfg := testConfig(t)
	writeManifest(t, cfg, "https://youtu.be/abcdefghijk\nnot-a-link\n")

	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{transcripts: map[string]string{"abcdefghijk": "hello transcript text"}},
		&stubPages{}, stubDocx{},
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	result, err := collector.CollectAll(context.Background(), CollectRequest{
		JobID: uuid.New(),
		Slug:  "test-persona",
	})
	require.NoError(t, err)

	assert.Equal(t, ChannelSummary{Count: 2, Success: 1, Failed: 1}, result.YouTube)
	assert.Equal(t, 1, result.TotalSources)

	// 文字起こしはファイルにも書き出される
	path := filepath.Join(cfg.SourcesBaseDir, "test-persona", "youtube", "abcdefghijk.txt")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello transcript text", string(data))
}

// TestCollectAll_FailedTranscriptPersisted は取得失敗が記録として残ることをテストする
func TestCollectAll_FailedTranscriptPersisted(t *testing.T) {
	cfg := testConfig(t)
	writeManifest(t, cfg, "https://youtu.be/abcdefghijk\n")

	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{}, &stubPages{}, stubDocx{},
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	jobID := uuid.New()
	result, err := collector.CollectAll(context.Background(), CollectRequest{JobID: jobID, Slug: "p"})
	require.NoError(t, err)

	assert.Equal(t, ChannelSummary{Count: 1, Failed: 1}, result.YouTube)

	records, err := repo.ListSourcesByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ItemStatusFailedTranscript, records[0].Metadata.Status())
	assert.Equal(t, "https://youtu.be/abcdefghijk", records[0].SourceRef)
}

// TestCollectAll_DedupAcrossChannels は同一内容が別チャネル経由でも
// 1件しか保存されないことをテストする
func TestCollectAll_DedupAcrossChannels(t *testing.T) {
	cfg := testConfig(t)
	writeManifest(t, cfg, "https://youtu.be/abcdefghijk\n")

	sharedText := "the same content arrives twice"
	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{transcripts: map[string]string{"abcdefghijk": sharedText}},
		&stubPages{}, stubDocx{},
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	jobID := uuid.New()
	result, err := collector.CollectAll(context.Background(), CollectRequest{
		JobID:         jobID,
		Slug:          "p",
		InlineSources: []InlineSource{{Text: sharedText}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.YouTube.Success)
	assert.Equal(t, ChannelSummary{Count: 1, Skipped: 1}, result.Text)
	assert.Equal(t, 1, result.TotalSources)

	records, err := repo.ListOKSourcesByJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// TestCollectAll_DocumentDispatch はコンテンツタイプ別の振り分けをテストする
func TestCollectAll_DocumentDispatch(t *testing.T) {
	cfg := testConfig(t)

	folder := &stubFolder{
		files: []DocumentFile{
			{ID: "f1", Name: "notes.txt", ContentType: "text/plain"},
			{ID: "f2", Name: "essay.docx", ContentType: mimeDocx},
			{ID: "f3", Name: "legacy.doc", ContentType: mimeMSWord},
		},
		texts: map[string]string{"f1": "plain text body"},
		blobs: map[string][]byte{"f2": []byte("docx extracted body")},
	}

	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{}, &stubPages{}, stubDocx{},
		WithDocumentFolder(folder),
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	jobID := uuid.New()
	result, err := collector.CollectAll(context.Background(), CollectRequest{
		JobID:    jobID,
		Slug:     "p",
		FolderID: "folder-1",
	})
	require.NoError(t, err)

	assert.Equal(t, ChannelSummary{Count: 3, Success: 2, Failed: 1}, result.Drive)

	records, err := repo.ListSourcesByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	statuses := map[string]ItemStatus{}
	for _, rec := range records {
		statuses[rec.SourceRef] = rec.Metadata.Status()
	}
	assert.Equal(t, ItemStatusOK, statuses["f1:notes.txt"])
	assert.Equal(t, ItemStatusOK, statuses["f2:essay.docx"])
	assert.Equal(t, ItemStatusFailedParse, statuses["f3:legacy.doc"])
}

// TestCollectAll_PDFWithoutExtractor はPDF抽出未設定時にfailed_parse扱いになることをテストする
func TestCollectAll_PDFWithoutExtractor(t *testing.T) {
	cfg := testConfig(t)

	folder := &stubFolder{
		files: []DocumentFile{{ID: "f1", Name: "paper.pdf", ContentType: mimePDF}},
		blobs: map[string][]byte{"f1": []byte("%PDF-1.4")},
	}

	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{}, &stubPages{}, stubDocx{},
		WithDocumentFolder(folder),
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	result, err := collector.CollectAll(context.Background(), CollectRequest{
		JobID:    uuid.New(),
		Slug:     "p",
		FolderID: "folder-1",
	})
	require.NoError(t, err)

	assert.Equal(t, ChannelSummary{Count: 1, Failed: 1}, result.Drive)
}

// TestCollectAll_WebDomainFilter は拒否リスト優先と許可リスト制限をテストする
func TestCollectAll_WebDomainFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.DeniedDomains = []string{"denied.example.com"}
	cfg.AllowedDomains = []string{"allowed.example.com", "denied.example.com"}

	searcher := &stubSearcher{hits: []SearchHit{
		{URL: "https://allowed.example.com/article", Title: "ok"},
		{URL: "https://denied.example.com/article", Title: "denied wins"},
		{URL: "https://other.example.com/article", Title: "not allowed"},
	}}
	pages := &stubPages{pages: map[string]string{
		"https://allowed.example.com/article": "article body text",
	}}

	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{}, pages, stubDocx{},
		WithSearcher(searcher),
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	result, err := collector.CollectAll(context.Background(), CollectRequest{
		JobID:         uuid.New(),
		Slug:          "p",
		PublicPersona: true,
		PublicName:    "Sample Person",
	})
	require.NoError(t, err)

	assert.Equal(t, ChannelSummary{Count: 3, Success: 1, Skipped: 2}, result.Web)
}

// TestCollectAll_WebSummaryCap は要約上限を超える本文が切り詰められることをテストする
func TestCollectAll_WebSummaryCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.WebSummaryMaxChars = 20

	longBody := "this body is much longer than the configured summary cap"
	searcher := &stubSearcher{hits: []SearchHit{{URL: "https://example.com/long", Title: "long"}}}
	pages := &stubPages{pages: map[string]string{"https://example.com/long": longBody}}

	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{}, pages, stubDocx{},
		WithSearcher(searcher),
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	jobID := uuid.New()
	_, err := collector.CollectAll(context.Background(), CollectRequest{
		JobID:         jobID,
		Slug:          "p",
		PublicPersona: true,
		PublicName:    "Sample Person",
	})
	require.NoError(t, err)

	records, err := repo.ListOKSourcesByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// 保存されたハッシュは切り詰め後の本文に対応する
	assert.Equal(t, textutil.Fingerprint(longBody[:20]+"..."), records[0].ContentHash)
}

// TestCollectAll_WebFallbackSearcher は優先系未設定時に代替検索が使われることをテストする
func TestCollectAll_WebFallbackSearcher(t *testing.T) {
	cfg := testConfig(t)

	fallback := &stubSearcher{hits: []SearchHit{{URL: "https://en.wikipedia.org/wiki/Sample", Title: "Sample"}}}
	pages := &stubPages{pages: map[string]string{"https://en.wikipedia.org/wiki/Sample": "wiki body"}}

	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{}, pages, stubDocx{},
		WithFallbackSearcher(fallback),
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	result, err := collector.CollectAll(context.Background(), CollectRequest{
		JobID:         uuid.New(),
		Slug:          "p",
		PublicPersona: true,
		PublicName:    "Sample Person",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Web.Success)
}

// TestCollectAll_InlineRef は長いインラインテキストの参照表記をテストする
func TestCollectAll_InlineRef(t *testing.T) {
	cfg := testConfig(t)

	longText := ""
	for range 30 {
		longText += "inline body "
	}

	repo := &stubSourceRepo{}
	collector := NewCollector(repo,
		&stubTranscripts{}, &stubPages{}, stubDocx{},
		WithCollectorConfig(cfg), WithCollectorLogger(quietLogger()),
	)

	jobID := uuid.New()
	result, err := collector.CollectAll(context.Background(), CollectRequest{
		JobID:         jobID,
		Slug:          "p",
		InlineSources: []InlineSource{{Text: longText}, {Text: "   "}},
	})
	require.NoError(t, err)

	assert.Equal(t, ChannelSummary{Count: 2, Success: 1, Failed: 1}, result.Text)

	records, err := repo.ListOKSourcesByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].SourceRef, inlineRefMaxChars)
}
