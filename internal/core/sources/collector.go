package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mpis/persona-genesis/internal/core/textutil"
)

const (
	mimeGoogleDoc = "application/vnd.google-apps.document"
	mimePDF       = "application/pdf"
	mimeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeMSWord    = "application/msword"
)

// inlineRefMaxChars はインラインテキストの参照表記に使う先頭文字数
const inlineRefMaxChars = 100

// CollectorConfig は収集の動作設定
type CollectorConfig struct {
	YouTubeLinksPath   string
	SourcesBaseDir     string
	WebMaxSources      int
	WebSummaryMaxChars int
	WebRequestDelay    time.Duration
	AllowedDomains     []string
	DeniedDomains      []string
}

// DefaultCollectorConfig は既定の収集設定を返す
func DefaultCollectorConfig() *CollectorConfig {
	return &CollectorConfig{
		YouTubeLinksPath:   "./data/youtube_links.txt",
		SourcesBaseDir:     "./data/sources",
		WebMaxSources:      20,
		WebSummaryMaxChars: 500,
		WebRequestDelay:    time.Second,
	}
}

// CollectRequest は1ジョブ分の収集指示を表す
type CollectRequest struct {
	JobID         uuid.UUID
	Slug          string
	FolderID      string
	PublicPersona bool
	PublicName    string
	InlineSources []InlineSource
}

// Collector は全チャネルからのソース収集を担う。
// チャネル内の1件単位の失敗はジョブを止めず、集計に反映される。
// リポジトリ層のエラーのみ呼び出し元へ伝播する。
type Collector struct {
	repo        Repository
	transcripts TranscriptFetcher
	pages       PageSummarizer
	docx        DocxExtractor
	folder      DocumentFolder // オプショナル
	pdf         PDFExtractor   // オプショナル
	searcher    Searcher       // オプショナル(優先系)
	fallback    Searcher       // オプショナル(代替系)
	config      *CollectorConfig
	logger      *slog.Logger
}

type collectorOptions struct {
	folder   DocumentFolder
	pdf      PDFExtractor
	searcher Searcher
	fallback Searcher
	config   *CollectorConfig
	logger   *slog.Logger
}

// CollectorOption は Collector のオプション設定
type CollectorOption func(*collectorOptions)

// WithCollectorLogger は Collector にロガーを設定する
func WithCollectorLogger(logger *slog.Logger) CollectorOption {
	return func(o *collectorOptions) {
		o.logger = logger
	}
}

// WithDocumentFolder はドキュメントチャネルの取得元を設定する
func WithDocumentFolder(folder DocumentFolder) CollectorOption {
	return func(o *collectorOptions) {
		o.folder = folder
	}
}

// WithPDFExtractor はPDF本文抽出を設定する
func WithPDFExtractor(pdf PDFExtractor) CollectorOption {
	return func(o *collectorOptions) {
		o.pdf = pdf
	}
}

// WithSearcher は優先系のWeb検索を設定する
func WithSearcher(s Searcher) CollectorOption {
	return func(o *collectorOptions) {
		o.searcher = s
	}
}

// WithFallbackSearcher は優先系が未設定のときに使う検索を設定する
func WithFallbackSearcher(s Searcher) CollectorOption {
	return func(o *collectorOptions) {
		o.fallback = s
	}
}

// WithCollectorConfig は収集設定を上書きする
func WithCollectorConfig(cfg *CollectorConfig) CollectorOption {
	return func(o *collectorOptions) {
		o.config = cfg
	}
}

// NewCollector は新しいCollectorを作成する
func NewCollector(
	repo Repository,
	transcripts TranscriptFetcher,
	pages PageSummarizer,
	docx DocxExtractor,
	opts ...CollectorOption,
) *Collector {
	options := collectorOptions{
		config: DefaultCollectorConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.config == nil {
		options.config = DefaultCollectorConfig()
	}

	return &Collector{
		repo:        repo,
		transcripts: transcripts,
		pages:       pages,
		docx:        docx,
		folder:      options.folder,
		pdf:         options.pdf,
		searcher:    options.searcher,
		fallback:    options.fallback,
		config:      options.config,
		logger:      options.logger,
	}
}

// CollectAll は該当する全チャネルから収集し、チャネル別集計を返す
func (c *Collector) CollectAll(ctx context.Context, req CollectRequest) (*CollectResult, error) {
	result := &CollectResult{}

	youtube, err := c.collectTranscripts(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("transcript channel: %w", err)
	}
	result.YouTube = youtube

	if req.FolderID != "" {
		drive, err := c.collectDocuments(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("document channel: %w", err)
		}
		result.Drive = drive
	}

	if req.PublicPersona && req.PublicName != "" {
		web, err := c.collectWeb(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("web channel: %w", err)
		}
		result.Web = web
	}

	if len(req.InlineSources) > 0 {
		text, err := c.collectInline(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("inline channel: %w", err)
		}
		result.Text = text
	}

	result.TotalSources = result.YouTube.Success + result.Drive.Success +
		result.Web.Success + result.Text.Success

	return result, nil
}

// saveSource は重複排除チェック付きでソースを保存する。
// 同一ジョブに同一ハッシュのソースが既にあればスキップとして返す。
func (c *Collector) saveSource(
	ctx context.Context,
	jobID uuid.UUID,
	sourceType ChannelType,
	sourceRef string,
	content string,
	metadata SourceMetadata,
	filePath *string,
) (Outcome, error) {
	contentHash := textutil.Fingerprint(content)

	existing, err := c.repo.GetSourceByHash(ctx, jobID, contentHash)
	if err != nil {
		return Outcome{}, fmt.Errorf("ソースの重複確認に失敗しました: %w", err)
	}
	if existing.IsPresent() {
		c.logger.Info("重複ソースをスキップします", slog.String("sourceRef", sourceRef))
		return SkippedOutcome(), nil
	}

	record := &SourceRecord{
		ID:                uuid.New(),
		JobID:             jobID,
		SourceType:        sourceType,
		SourceRef:         sourceRef,
		ContentHash:       contentHash,
		Metadata:          metadata,
		ExtractedTextPath: filePath,
		CreatedAt:         time.Now(),
	}
	if err := c.repo.CreateSource(ctx, record); err != nil {
		return Outcome{}, fmt.Errorf("ソースの保存に失敗しました: %w", err)
	}

	return OKOutcome(), nil
}

// collectTranscripts はリンクマニフェストから文字起こしを収集する(チャネルA)
func (c *Collector) collectTranscripts(ctx context.Context, req CollectRequest) (ChannelSummary, error) {
	var summary ChannelSummary

	data, err := os.ReadFile(c.config.YouTubeLinksPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Info("リンクマニフェストが見つかりません", slog.String("path", c.config.YouTubeLinksPath))
			return summary, nil
		}
		c.logger.Error("リンクマニフェストの読み込みに失敗しました", slog.Any("error", err))
		return summary, nil
	}

	links := ParseManifest(string(data))
	summary.Count = len(links)

	transcriptDir := filepath.Join(c.config.SourcesBaseDir, req.Slug, "youtube")
	if err := os.MkdirAll(transcriptDir, 0o755); err != nil {
		return summary, fmt.Errorf("文字起こし保存先の作成に失敗しました: %w", err)
	}

	for _, link := range links {
		if !link.Valid {
			c.logger.Warn("動画IDを抽出できない行をスキップします",
				slog.String("url", link.URL), slog.Int("line", link.LineNumber))
			summary.Failed++
			continue
		}

		outcome, err := c.processTranscript(ctx, req.JobID, link, transcriptDir)
		if err != nil {
			return summary, err
		}
		summary.tally(outcome)
	}

	return summary, nil
}

func (c *Collector) processTranscript(ctx context.Context, jobID uuid.UUID, link ManifestLink, dir string) (Outcome, error) {
	transcript, err := c.transcripts.FetchTranscript(ctx, link.VideoID)
	if err != nil || strings.TrimSpace(transcript) == "" {
		if err != nil {
			c.logger.Warn("文字起こしの取得に失敗しました",
				slog.String("videoID", link.VideoID), slog.Any("error", err))
		}
		// 失敗も記録として残す(黙って落とさない)
		if _, saveErr := c.saveSource(ctx, jobID, ChannelYouTube, link.URL, "", SourceMetadata{
			"provider": "youtube",
			"videoId":  link.VideoID,
			"status":   string(ItemStatusFailedTranscript),
		}, nil); saveErr != nil {
			return Outcome{}, saveErr
		}
		return FailedOutcome("transcript unavailable"), nil
	}

	filePath := filepath.Join(dir, link.VideoID+".txt")
	if err := os.WriteFile(filePath, []byte(transcript), 0o644); err != nil {
		return Outcome{}, fmt.Errorf("文字起こしの書き込みに失敗しました: %w", err)
	}

	return c.saveSource(ctx, jobID, ChannelYouTube, link.URL, transcript, SourceMetadata{
		"provider": "youtube",
		"videoId":  link.VideoID,
		"status":   string(ItemStatusOK),
	}, &filePath)
}

// collectDocuments はドキュメントフォルダから収集する(チャネルB)
func (c *Collector) collectDocuments(ctx context.Context, req CollectRequest) (ChannelSummary, error) {
	var summary ChannelSummary

	if c.folder == nil {
		c.logger.Warn("ドキュメントフォルダが設定されていません")
		return summary, nil
	}

	files, err := c.folder.ListFiles(ctx, req.FolderID)
	if err != nil {
		c.logger.Error("ドキュメントフォルダの列挙に失敗しました",
			slog.String("folderID", req.FolderID), slog.Any("error", err))
		return summary, nil
	}
	summary.Count = len(files)

	docDir := filepath.Join(c.config.SourcesBaseDir, req.Slug, "drive")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return summary, fmt.Errorf("ドキュメント保存先の作成に失敗しました: %w", err)
	}

	for _, file := range files {
		outcome, err := c.processDocument(ctx, req.JobID, file, docDir)
		if err != nil {
			return summary, err
		}
		summary.tally(outcome)
	}

	return summary, nil
}

func (c *Collector) processDocument(ctx context.Context, jobID uuid.UUID, file DocumentFile, dir string) (Outcome, error) {
	text, extractErr := c.extractDocument(ctx, file)
	if extractErr != nil || strings.TrimSpace(text) == "" {
		if extractErr != nil {
			c.logger.Warn("ドキュメントの本文抽出に失敗しました",
				slog.String("name", file.Name), slog.Any("error", extractErr))
		}
		if _, saveErr := c.saveSource(ctx, jobID, ChannelFile, file.ID+":"+file.Name, "", SourceMetadata{
			"provider": "gdrive",
			"mimeType": file.ContentType,
			"title":    file.Name,
			"status":   string(ItemStatusFailedParse),
		}, nil); saveErr != nil {
			return Outcome{}, saveErr
		}
		return FailedOutcome("parse failed"), nil
	}

	safeName := textutil.Slugify(file.Name, 40)
	filePath := filepath.Join(dir, file.ID+"_"+safeName+".txt")
	if err := os.WriteFile(filePath, []byte(text), 0o644); err != nil {
		return Outcome{}, fmt.Errorf("抽出テキストの書き込みに失敗しました: %w", err)
	}

	return c.saveSource(ctx, jobID, ChannelFile, file.ID+":"+file.Name, text, SourceMetadata{
		"provider": "gdrive",
		"mimeType": file.ContentType,
		"title":    file.Name,
		"status":   string(ItemStatusOK),
	}, &filePath)
}

// extractDocument はコンテンツタイプに応じて本文抽出を振り分ける
func (c *Collector) extractDocument(ctx context.Context, file DocumentFile) (string, error) {
	switch {
	case file.ContentType == mimeGoogleDoc || strings.HasPrefix(file.ContentType, "text/"):
		return c.folder.ReadText(ctx, file.ID)

	case file.ContentType == mimeDocx:
		data, err := c.folder.ReadBytes(ctx, file.ID)
		if err != nil {
			return "", err
		}
		return c.docx.ExtractDocx(data)

	case file.ContentType == mimePDF:
		if c.pdf == nil {
			return "", errors.New("PDF抽出は設定されていません")
		}
		data, err := c.folder.ReadBytes(ctx, file.ID)
		if err != nil {
			return "", err
		}
		return c.pdf.ExtractPDF(data)

	case file.ContentType == mimeMSWord:
		// 旧Word形式は変換手段を持たない
		return "", fmt.Errorf("unsupported legacy format: %s", file.Name)

	default:
		return "", fmt.Errorf("unsupported content type: %s", file.ContentType)
	}
}

// collectWeb は公開人物のWeb情報を収集する(チャネルC)
func (c *Collector) collectWeb(ctx context.Context, req CollectRequest) (ChannelSummary, error) {
	var summary ChannelSummary

	searcher := c.searcher
	if searcher == nil {
		searcher = c.fallback
	}
	if searcher == nil {
		c.logger.Warn("Web検索が設定されていません")
		return summary, nil
	}

	hits, err := searcher.Search(ctx, req.PublicName)
	if err != nil {
		c.logger.Error("Web検索に失敗しました",
			slog.String("query", req.PublicName), slog.Any("error", err))
		return summary, nil
	}
	summary.Count = len(hits)

	if len(hits) > c.config.WebMaxSources {
		hits = hits[:c.config.WebMaxSources]
	}

	for _, hit := range hits {
		if !c.isDomainAllowed(hit.URL) {
			summary.Skipped++
			continue
		}

		outcome, err := c.processWebPage(ctx, req.JobID, hit)
		if err != nil {
			return summary, err
		}
		summary.tally(outcome)

		// 連続アクセスを避けるための待機
		time.Sleep(c.config.WebRequestDelay)
	}

	return summary, nil
}

func (c *Collector) processWebPage(ctx context.Context, jobID uuid.UUID, hit SearchHit) (Outcome, error) {
	text, err := c.pages.Summarize(ctx, hit.URL)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			c.logger.Warn("ページ取得に失敗しました", slog.String("url", hit.URL), slog.Any("error", err))
		}
		return FailedOutcome("fetch failed"), nil
	}

	// 全文は保存しない(要約分だけを残す)
	if len(text) > c.config.WebSummaryMaxChars {
		text = text[:c.config.WebSummaryMaxChars] + "..."
	}

	return c.saveSource(ctx, jobID, ChannelURL, hit.URL, text, SourceMetadata{
		"provider":  "web",
		"title":     hit.Title,
		"publisher": extractDomain(hit.URL),
		"status":    string(ItemStatusOK),
	}, nil)
}

// collectInline はリクエスト直載せのテキストを収集する
func (c *Collector) collectInline(ctx context.Context, req CollectRequest) (ChannelSummary, error) {
	summary := ChannelSummary{Count: len(req.InlineSources)}

	for _, src := range req.InlineSources {
		if strings.TrimSpace(src.Text) == "" {
			summary.Failed++
			continue
		}

		ref := src.Text
		if len(ref) > inlineRefMaxChars {
			ref = ref[:inlineRefMaxChars]
		}

		metadata := SourceMetadata{}
		for k, v := range src.Metadata {
			metadata[k] = v
		}
		metadata["provider"] = "user_input"
		metadata["status"] = string(ItemStatusOK)

		outcome, err := c.saveSource(ctx, req.JobID, ChannelText, ref, src.Text, metadata, nil)
		if err != nil {
			return summary, err
		}
		summary.tally(outcome)
	}

	return summary, nil
}

// isDomainAllowed は拒否リスト優先でドメインを判定する。
// 許可リストが非空の場合は記載ドメインのみ通す。
func (c *Collector) isDomainAllowed(rawURL string) bool {
	domain := extractDomain(rawURL)
	if domain == "" {
		return false
	}
	if slices.Contains(c.config.DeniedDomains, domain) {
		return false
	}
	if len(c.config.AllowedDomains) > 0 {
		return slices.Contains(c.config.AllowedDomains, domain)
	}
	return true
}

func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
