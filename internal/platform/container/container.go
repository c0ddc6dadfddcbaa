package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	coregenesis "github.com/mpis/persona-genesis/internal/core/genesis"
	coresources "github.com/mpis/persona-genesis/internal/core/sources"
	"github.com/mpis/persona-genesis/internal/infra/drive"
	"github.com/mpis/persona-genesis/internal/infra/exporter"
	"github.com/mpis/persona-genesis/internal/infra/openai"
	"github.com/mpis/persona-genesis/internal/infra/postgres"
	"github.com/mpis/persona-genesis/internal/infra/web"
	"github.com/mpis/persona-genesis/internal/infra/youtube"
	"github.com/mpis/persona-genesis/internal/platform/config"
	"github.com/mpis/persona-genesis/internal/platform/database"
)

// ServiceContainer はアプリケーション全体の依存関係を保持する。
type ServiceContainer struct {
	GenesisService *coregenesis.Service
	Collector      *coresources.Collector
	Repository     coregenesis.Repository
	SourceRepo     coresources.Repository
	Memory         coregenesis.MemoryIndex

	logger   *slog.Logger
	database *database.Database
}

type containerOptions struct {
	logger      *slog.Logger
	generator   coregenesis.Generator
	embedder    coregenesis.Embedder
	memory      coregenesis.MemoryIndex
	exporter    coregenesis.Exporter
	transcripts coresources.TranscriptFetcher
	searcher    coresources.Searcher
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerGenerator はカスタム Generator を注入する
func WithContainerGenerator(generator coregenesis.Generator) ContainerOption {
	return func(opts *containerOptions) {
		opts.generator = generator
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder coregenesis.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerMemoryIndex はメモリインデックスを差し替える
func WithContainerMemoryIndex(memory coregenesis.MemoryIndex) ContainerOption {
	return func(opts *containerOptions) {
		opts.memory = memory
	}
}

// WithContainerExporter はエクスポータを差し替える
func WithContainerExporter(exp coregenesis.Exporter) ContainerOption {
	return func(opts *containerOptions) {
		opts.exporter = exp
	}
}

// WithContainerTranscriptFetcher は字幕取得を差し替える
func WithContainerTranscriptFetcher(fetcher coresources.TranscriptFetcher) ContainerOption {
	return func(opts *containerOptions) {
		opts.transcripts = fetcher
	}
}

// WithContainerSearcher はWeb検索を差し替える
func WithContainerSearcher(searcher coresources.Searcher) ContainerOption {
	return func(opts *containerOptions) {
		opts.searcher = searcher
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗しました: %w", err)
	}

	return NewContainerWithDB(cfg, db, opts...)
}

// NewContainerWithDB は既存の Database を受け取りコンテナを生成する。
func NewContainerWithDB(cfg *config.Config, db *database.Database, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// APIキー未設定時はドライランに倒す
	dryRun := cfg.LLM.DryRun || cfg.OpenAI.APIKey == ""

	// Repository (PostgreSQL)
	repo := postgres.NewRepository(db.Pool())
	sourceRepo := postgres.NewSourceRepository(db.Pool())

	// MemoryIndex (pgvector)
	memory := options.memory
	if memory == nil {
		memory = postgres.NewMemoryIndex(db.Pool())
	}

	// Generator (OpenAI)
	generator := options.generator
	if generator == nil {
		var client *openai.Client
		if !dryRun {
			var err error
			client, err = openai.NewClient(
				cfg.OpenAI.APIKey,
				openai.WithModel(cfg.OpenAI.LLMModel),
				openai.WithDefaultTemperature(cfg.LLM.Temperature),
			)
			if err != nil {
				return nil, fmt.Errorf("OpenAIクライアント初期化に失敗しました: %w", err)
			}
		}
		openaiGenerator, err := openai.NewGenerator(
			client,
			openai.WithDryRun(dryRun),
			openai.WithGenerationMaxTokens(cfg.LLM.MaxTokens),
			openai.WithGeneratorLogger(options.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("Generator 初期化に失敗しました: %w", err)
		}
		generator = openaiGenerator
	}

	// Embedder (OpenAI / ドライラン時はゼロベクトル)
	embedder := options.embedder
	if embedder == nil {
		if dryRun {
			embedder = openai.NewStaticEmbedder(cfg.OpenAI.EmbeddingDimension)
		} else {
			embedder = openai.NewEmbedder(
				cfg.OpenAI.APIKey,
				openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
				openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			)
		}
	}

	httpClient := &http.Client{Timeout: cfg.Web.RequestTimeout}

	// TranscriptFetcher (YouTube)
	transcripts := options.transcripts
	if transcripts == nil {
		transcripts = youtube.NewTranscriptFetcher(
			youtube.WithHTTPClient(httpClient),
			youtube.WithLogger(options.logger),
		)
	}

	// DocumentFolder / DocxExtractor (ローカルドライブ)
	folder := drive.NewLocalFolder(
		drive.WithBaseDir(cfg.Sources.DriveFolderDir),
		drive.WithFolderLogger(options.logger),
	)
	docx := drive.NewDocxExtractor()

	// Web検索: SerpAPIキーがあれば優先、なければWikipediaのみ
	searcher := options.searcher
	if searcher == nil && cfg.Web.SerpAPIKey != "" {
		searcher = web.NewSerpSearcher(
			cfg.Web.SerpAPIKey,
			web.WithSerpLimit(cfg.Web.MaxSources),
			web.WithSerpHTTPClient(httpClient),
		)
	}
	fallback := web.NewWikipediaSearcher(web.WithWikipediaHTTPClient(httpClient))
	pages := web.NewPageFetcher(web.WithPageHTTPClient(httpClient))

	// Collector
	collectorOpts := []coresources.CollectorOption{
		coresources.WithDocumentFolder(folder),
		coresources.WithFallbackSearcher(fallback),
		coresources.WithCollectorConfig(&coresources.CollectorConfig{
			YouTubeLinksPath:   cfg.Sources.YouTubeLinksPath,
			SourcesBaseDir:     cfg.Sources.SourcesBaseDir,
			WebMaxSources:      cfg.Web.MaxSources,
			WebSummaryMaxChars: cfg.Web.SummaryMaxChars,
			WebRequestDelay:    cfg.Web.RequestDelay,
			AllowedDomains:     cfg.Web.AllowedDomains,
			DeniedDomains:      cfg.Web.DeniedDomains,
		}),
		coresources.WithCollectorLogger(options.logger),
	}
	if searcher != nil {
		collectorOpts = append(collectorOpts, coresources.WithSearcher(searcher))
	}
	collector := coresources.NewCollector(sourceRepo, transcripts, pages, docx, collectorOpts...)

	// Exporter
	exp := options.exporter
	if exp == nil {
		exp = exporter.New(
			exporter.WithBaseDir(cfg.Sources.PersonasBaseDir),
			exporter.WithLogger(options.logger),
		)
	}

	// GenesisService
	genesisService := coregenesis.NewService(
		repo,
		sourceRepo,
		collector,
		generator,
		embedder,
		memory,
		exp,
		coregenesis.WithPipelineConfig(&coregenesis.PipelineConfig{
			ChunkMinTokens:     cfg.Chunking.MinTokens,
			ChunkMaxTokens:     cfg.Chunking.MaxTokens,
			ChunkOverlapTokens: cfg.Chunking.OverlapTokens,
			EmbedChunkLimit:    coregenesis.DefaultPipelineConfig().EmbedChunkLimit,
			DryRun:             dryRun,
		}),
		coregenesis.WithServiceLogger(options.logger),
	)

	return &ServiceContainer{
		GenesisService: genesisService,
		Collector:      collector,
		Repository:     repo,
		SourceRepo:     sourceRepo,
		Memory:         memory,
		logger:         options.logger,
		database:       db,
	}, nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返す。
func (c *ServiceContainer) Database() *database.Database {
	if c == nil {
		return nil
	}
	return c.database
}
