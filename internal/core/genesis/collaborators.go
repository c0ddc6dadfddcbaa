package genesis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mpis/persona-genesis/internal/core/persona"
	"github.com/mpis/persona-genesis/internal/core/sources"
)

// SourceCollector は全チャネルからのソース収集を行う
// テスト時のモック用に消費者側で定義
type SourceCollector interface {
	CollectAll(ctx context.Context, req sources.CollectRequest) (*sources.CollectResult, error)
}

// GenerateCoreRequest はコア生成に渡す入力を表す
type GenerateCoreRequest struct {
	PersonaName       string
	InspirationSource string
	Language          string
	Concepts          Concepts
	Texts             []string
}

// Generator はLLMによる概念抽出とコア生成を行う。
// 実装側は生成失敗時に決定的なプレースホルダへフォールバックし、
// 回復不能な障害のみエラーとして返す。
type Generator interface {
	ExtractConcepts(ctx context.Context, texts []string) (Concepts, error)
	GenerateCore(ctx context.Context, req GenerateCoreRequest) (persona.Core, error)
	// GenerateReviewPrompt はドラフトのレビュー用要約文を生成する
	GenerateReviewPrompt(ctx context.Context, core persona.Core, draftNo int) (string, error)
}

// Embedder はテキスト群の埋め込みベクトルを生成する
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// MemoryChunk はメモリインデックスへ登録するチャンク1件
type MemoryChunk struct {
	ChunkID   string
	Text      string
	Timestamp time.Time
}

// CoreSection はコアの1セクション分のテキスト
type CoreSection struct {
	Section string
	Text    string
}

// MemoryIndex はベクトルメモリの登録先を表す
type MemoryIndex interface {
	// Available はメモリインデックスが利用可能かを返す
	Available() bool
	EnsureReady(ctx context.Context) error
	UpsertChunks(ctx context.Context, jobID uuid.UUID, slug string, chunks []MemoryChunk, embeddings [][]float32) error
	UpsertCoreSections(ctx context.Context, personaID uuid.UUID, slug string, sections []CoreSection, embeddings [][]float32) error
}

// ExportRequest はペルソナのファイル出力指示を表す
type ExportRequest struct {
	PersonaID    uuid.UUID
	Slug         string
	Version      string
	Core         persona.Core
	CoreDocument map[string]any
	Concepts     Concepts
	Sources      []*sources.SourceRecord
}

// ExportResult は出力されたファイル群を表す
type ExportResult struct {
	BasePath string            `json:"basePath"`
	Files    map[string]string `json:"files"`
}

// Exporter はペルソナのファイルツリーを書き出す
type Exporter interface {
	ExportPersona(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
