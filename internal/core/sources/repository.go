package sources

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Repository はソースのデータアクセスインターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	// GetSourceByHash はジョブ内で同一ハッシュのソースを探す(重複排除用)
	GetSourceByHash(ctx context.Context, jobID uuid.UUID, contentHash string) (mo.Option[*SourceRecord], error)
	CreateSource(ctx context.Context, source *SourceRecord) error
	// ListOKSourcesByJob は処理状態okのソースのみを返す
	ListOKSourcesByJob(ctx context.Context, jobID uuid.UUID) ([]*SourceRecord, error)
	ListSourcesByJob(ctx context.Context, jobID uuid.UUID) ([]*SourceRecord, error)
}

// TranscriptFetcher は動画IDから文字起こしを取得する
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) (string, error)
}

// DocumentFolder はドキュメントフォルダの列挙と取得を提供する
type DocumentFolder interface {
	ListFiles(ctx context.Context, folderID string) ([]DocumentFile, error)
	// ReadText は構造化ドキュメント(プレーンテキスト/エクスポート可能形式)の本文を返す
	ReadText(ctx context.Context, fileID string) (string, error)
	// ReadBytes はバイナリ形式の生データを返す
	ReadBytes(ctx context.Context, fileID string) ([]byte, error)
}

// DocxExtractor はOOXML文書からテキストを抽出する
type DocxExtractor interface {
	ExtractDocx(data []byte) (string, error)
}

// PDFExtractor はPDFからテキストを抽出する(オプショナル)
type PDFExtractor interface {
	ExtractPDF(data []byte) (string, error)
}

// Searcher は人名クエリからWeb上の候補URLを発見する
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchHit, error)
}

// PageSummarizer はURLの本文テキストを取得する
type PageSummarizer interface {
	Summarize(ctx context.Context, url string) (string, error)
}
