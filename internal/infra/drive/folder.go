package drive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mpis/persona-genesis/internal/core/sources"
)

// DefaultBaseDir はドキュメントフォルダのデフォルト配置先
const DefaultBaseDir = "./data/drive"

// contentTypes は拡張子からコンテンツタイプへの対応
var contentTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".pdf":  "application/pdf",
}

// LocalFolder はローカルディレクトリをドキュメントフォルダとして公開する。
// フォルダIDはベースディレクトリ配下のサブディレクトリ名に対応する。
type LocalFolder struct {
	baseDir string
	logger  *slog.Logger
}

type folderOptions struct {
	baseDir string
	logger  *slog.Logger
}

// FolderOption は LocalFolder のオプション設定
type FolderOption func(*folderOptions)

// WithBaseDir はベースディレクトリを上書きする
func WithBaseDir(baseDir string) FolderOption {
	return func(o *folderOptions) {
		o.baseDir = baseDir
	}
}

// WithFolderLogger はロガーを上書きする
func WithFolderLogger(logger *slog.Logger) FolderOption {
	return func(o *folderOptions) {
		o.logger = logger
	}
}

// NewLocalFolder は新しい LocalFolder を作成する
func NewLocalFolder(opts ...FolderOption) *LocalFolder {
	options := folderOptions{
		baseDir: DefaultBaseDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &LocalFolder{
		baseDir: options.baseDir,
		logger:  options.logger,
	}
}

var _ sources.DocumentFolder = (*LocalFolder)(nil)

// ListFiles はフォルダ直下のファイル一覧を返す。隠しファイルは除く。
func (f *LocalFolder) ListFiles(_ context.Context, folderID string) ([]sources.DocumentFile, error) {
	dir, err := f.resolve(folderID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}

	files := make([]sources.DocumentFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		files = append(files, sources.DocumentFile{
			ID:          filepath.Join(folderID, entry.Name()),
			Name:        entry.Name(),
			ContentType: contentTypeOf(entry.Name()),
		})
	}

	return files, nil
}

// ReadText はファイルをUTF-8テキストとして読み込む
func (f *LocalFolder) ReadText(ctx context.Context, fileID string) (string, error) {
	data, err := f.ReadBytes(ctx, fileID)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBytes はファイルをバイナリとして読み込む
func (f *LocalFolder) ReadBytes(_ context.Context, fileID string) ([]byte, error) {
	path, err := f.resolve(fileID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	return data, nil
}

// resolve はIDをベースディレクトリ配下の絶対パスへ解決する。
// ディレクトリトラバーサルは拒否する。
func (f *LocalFolder) resolve(id string) (string, error) {
	cleaned := filepath.Clean(id)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid file id: %s", id)
	}
	return filepath.Join(f.baseDir, cleaned), nil
}

func contentTypeOf(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "text/plain"
}
