package patch

import "errors"

// パッチ適用時のバリデーションエラー。いずれも呼び出し元に回復可能な
// エラーとして返し、ジョブ状態は進めない。
var (
	// ErrEmptyPath は空のパス式
	ErrEmptyPath = errors.New("empty path")

	// ErrPathNotFound は中間または末端のパスセグメントが存在しない
	ErrPathNotFound = errors.New("path not found")

	// ErrIndexOutOfRange はシーケンス添字が範囲外
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrTypeMismatch はセグメント種別と実際のコンテナ種別の不一致
	ErrTypeMismatch = errors.New("path segment does not match container kind")

	// ErrValueRequired は値が必須の操作（add/replace）で値が無い
	ErrValueRequired = errors.New("operation requires a value")

	// ErrValueNotAllowed は値を取らない操作（remove）に値が指定された
	ErrValueNotAllowed = errors.New("operation does not take a value")

	// ErrUnknownOp は未知の操作タグ
	ErrUnknownOp = errors.New("unknown operation")

	// ErrInvalidPath はパス式の構文エラー
	ErrInvalidPath = errors.New("invalid path expression")
)
