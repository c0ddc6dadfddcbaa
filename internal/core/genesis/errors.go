package genesis

import "errors"

var (
	// ErrJobNotFound はジョブが存在しないことを示す
	ErrJobNotFound = errors.New("genesis: job not found")
	// ErrDraftNotFound はドラフトが存在しないことを示す
	ErrDraftNotFound = errors.New("genesis: draft not found")
	// ErrPersonaNotFound はペルソナが存在しないことを示す
	ErrPersonaNotFound = errors.New("genesis: persona not found")
	// ErrInvalidTransition は遷移表にない状態遷移を示す
	ErrInvalidTransition = errors.New("genesis: invalid status transition")
	// ErrNotAwaitingApproval は承認待ちでないジョブへの操作を示す
	ErrNotAwaitingApproval = errors.New("genesis: job is not awaiting approval")
	// ErrStaleDraft は現在のドラフト番号と一致しない指定を示す
	ErrStaleDraft = errors.New("genesis: stale draft number")
	// ErrDraftConflict はドラフト番号の比較更新が競合したことを示す
	ErrDraftConflict = errors.New("genesis: draft number conflict")
	// ErrNoEdits は編集内容なしの承認リクエストを示す
	ErrNoEdits = errors.New("genesis: no edits provided")
)
