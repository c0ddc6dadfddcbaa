package genesis

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// === Status ===

// Status はジョブ状態の閉じた列挙
type Status string

const (
	StatusQueued                 Status = "queued"
	StatusCollecting             Status = "collecting"
	StatusProcessing             Status = "processing"
	StatusAwaitingApproval       Status = "awaiting_approval"
	StatusCommitted              Status = "committed"
	StatusCommittedMemoryPending Status = "committed_with_memory_pending"
	StatusFailed                 Status = "failed"
)

// statusTransitions は許可される状態遷移の全列挙。
// 表にないペアへの遷移は拒否される。
var statusTransitions = map[Status][]Status{
	StatusQueued:                 {StatusCollecting, StatusFailed},
	StatusCollecting:             {StatusProcessing, StatusFailed},
	StatusProcessing:             {StatusAwaitingApproval, StatusFailed},
	StatusAwaitingApproval:       {StatusCommitted, StatusCommittedMemoryPending},
	StatusCommitted:              {},
	StatusCommittedMemoryPending: {},
	StatusFailed:                 {},
}

// IsTerminal は終端状態かどうかを返す
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// CanTransition は遷移が遷移表で許可されているかを返す
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// === Job ===

// JobInput はジョブ開始時の入力を表す
type JobInput struct {
	PersonaName       string   `json:"personaName"`
	InspirationSource string   `json:"inspirationSource,omitempty"`
	Language          string   `json:"language"`
	PublicPersona     bool     `json:"publicPersona"`
	PublicName        string   `json:"publicName,omitempty"`
	FolderID          string   `json:"folderID,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	InlineTexts       []string `json:"inlineTexts,omitempty"`
}

// JobConfig はジョブ実行時に固定される設定のスナップショット
type JobConfig struct {
	ChunkMinTokens     int       `json:"chunkMinTokens"`
	ChunkMaxTokens     int       `json:"chunkMaxTokens"`
	ChunkOverlapTokens int       `json:"chunkOverlapTokens"`
	DryRun             bool      `json:"dryRun"`
	Concepts           *Concepts `json:"concepts,omitempty"`
}

// Job は1回のペルソナ生成ジョブを表す
type Job struct {
	ID          uuid.UUID  `json:"id"`
	PersonaName string     `json:"personaName"`
	Slug        string     `json:"slug"`
	Input       JobInput   `json:"input"`
	Config      JobConfig  `json:"config"`
	Status      Status     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	PersonaID   *uuid.UUID `json:"personaID,omitempty"`
	DraftNo     int        `json:"draftNo"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Transition は遷移表に従って状態を進める
func (j *Job) Transition(next Status) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	return nil
}

// === Draft ===

// Draft はジョブ内のドラフト1版を表す。
// コアはドキュメント表現で保持し、編集適用の対象になる。
type Draft struct {
	ID           uuid.UUID      `json:"id"`
	JobID        uuid.UUID      `json:"jobID"`
	DraftNo      int            `json:"draftNo"`
	CoreDocument map[string]any `json:"coreDocument"`
	HumanPrompt  string         `json:"humanPrompt"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// === Persona entity ===

// Persona はコミット済みペルソナを表す
type Persona struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   *string   `json:"description,omitempty"`
	Language      string    `json:"language"`
	ActiveVersion string    `json:"activeVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PersonaVersion はペルソナコアの版を表す
type PersonaVersion struct {
	ID        uuid.UUID      `json:"id"`
	PersonaID uuid.UUID      `json:"personaID"`
	Version   string         `json:"version"`
	Core      map[string]any `json:"core"`
	Reason    *string        `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// InitialVersion はコミット時に付与される最初の版
const InitialVersion = "1.0"

// === Concepts ===

// Concepts はソース群から抽出された概念セットを表す
type Concepts struct {
	Themes              []string `json:"themes"`
	Virtues             []string `json:"virtues"`
	Tone                []string `json:"tone"`
	RecurringIdeas      []string `json:"recurringIdeas"`
	NotableDistinctions []string `json:"notableDistinctions"`
}

// === Audit ===

// AuditEventType は監査イベントの種別
type AuditEventType string

const (
	EventSourcesDiscovered  AuditEventType = "sources.discovered"
	EventSourcesFetched     AuditEventType = "sources.fetched"
	EventCorpusChunked      AuditEventType = "corpus.chunked"
	EventEmbeddingsUpserted AuditEventType = "embeddings.upserted"
	EventConceptsExtracted  AuditEventType = "concepts.extracted"
	EventDraftGenerated     AuditEventType = "draft.generated"
	EventApprovalRequested  AuditEventType = "approval.requested"
	EventApprovalApplied    AuditEventType = "approval.applied"
	EventPersonaCommitted   AuditEventType = "persona.committed"
	EventExportCompleted    AuditEventType = "export.completed"
)

// AuditEntry は監査ログ1件を表す
type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	EventType  AuditEventType `json:"eventType"`
	EntityType *string        `json:"entityType,omitempty"`
	EntityID   *uuid.UUID     `json:"entityID,omitempty"`
	JobID      *uuid.UUID     `json:"jobID,omitempty"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// === Progress ===

// ProgressInfo はジョブの進捗表示用情報
type ProgressInfo struct {
	Stage   Status `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// BuildProgress はジョブ状態から進捗情報を組み立てる
func BuildProgress(status Status) ProgressInfo {
	percent, message := 0, "Unknown"
	switch status {
	case StatusQueued:
		percent, message = 0, "Queued"
	case StatusCollecting:
		percent, message = 20, "Collecting sources"
	case StatusProcessing:
		percent, message = 50, "Processing corpus"
	case StatusAwaitingApproval:
		percent, message = 80, "Awaiting human approval"
	case StatusCommitted:
		percent, message = 100, "Completed"
	case StatusCommittedMemoryPending:
		percent, message = 100, "Completed (memory sync pending)"
	case StatusFailed:
		percent, message = 0, "Failed"
	}
	return ProgressInfo{Stage: status, Percent: percent, Message: message}
}
