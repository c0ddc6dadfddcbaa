package sources

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// === SourceRecord ===

// ChannelType は収集チャネルの種別を表す
type ChannelType string

const (
	ChannelYouTube ChannelType = "youtube"
	ChannelFile    ChannelType = "file"
	ChannelURL     ChannelType = "url"
	ChannelText    ChannelType = "text"
)

// ItemStatus はソース1件の処理状態(メタデータに記録される)
type ItemStatus string

const (
	ItemStatusOK               ItemStatus = "ok"
	ItemStatusFailedTranscript ItemStatus = "failed_transcript"
	ItemStatusFailedParse      ItemStatus = "failed_parse"
)

// SourceRecord は収集済みソース1件を表す。
// 同一ジョブ内でContentHashは一意(重複排除の契約)。
type SourceRecord struct {
	ID                uuid.UUID      `json:"id"`
	JobID             uuid.UUID      `json:"jobID"`
	PersonaID         *uuid.UUID     `json:"personaID,omitempty"`
	SourceType        ChannelType    `json:"sourceType"`
	SourceRef         string         `json:"sourceRef"`
	ContentHash       string         `json:"contentHash"`
	Metadata          SourceMetadata `json:"metadata"`
	ExtractedTextPath *string        `json:"extractedTextPath,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// SourceMetadata はチャネル固有のメタデータを表す
type SourceMetadata map[string]any

func (m SourceMetadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(m)
}

func (m *SourceMetadata) Scan(value any) error {
	if value == nil {
		*m = SourceMetadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for SourceMetadata: %T", value)
	}
	return json.Unmarshal(data, m)
}

// Status はメタデータの処理状態フラグを返す
func (m SourceMetadata) Status() ItemStatus {
	if s, ok := m["status"].(string); ok {
		return ItemStatus(s)
	}
	return ""
}

// === Outcome ===

// OutcomeKind は1件処理結果の閉じた種別
type OutcomeKind int

const (
	// OutcomeOK は保存成功
	OutcomeOK OutcomeKind = iota
	// OutcomeFailed は処理失敗(理由付き)
	OutcomeFailed
	// OutcomeSkipped は重複によるスキップ
	OutcomeSkipped
)

// Outcome はソース1件の処理結果。例外的な制御フローの代わりに
// 結果を値として返すための閉じたバリアント。
type Outcome struct {
	kind   OutcomeKind
	reason string
}

// OKOutcome は保存成功を表す結果を返す
func OKOutcome() Outcome { return Outcome{kind: OutcomeOK} }

// FailedOutcome は理由付きの失敗を表す結果を返す
func FailedOutcome(reason string) Outcome { return Outcome{kind: OutcomeFailed, reason: reason} }

// SkippedOutcome は重複スキップを表す結果を返す
func SkippedOutcome() Outcome { return Outcome{kind: OutcomeSkipped} }

// Kind は結果種別を返す
func (o Outcome) Kind() OutcomeKind { return o.kind }

// Reason は失敗理由を返す(OutcomeFailedのときのみ有効)
func (o Outcome) Reason() string { return o.reason }

// === ChannelSummary ===

// ChannelSummary は1チャネルの集計を表す
type ChannelSummary struct {
	Count   int `json:"count"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// tally は1件の結果を集計へ反映する
func (s *ChannelSummary) tally(o Outcome) {
	switch o.Kind() {
	case OutcomeOK:
		s.Success++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// CollectResult は全チャネルの収集結果を表す
type CollectResult struct {
	YouTube      ChannelSummary `json:"youtube"`
	Drive        ChannelSummary `json:"gdrive"`
	Web          ChannelSummary `json:"web"`
	Text         ChannelSummary `json:"text"`
	TotalSources int            `json:"totalSources"`
}

// === Collaborator payloads ===

// DocumentFile はドキュメントフォルダ内の1ファイルを表す
type DocumentFile struct {
	ID          string
	Name        string
	ContentType string
}

// SearchHit はWeb検索の1件のヒットを表す
type SearchHit struct {
	URL     string
	Title   string
	Snippet string
}

// InlineSource はリクエストに直接含まれるテキストソースを表す
type InlineSource struct {
	Text     string
	Metadata map[string]any
}
