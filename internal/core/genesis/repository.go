package genesis

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Repository はジョブ・ドラフト・ペルソナ・監査ログのデータアクセスを統合するインターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	// Job
	CreateJob(ctx context.Context, job *Job) error
	GetJobByID(ctx context.Context, id uuid.UUID) (mo.Option[*Job], error)
	GetJobBySlug(ctx context.Context, slug string) (mo.Option[*Job], error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error
	UpdateJobConfig(ctx context.Context, id uuid.UUID, config JobConfig) error
	// UpdateJobDraftCAS はdraft_noが期待値と一致するときだけ更新する。
	// 一致しなければfalseを返し、状態は変わらない。
	UpdateJobDraftCAS(ctx context.Context, jobID uuid.UUID, expectDraftNo, newDraftNo int) (bool, error)
	SetJobPersona(ctx context.Context, jobID, personaID uuid.UUID) error

	// Draft
	CreateDraft(ctx context.Context, draft *Draft) error
	GetDraft(ctx context.Context, jobID uuid.UUID, draftNo int) (mo.Option[*Draft], error)

	// Persona
	CreatePersona(ctx context.Context, persona *Persona) error
	GetPersonaByID(ctx context.Context, id uuid.UUID) (mo.Option[*Persona], error)
	GetPersonaBySlug(ctx context.Context, slug string) (mo.Option[*Persona], error)
	ListPersonas(ctx context.Context) ([]*Persona, error)
	CreatePersonaVersion(ctx context.Context, version *PersonaVersion) error
	GetPersonaVersion(ctx context.Context, personaID uuid.UUID, version string) (mo.Option[*PersonaVersion], error)
	// LinkSourcesToPersona はジョブのソース群にペルソナIDを書き戻す
	LinkSourcesToPersona(ctx context.Context, jobID, personaID uuid.UUID) error

	// Audit
	AppendAuditEntry(ctx context.Context, entry *AuditEntry) error
	ListAuditEntriesByJob(ctx context.Context, jobID uuid.UUID) ([]*AuditEntry, error)
}
