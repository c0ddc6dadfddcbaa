package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/mo"

	"github.com/mpis/persona-genesis/internal/core/genesis"
)

// DBTX は pgxpool.Pool と pgx.Tx に共通するクエリ実行インターフェース
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository は genesis.Repository を実装する PostgreSQL リポジトリ
type Repository struct {
	db DBTX
}

// NewRepository は新しい Repository を作成する
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// コンパイル時の型チェック
var _ genesis.Repository = (*Repository)(nil)

// === Job ===

const jobColumns = `id, persona_name, slug, input, config, status, error_message, persona_id, draft_no, created_at, updated_at`

func (r *Repository) CreateJob(ctx context.Context, job *genesis.Job) error {
	input, err := JSONBFromValue(job.Input)
	if err != nil {
		return err
	}
	config, err := JSONBFromValue(job.Config)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO genesis_jobs (id, persona_name, slug, input, config, status, error_message, persona_id, draft_no, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		UUIDToPgtype(job.ID),
		job.PersonaName,
		job.Slug,
		input,
		config,
		string(job.Status),
		StringPtrToPgtext(job.Error),
		UUIDPtrToPgtype(job.PersonaID),
		int32(job.DraftNo),
		TimeToPgtype(job.CreatedAt),
		TimeToPgtype(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *Repository) GetJobByID(ctx context.Context, id uuid.UUID) (mo.Option[*genesis.Job], error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM genesis_jobs WHERE id = $1`, UUIDToPgtype(id))
	return r.scanJobOption(row)
}

func (r *Repository) GetJobBySlug(ctx context.Context, slug string) (mo.Option[*genesis.Job], error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM genesis_jobs WHERE slug = $1`, slug)
	return r.scanJobOption(row)
}

func (r *Repository) scanJobOption(row pgx.Row) (mo.Option[*genesis.Job], error) {
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*genesis.Job](), nil
		}
		return mo.None[*genesis.Job](), err
	}
	return mo.Some(job), nil
}

func scanJob(row pgx.Row) (*genesis.Job, error) {
	var (
		id           pgtype.UUID
		personaName  string
		slug         string
		inputBytes   []byte
		configBytes  []byte
		status       string
		errorMessage pgtype.Text
		personaID    pgtype.UUID
		draftNo      int32
		createdAt    pgtype.Timestamp
		updatedAt    pgtype.Timestamp
	)

	if err := row.Scan(&id, &personaName, &slug, &inputBytes, &configBytes, &status, &errorMessage, &personaID, &draftNo, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	var input genesis.JobInput
	if err := json.Unmarshal(inputBytes, &input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job input: %w", err)
	}

	var config genesis.JobConfig
	if err := json.Unmarshal(configBytes, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job config: %w", err)
	}

	return &genesis.Job{
		ID:          PgtypeToUUID(id),
		PersonaName: personaName,
		Slug:        slug,
		Input:       input,
		Config:      config,
		Status:      genesis.Status(status),
		Error:       PgtextToStringPtr(errorMessage),
		PersonaID:   PgtypeToUUIDPtr(personaID),
		DraftNo:     int(draftNo),
		CreatedAt:   PgtypeToTime(createdAt),
		UpdatedAt:   PgtypeToTime(updatedAt),
	}, nil
}

func (r *Repository) UpdateJobStatus(ctx context.Context, id uuid.UUID, status genesis.Status, errorMessage *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE genesis_jobs SET status = $2, error_message = $3, updated_at = now() WHERE id = $1`,
		UUIDToPgtype(id), string(status), StringPtrToPgtext(errorMessage))
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

func (r *Repository) UpdateJobConfig(ctx context.Context, id uuid.UUID, config genesis.JobConfig) error {
	configBytes, err := JSONBFromValue(config)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		UPDATE genesis_jobs SET config = $2, updated_at = now() WHERE id = $1`,
		UUIDToPgtype(id), configBytes)
	if err != nil {
		return fmt.Errorf("failed to update job config: %w", err)
	}
	return nil
}

// UpdateJobDraftCAS はdraft_noが期待値と一致する行だけを更新する。
// 更新された行数が0の場合はfalseを返す。
func (r *Repository) UpdateJobDraftCAS(ctx context.Context, jobID uuid.UUID, expectDraftNo, newDraftNo int) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE genesis_jobs SET draft_no = $3, updated_at = now() WHERE id = $1 AND draft_no = $2`,
		UUIDToPgtype(jobID), int32(expectDraftNo), int32(newDraftNo))
	if err != nil {
		return false, fmt.Errorf("failed to update job draft number: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SetJobPersona(ctx context.Context, jobID, personaID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE genesis_jobs SET persona_id = $2, updated_at = now() WHERE id = $1`,
		UUIDToPgtype(jobID), UUIDToPgtype(personaID))
	if err != nil {
		return fmt.Errorf("failed to set job persona: %w", err)
	}
	return nil
}

// === Draft ===

func (r *Repository) CreateDraft(ctx context.Context, draft *genesis.Draft) error {
	coreDocument, err := JSONBFromValue(draft.CoreDocument)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO genesis_drafts (id, job_id, draft_no, core_document, human_prompt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		UUIDToPgtype(draft.ID),
		UUIDToPgtype(draft.JobID),
		int32(draft.DraftNo),
		coreDocument,
		draft.HumanPrompt,
		TimeToPgtype(draft.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

func (r *Repository) GetDraft(ctx context.Context, jobID uuid.UUID, draftNo int) (mo.Option[*genesis.Draft], error) {
	var (
		id           pgtype.UUID
		rowJobID     pgtype.UUID
		rowDraftNo   int32
		coreDocument []byte
		humanPrompt  string
		createdAt    pgtype.Timestamp
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, job_id, draft_no, core_document, human_prompt, created_at
		FROM genesis_drafts WHERE job_id = $1 AND draft_no = $2`,
		UUIDToPgtype(jobID), int32(draftNo),
	).Scan(&id, &rowJobID, &rowDraftNo, &coreDocument, &humanPrompt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*genesis.Draft](), nil
		}
		return mo.None[*genesis.Draft](), fmt.Errorf("failed to get draft: %w", err)
	}

	doc, err := JSONBToMap(coreDocument)
	if err != nil {
		return mo.None[*genesis.Draft](), err
	}

	return mo.Some(&genesis.Draft{
		ID:           PgtypeToUUID(id),
		JobID:        PgtypeToUUID(rowJobID),
		DraftNo:      int(rowDraftNo),
		CoreDocument: doc,
		HumanPrompt:  humanPrompt,
		CreatedAt:    PgtypeToTime(createdAt),
	}), nil
}

// === Persona ===

const personaColumns = `id, name, slug, description, language, active_version, created_at, updated_at`

func (r *Repository) CreatePersona(ctx context.Context, persona *genesis.Persona) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO personas (id, name, slug, description, language, active_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		UUIDToPgtype(persona.ID),
		persona.Name,
		persona.Slug,
		StringPtrToPgtext(persona.Description),
		persona.Language,
		persona.ActiveVersion,
		TimeToPgtype(persona.CreatedAt),
		TimeToPgtype(persona.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create persona: %w", err)
	}
	return nil
}

func (r *Repository) GetPersonaByID(ctx context.Context, id uuid.UUID) (mo.Option[*genesis.Persona], error) {
	row := r.db.QueryRow(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = $1`, UUIDToPgtype(id))
	return scanPersonaOption(row)
}

func (r *Repository) GetPersonaBySlug(ctx context.Context, slug string) (mo.Option[*genesis.Persona], error) {
	row := r.db.QueryRow(ctx, `SELECT `+personaColumns+` FROM personas WHERE slug = $1`, slug)
	return scanPersonaOption(row)
}

func scanPersonaOption(row pgx.Row) (mo.Option[*genesis.Persona], error) {
	persona, err := scanPersona(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*genesis.Persona](), nil
		}
		return mo.None[*genesis.Persona](), err
	}
	return mo.Some(persona), nil
}

func scanPersona(row pgx.Row) (*genesis.Persona, error) {
	var (
		id            pgtype.UUID
		name          string
		slug          string
		description   pgtype.Text
		language      string
		activeVersion string
		createdAt     pgtype.Timestamp
		updatedAt     pgtype.Timestamp
	)

	if err := row.Scan(&id, &name, &slug, &description, &language, &activeVersion, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan persona: %w", err)
	}

	return &genesis.Persona{
		ID:            PgtypeToUUID(id),
		Name:          name,
		Slug:          slug,
		Description:   PgtextToStringPtr(description),
		Language:      language,
		ActiveVersion: activeVersion,
		CreatedAt:     PgtypeToTime(createdAt),
		UpdatedAt:     PgtypeToTime(updatedAt),
	}, nil
}

func (r *Repository) ListPersonas(ctx context.Context) ([]*genesis.Persona, error) {
	rows, err := r.db.Query(ctx, `SELECT `+personaColumns+` FROM personas ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var personas []*genesis.Persona
	for rows.Next() {
		persona, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		personas = append(personas, persona)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate personas: %w", err)
	}

	return personas, nil
}

func (r *Repository) CreatePersonaVersion(ctx context.Context, version *genesis.PersonaVersion) error {
	core, err := JSONBFromValue(version.Core)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO persona_versions (id, persona_id, version, core, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		UUIDToPgtype(version.ID),
		UUIDToPgtype(version.PersonaID),
		version.Version,
		core,
		StringPtrToPgtext(version.Reason),
		TimeToPgtype(version.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create persona version: %w", err)
	}
	return nil
}

func (r *Repository) GetPersonaVersion(ctx context.Context, personaID uuid.UUID, version string) (mo.Option[*genesis.PersonaVersion], error) {
	var (
		id           pgtype.UUID
		rowPersonaID pgtype.UUID
		rowVersion   string
		coreBytes    []byte
		reason       pgtype.Text
		createdAt    pgtype.Timestamp
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, persona_id, version, core, reason, created_at
		FROM persona_versions WHERE persona_id = $1 AND version = $2`,
		UUIDToPgtype(personaID), version,
	).Scan(&id, &rowPersonaID, &rowVersion, &coreBytes, &reason, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*genesis.PersonaVersion](), nil
		}
		return mo.None[*genesis.PersonaVersion](), fmt.Errorf("failed to get persona version: %w", err)
	}

	core, err := JSONBToMap(coreBytes)
	if err != nil {
		return mo.None[*genesis.PersonaVersion](), err
	}

	return mo.Some(&genesis.PersonaVersion{
		ID:        PgtypeToUUID(id),
		PersonaID: PgtypeToUUID(rowPersonaID),
		Version:   rowVersion,
		Core:      core,
		Reason:    PgtextToStringPtr(reason),
		CreatedAt: PgtypeToTime(createdAt),
	}), nil
}

func (r *Repository) LinkSourcesToPersona(ctx context.Context, jobID, personaID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE sources SET persona_id = $2 WHERE job_id = $1`,
		UUIDToPgtype(jobID), UUIDToPgtype(personaID))
	if err != nil {
		return fmt.Errorf("failed to link sources to persona: %w", err)
	}
	return nil
}

// === Audit ===

func (r *Repository) AppendAuditEntry(ctx context.Context, entry *genesis.AuditEntry) error {
	details, err := JSONBFromValue(entry.Details)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO audit_log (id, event_type, entity_type, entity_id, job_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		UUIDToPgtype(entry.ID),
		string(entry.EventType),
		StringPtrToPgtext(entry.EntityType),
		UUIDPtrToPgtype(entry.EntityID),
		UUIDPtrToPgtype(entry.JobID),
		details,
		TimeToPgtype(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *Repository) ListAuditEntriesByJob(ctx context.Context, jobID uuid.UUID) ([]*genesis.AuditEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_type, entity_type, entity_id, job_id, details, created_at
		FROM audit_log WHERE job_id = $1 ORDER BY created_at`,
		UUIDToPgtype(jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*genesis.AuditEntry
	for rows.Next() {
		var (
			id         pgtype.UUID
			eventType  string
			entityType pgtype.Text
			entityID   pgtype.UUID
			rowJobID   pgtype.UUID
			details    []byte
			createdAt  pgtype.Timestamp
		)

		if err := rows.Scan(&id, &eventType, &entityType, &entityID, &rowJobID, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		detailsMap, err := JSONBToMap(details)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &genesis.AuditEntry{
			ID:         PgtypeToUUID(id),
			EventType:  genesis.AuditEventType(eventType),
			EntityType: PgtextToStringPtr(entityType),
			EntityID:   PgtypeToUUIDPtr(entityID),
			JobID:      PgtypeToUUIDPtr(rowJobID),
			Details:    detailsMap,
			CreatedAt:  PgtypeToTime(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}
