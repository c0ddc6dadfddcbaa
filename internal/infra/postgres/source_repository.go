package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/mo"

	"github.com/mpis/persona-genesis/internal/core/sources"
)

// SourceRepository は sources.Repository を実装する PostgreSQL リポジトリ
type SourceRepository struct {
	db DBTX
}

// NewSourceRepository は新しい SourceRepository を作成する
func NewSourceRepository(db DBTX) *SourceRepository {
	return &SourceRepository{db: db}
}

var _ sources.Repository = (*SourceRepository)(nil)

const sourceColumns = `id, job_id, persona_id, source_type, source_ref, content_hash, metadata, extracted_text_path, created_at`

func (r *SourceRepository) CreateSource(ctx context.Context, record *sources.SourceRecord) error {
	metadata, err := record.Metadata.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal source metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO sources (id, job_id, persona_id, source_type, source_ref, content_hash, metadata, extracted_text_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		UUIDToPgtype(record.ID),
		UUIDToPgtype(record.JobID),
		UUIDPtrToPgtype(record.PersonaID),
		string(record.SourceType),
		record.SourceRef,
		record.ContentHash,
		metadata,
		StringPtrToPgtext(record.ExtractedTextPath),
		TimeToPgtype(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

func (r *SourceRepository) GetSourceByHash(ctx context.Context, jobID uuid.UUID, contentHash string) (mo.Option[*sources.SourceRecord], error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sourceColumns+` FROM sources WHERE job_id = $1 AND content_hash = $2`,
		UUIDToPgtype(jobID), contentHash)

	record, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*sources.SourceRecord](), nil
		}
		return mo.None[*sources.SourceRecord](), err
	}
	return mo.Some(record), nil
}

func (r *SourceRepository) ListSourcesByJob(ctx context.Context, jobID uuid.UUID) ([]*sources.SourceRecord, error) {
	return r.listSources(ctx, `
		SELECT `+sourceColumns+` FROM sources WHERE job_id = $1 ORDER BY created_at`,
		UUIDToPgtype(jobID))
}

// ListOKSourcesByJob は処理成功したソースだけを返す
func (r *SourceRepository) ListOKSourcesByJob(ctx context.Context, jobID uuid.UUID) ([]*sources.SourceRecord, error) {
	return r.listSources(ctx, `
		SELECT `+sourceColumns+` FROM sources WHERE job_id = $1 AND metadata->>'status' = $2 ORDER BY created_at`,
		UUIDToPgtype(jobID), string(sources.ItemStatusOK))
}

func (r *SourceRepository) listSources(ctx context.Context, query string, args ...any) ([]*sources.SourceRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var records []*sources.SourceRecord
	for rows.Next() {
		record, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}

	return records, nil
}

func scanSource(row pgx.Row) (*sources.SourceRecord, error) {
	var (
		id                pgtype.UUID
		jobID             pgtype.UUID
		personaID         pgtype.UUID
		sourceType        string
		sourceRef         string
		contentHash       string
		metadataBytes     []byte
		extractedTextPath pgtype.Text
		createdAt         pgtype.Timestamp
	)

	if err := row.Scan(&id, &jobID, &personaID, &sourceType, &sourceRef, &contentHash, &metadataBytes, &extractedTextPath, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}

	var metadata sources.SourceMetadata
	if err := metadata.Scan(metadataBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source metadata: %w", err)
	}

	return &sources.SourceRecord{
		ID:                PgtypeToUUID(id),
		JobID:             PgtypeToUUID(jobID),
		PersonaID:         PgtypeToUUIDPtr(personaID),
		SourceType:        sources.ChannelType(sourceType),
		SourceRef:         sourceRef,
		ContentHash:       contentHash,
		Metadata:          metadata,
		ExtractedTextPath: PgtextToStringPtr(extractedTextPath),
		CreatedAt:         PgtypeToTime(createdAt),
	}, nil
}
