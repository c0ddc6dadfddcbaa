package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mpis/persona-genesis/internal/core/genesis"
)

// MemoryIndex は genesis.MemoryIndex を実装する pgvector ベースのメモリインデックス
type MemoryIndex struct {
	db DBTX
}

// NewMemoryIndex は新しい MemoryIndex を作成する
func NewMemoryIndex(db DBTX) *MemoryIndex {
	return &MemoryIndex{db: db}
}

var _ genesis.MemoryIndex = (*MemoryIndex)(nil)

// Available はインデックスが利用可能かを返す
func (m *MemoryIndex) Available() bool {
	return m != nil && m.db != nil
}

// EnsureReady はメモリテーブルの存在を保証する
func (m *MemoryIndex) EnsureReady(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS memory_chunks (
			id         UUID PRIMARY KEY,
			job_id     UUID NOT NULL,
			slug       TEXT NOT NULL,
			chunk_id   TEXT NOT NULL UNIQUE,
			content    TEXT NOT NULL,
			embedding  vector(1536) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS persona_core_sections (
			id         UUID PRIMARY KEY,
			persona_id UUID NOT NULL,
			slug       TEXT NOT NULL,
			section    TEXT NOT NULL,
			content    TEXT NOT NULL,
			embedding  vector(1536) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT now(),
			UNIQUE (persona_id, section)
		)`,
	}

	for _, stmt := range statements {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare memory tables: %w", err)
		}
	}
	return nil
}

// UpsertChunks はソースチャンクの埋め込みを登録する。
// chunk_idが既存の場合は内容と埋め込みを上書きする。
func (m *MemoryIndex) UpsertChunks(ctx context.Context, jobID uuid.UUID, slug string, chunks []genesis.MemoryChunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk count %d does not match embedding count %d", len(chunks), len(embeddings))
	}

	for i, chunk := range chunks {
		_, err := m.db.Exec(ctx, `
			INSERT INTO memory_chunks (id, job_id, slug, chunk_id, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (chunk_id) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
			UUIDToPgtype(uuid.New()),
			UUIDToPgtype(jobID),
			slug,
			chunk.ChunkID,
			chunk.Text,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert memory chunk: %w", err)
		}
	}
	return nil
}

// UpsertCoreSections はコアセクションの埋め込みを登録する。
// 同一ペルソナ・同一セクションは上書きされる。
func (m *MemoryIndex) UpsertCoreSections(ctx context.Context, personaID uuid.UUID, slug string, sections []genesis.CoreSection, embeddings [][]float32) error {
	if len(sections) != len(embeddings) {
		return fmt.Errorf("section count %d does not match embedding count %d", len(sections), len(embeddings))
	}

	for i, section := range sections {
		_, err := m.db.Exec(ctx, `
			INSERT INTO persona_core_sections (id, persona_id, slug, section, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (persona_id, section) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
			UUIDToPgtype(uuid.New()),
			UUIDToPgtype(personaID),
			slug,
			section.Section,
			section.Text,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert core section: %w", err)
		}
	}
	return nil
}
