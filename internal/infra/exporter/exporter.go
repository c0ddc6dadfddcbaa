package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mpis/persona-genesis/internal/core/genesis"
	"github.com/mpis/persona-genesis/internal/core/persona"
	"github.com/mpis/persona-genesis/internal/core/sources"
)

// DefaultBaseDir はペルソナ出力先のデフォルトディレクトリ
const DefaultBaseDir = "./data/personas"

// Exporter はペルソナのファイルツリーをディスクへ書き出す
type Exporter struct {
	baseDir string
	logger  *slog.Logger
}

type exporterOptions struct {
	baseDir string
	logger  *slog.Logger
}

// Option は Exporter のオプション設定
type Option func(*exporterOptions)

// WithBaseDir は出力先ディレクトリを上書きする
func WithBaseDir(baseDir string) Option {
	return func(o *exporterOptions) {
		o.baseDir = baseDir
	}
}

// WithLogger はロガーを上書きする
func WithLogger(logger *slog.Logger) Option {
	return func(o *exporterOptions) {
		o.logger = logger
	}
}

// New は新しい Exporter を作成する
func New(opts ...Option) *Exporter {
	options := exporterOptions{
		baseDir: DefaultBaseDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Exporter{
		baseDir: options.baseDir,
		logger:  options.logger,
	}
}

var _ genesis.Exporter = (*Exporter)(nil)

// ExportPersona はペルソナの標準フォルダ構成を書き出す。
//
//	<baseDir>/<slug>/
//	  core/persona_core.json
//	  core/credo.json
//	  core/ethos.json
//	  core/style.json
//	  memory/concepts.json
//	  memory/sources_index.json
//	  docs/readme.md
//	  docs/usage_prompt.txt
func (e *Exporter) ExportPersona(ctx context.Context, req genesis.ExportRequest) (*genesis.ExportResult, error) {
	personaDir := filepath.Join(e.baseDir, req.Slug)

	for _, sub := range []string{"core", "memory", "docs"} {
		if err := os.MkdirAll(filepath.Join(personaDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persona directory: %w", err)
		}
	}

	files := map[string]string{}

	writeJSON := func(sub, name string, v any) error {
		path := filepath.Join(personaDir, sub, name)
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		files[name] = path
		return nil
	}

	writeText := func(sub, name, content string) error {
		path := filepath.Join(personaDir, sub, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		files[name] = path
		return nil
	}

	if err := writeJSON("core", "persona_core.json", req.CoreDocument); err != nil {
		return nil, err
	}
	if err := writeJSON("core", "credo.json", req.Core.Credo); err != nil {
		return nil, err
	}
	if err := writeJSON("core", "ethos.json", req.Core.Ethos); err != nil {
		return nil, err
	}
	if err := writeJSON("core", "style.json", req.Core.Style); err != nil {
		return nil, err
	}

	if err := writeJSON("memory", "concepts.json", req.Concepts); err != nil {
		return nil, err
	}
	if err := writeJSON("memory", "sources_index.json", buildSourcesIndex(req.Sources)); err != nil {
		return nil, err
	}

	if err := writeText("docs", "readme.md", generateReadme(req.Core, req.Slug, req.Version)); err != nil {
		return nil, err
	}
	if err := writeText("docs", "usage_prompt.txt", generateUsagePrompt(req.Core, req.Slug)); err != nil {
		return nil, err
	}

	e.logger.Info("ペルソナファイルを出力しました",
		slog.String("slug", req.Slug),
		slog.String("basePath", personaDir),
		slog.Int("files", len(files)))

	return &genesis.ExportResult{
		BasePath: personaDir,
		Files:    files,
	}, nil
}

// === sources index ===

type sourceIndexEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Ref         string `json:"ref"`
	Provider    string `json:"provider"`
	Status      string `json:"status"`
	ContentHash string `json:"content_hash"`
}

type sourcesIndex struct {
	Sources []sourceIndexEntry `json:"sources"`
	Total   int                `json:"total"`
	ByType  map[string]int     `json:"by_type"`
}

func buildSourcesIndex(records []*sources.SourceRecord) sourcesIndex {
	index := sourcesIndex{
		Sources: make([]sourceIndexEntry, 0, len(records)),
		Total:   len(records),
		ByType:  map[string]int{},
	}

	for _, record := range records {
		provider := "unknown"
		if p, ok := record.Metadata["provider"].(string); ok {
			provider = p
		}
		status := "unknown"
		if s := record.Metadata.Status(); s != "" {
			status = string(s)
		}

		index.Sources = append(index.Sources, sourceIndexEntry{
			ID:          record.ID.String(),
			Type:        string(record.SourceType),
			Ref:         record.SourceRef,
			Provider:    provider,
			Status:      status,
			ContentHash: record.ContentHash,
		})
		index.ByType[string(record.SourceType)]++
	}

	return index
}

// === docs ===

func generateReadme(core persona.Core, slug, version string) string {
	return fmt.Sprintf(`# Persona: %s

**Version:** %s
**Language:** %s
**Inspired by:** %s
**Created:** %s

## Overview

%s

## Core Beliefs

%s

## Character Traits

**Virtues:** %s
**Tone:** %s

## Communication Style

**Voice:** %s
**Cadence:** %s

### Do's
%s

### Don'ts
%s

## Topics

**Primary:** %s
**Secondary:** %s

## Signature Phrases

%s

---

*Generated by Persona Genesis*
`,
		slug,
		version,
		core.Language,
		core.Origin.InspirationSource,
		core.Origin.CreatedAt,
		core.Credo.Summary,
		bulletList(core.Credo.Statements),
		strings.Join(core.Ethos.Virtues, ", "),
		strings.Join(core.Ethos.EmotionalTone, ", "),
		core.Style.Voice,
		core.Style.Cadence,
		bulletList(core.Style.Dos),
		bulletList(core.Style.Donts),
		strings.Join(core.Topics.Primary, ", "),
		strings.Join(core.Topics.Secondary, ", "),
		quotedBulletList(core.Lexicon.SignaturePhrases),
	)
}

func generateUsagePrompt(core persona.Core, slug string) string {
	var taboo string
	if len(core.Lexicon.TabooWords) > 0 {
		taboo = "- Words to avoid: " + strings.Join(core.Lexicon.TabooWords, ", ") + "\n"
	}

	return fmt.Sprintf(`You are %s, a persona with the following characteristics:

## Core Identity
%s

## Key Beliefs
%s

## Character
- Virtues: %s
- Avoid: %s
- Tone: %s

## How You Communicate
- Voice: %s
- Cadence: %s

## Topics You Focus On
- Primary: %s
- Secondary: %s

## Your Vocabulary
- Signature phrases: %s
- Keywords to use: %s
%s
## Reasoning Approach
%s

---
Always stay true to these characteristics while responding naturally and authentically.
`,
		slug,
		core.Credo.Summary,
		bulletList(headOf(core.Credo.Statements, 5)),
		strings.Join(core.Ethos.Virtues, ", "),
		strings.Join(core.Ethos.AntiPatterns, ", "),
		strings.Join(core.Ethos.EmotionalTone, ", "),
		core.Style.Voice,
		core.Style.Cadence,
		strings.Join(core.Topics.Primary, ", "),
		strings.Join(core.Topics.Secondary, ", "),
		quotedJoin(headOf(core.Lexicon.SignaturePhrases, 5)),
		strings.Join(headOf(core.Lexicon.Keywords, 10), ", "),
		taboo,
		core.TheoLogic.ReasoningStyle,
	)
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func quotedBulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = `- "` + item + `"`
	}
	return strings.Join(lines, "\n")
}

func quotedJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = `"` + item + `"`
	}
	return strings.Join(quoted, ", ")
}

func headOf(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
