package exporter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpis/persona-genesis/internal/core/genesis"
	"github.com/mpis/persona-genesis/internal/core/persona"
	"github.com/mpis/persona-genesis/internal/core/sources"
)

func testCore() persona.Core {
	core := persona.NewCore("en")
	core.Credo = persona.Credo{
		Summary:    "A patient guide for curious learners",
		Statements: []string{"Questions matter more than answers", "Learning is communal"},
	}
	core.Ethos = persona.Ethos{
		Virtues:       []string{"patience", "curiosity"},
		AntiPatterns:  []string{"condescension"},
		EmotionalTone: []string{"warm", "steady"},
	}
	core.TheoLogic = persona.TheoLogic{
		Principles:     []string{"Start from what the learner knows"},
		ReasoningStyle: "Dialogic and incremental",
	}
	core.Style = persona.Style{
		Voice:   "Conversational mentor",
		Cadence: "Unhurried",
		Dos:     []string{"Use examples"},
		Donts:   []string{"Lecture"},
	}
	core.Lexicon = persona.Lexicon{
		SignaturePhrases: []string{"Let's look together"},
		Keywords:         []string{"practice", "craft"},
		TabooWords:       []string{"just"},
	}
	core.Topics = persona.Topics{
		Primary:   []string{"learning", "craft"},
		Secondary: []string{"community"},
	}
	core.Alignment = persona.Alignment{FaithAlignmentVector: []float64{}}
	core.Origin = persona.Origin{
		InspirationSource: "sample teacher",
		Sources:           []string{},
		CreatedAt:         "2025-01-01T00:00:00Z",
	}
	return core
}

func testExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(WithBaseDir(dir), WithLogger(logger)), dir
}

func TestExportPersonaWritesFileTree(t *testing.T) {
	exp, dir := testExporter(t)
	core := testCore()

	result, err := exp.ExportPersona(context.Background(), genesis.ExportRequest{
		PersonaID:    uuid.New(),
		Slug:         "sample-mentor",
		Version:      "1.0",
		Core:         core,
		CoreDocument: core.Document(),
		Concepts:     genesis.Concepts{Themes: []string{"learning"}},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sample-mentor"), result.BasePath)

	expected := []string{
		"persona_core.json", "credo.json", "ethos.json", "style.json",
		"concepts.json", "sources_index.json", "readme.md", "usage_prompt.txt",
	}
	for _, name := range expected {
		path, ok := result.Files[name]
		require.True(t, ok, "missing file entry: %s", name)
		_, err := os.Stat(path)
		assert.NoError(t, err, "file not written: %s", name)
	}
}

func TestExportPersonaCoreDocumentRoundTrips(t *testing.T) {
	exp, _ := testExporter(t)
	core := testCore()

	result, err := exp.ExportPersona(context.Background(), genesis.ExportRequest{
		Slug:         "sample-mentor",
		Version:      "1.0",
		Core:         core,
		CoreDocument: core.Document(),
	})
	require.NoError(t, err)

	b, err := os.ReadFile(result.Files["persona_core.json"])
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))

	restored, err := persona.FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, core, restored)
}

func TestExportPersonaDocsContent(t *testing.T) {
	exp, _ := testExporter(t)
	core := testCore()

	result, err := exp.ExportPersona(context.Background(), genesis.ExportRequest{
		Slug:         "sample-mentor",
		Version:      "1.0",
		Core:         core,
		CoreDocument: core.Document(),
	})
	require.NoError(t, err)

	readme, err := os.ReadFile(result.Files["readme.md"])
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# Persona: sample-mentor")
	assert.Contains(t, string(readme), "**Version:** 1.0")
	assert.Contains(t, string(readme), "- Questions matter more than answers")

	usage, err := os.ReadFile(result.Files["usage_prompt.txt"])
	require.NoError(t, err)
	assert.Contains(t, string(usage), "You are sample-mentor")
	assert.Contains(t, string(usage), "- Words to avoid: just")
	assert.Contains(t, string(usage), "Dialogic and incremental")
}

func TestExportPersonaSourcesIndex(t *testing.T) {
	exp, _ := testExporter(t)
	core := testCore()

	records := []*sources.SourceRecord{
		{
			ID:          uuid.New(),
			SourceType:  sources.ChannelYouTube,
			SourceRef:   "abc123def45",
			ContentHash: "hash-1",
			Metadata:    sources.SourceMetadata{"provider": "youtube", "status": "ok"},
		},
		{
			ID:          uuid.New(),
			SourceType:  sources.ChannelYouTube,
			SourceRef:   "def456ghi78",
			ContentHash: "hash-2",
			Metadata:    sources.SourceMetadata{"provider": "youtube", "status": "failed_transcript"},
		},
		{
			ID:          uuid.New(),
			SourceType:  sources.ChannelText,
			SourceRef:   "pasted note",
			ContentHash: "hash-3",
			Metadata:    sources.SourceMetadata{},
		},
	}

	result, err := exp.ExportPersona(context.Background(), genesis.ExportRequest{
		Slug:         "sample-mentor",
		Version:      "1.0",
		Core:         core,
		CoreDocument: core.Document(),
		Sources:      records,
	})
	require.NoError(t, err)

	b, err := os.ReadFile(result.Files["sources_index.json"])
	require.NoError(t, err)

	var index sourcesIndex
	require.NoError(t, json.Unmarshal(b, &index))

	assert.Equal(t, 3, index.Total)
	assert.Equal(t, map[string]int{"youtube": 2, "text": 1}, index.ByType)
	require.Len(t, index.Sources, 3)
	assert.Equal(t, "failed_transcript", index.Sources[1].Status)
	assert.Equal(t, "unknown", index.Sources[2].Provider)
}
