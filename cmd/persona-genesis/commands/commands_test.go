package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpis/persona-genesis/internal/core/patch"
)

func TestLoadEditsFromJSONString(t *testing.T) {
	edits, err := loadEdits(`[{"path":"credo.summary","op":"replace","value":"updated"}]`, "")
	require.NoError(t, err)

	require.Len(t, edits, 1)
	assert.Equal(t, "credo.summary", edits[0].Path)
	assert.Equal(t, patch.OpReplace, edits[0].Op)
	assert.Equal(t, "updated", edits[0].Value)
}

func TestLoadEditsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edits.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"path":"style.voice","op":"replace","value":"calm"}]`), 0o644))

	edits, err := loadEdits("", path)
	require.NoError(t, err)

	require.Len(t, edits, 1)
	assert.Equal(t, "style.voice", edits[0].Path)
}

func TestLoadEditsRejectsBothInputs(t *testing.T) {
	_, err := loadEdits(`[]`, "some-file.json")
	assert.Error(t, err)
}

func TestLoadEditsEmptyInput(t *testing.T) {
	edits, err := loadEdits("", "")
	require.NoError(t, err)
	assert.Nil(t, edits)
}

func TestLoadEditsInvalidJSON(t *testing.T) {
	_, err := loadEdits("not json", "")
	assert.Error(t, err)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmn", 10))
	// マルチバイト文字でもルーン単位で切り詰める
	assert.Equal(t, "あいう...", truncateString("あいうえおかきくけこ", 6))
}
