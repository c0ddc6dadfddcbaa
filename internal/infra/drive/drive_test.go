package drive

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiles(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "folder1")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.docx"), []byte("zip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))

	folder := NewLocalFolder(WithBaseDir(base))

	files, err := folder.ListFiles(context.Background(), "folder1")
	require.NoError(t, err)
	require.Len(t, files, 2)

	byName := map[string]string{}
	for _, f := range files {
		byName[f.Name] = f.ContentType
	}
	assert.Equal(t, "text/plain", byName["notes.txt"])
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", byName["report.docx"])
}

func TestReadText(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "f"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "f", "a.txt"), []byte("content here"), 0o644))

	folder := NewLocalFolder(WithBaseDir(base))

	text, err := folder.ReadText(context.Background(), filepath.Join("f", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content here", text)
}

func TestResolveRejectsTraversal(t *testing.T) {
	folder := NewLocalFolder(WithBaseDir(t.TempDir()))

	_, err := folder.ReadBytes(context.Background(), "../secret")
	assert.Error(t, err)

	_, err = folder.ReadBytes(context.Background(), "/etc/passwd")
	assert.Error(t, err)
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r><w:r><w:t> continues.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
    <w:p></w:p>
  </w:body>
</w:document>`)

	text, err := NewDocxExtractor().ExtractDocx(data)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph continues.\nSecond paragraph.", text)
}

func TestExtractDocxMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = NewDocxExtractor().ExtractDocx(buf.Bytes())
	assert.Error(t, err)
}

func TestExtractDocxInvalidArchive(t *testing.T) {
	_, err := NewDocxExtractor().ExtractDocx([]byte("not a zip"))
	assert.Error(t, err)
}
