package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalize_WhitespaceVariants はUnicode空白バリアントの統一をテストする
func TestNormalize_WhitespaceVariants(t *testing.T) {
	input := "hello world　and more"
	assert.Equal(t, "hello world and more", Normalize(input))
}

// TestNormalize_LineEndings は改行コードの統一をテストする
func TestNormalize_LineEndings(t *testing.T) {
	assert.Equal(t, "a\nb\nc", Normalize("a\r\nb\rc"))
}

// TestNormalize_BlankLines は過剰な空行の圧縮をテストする
func TestNormalize_BlankLines(t *testing.T) {
	assert.Equal(t, "a\n\nb", Normalize("a\n\n\n\n\nb"))
}

// TestNormalize_Empty は空入力をテストする
func TestNormalize_Empty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   \n\t  "))
}

// TestFingerprint_WhitespaceEquivalence は空白の揺れだけが異なるテキストが
// 同一フィンガープリントになることをテストする（重複判定の前提条件）
func TestFingerprint_WhitespaceEquivalence(t *testing.T) {
	base := "The quick brown fox\njumps over the lazy dog."
	variants := []string{
		"The  quick \t brown fox\r\njumps over the lazy dog.",
		"The quick brown fox\njumps over the lazy dog.\n\n\n",
		"  The quick brown fox\n jumps over the lazy dog.  ",
	}

	want := Fingerprint(base)
	require.Len(t, want, 64, "SHA-256の16進表現は64文字")

	for _, v := range variants {
		assert.Equal(t, want, Fingerprint(v))
	}
}

// TestFingerprint_DistinctContent は内容が異なれば異なるダイジェストになることをテストする
func TestFingerprint_DistinctContent(t *testing.T) {
	assert.NotEqual(t, Fingerprint("alpha"), Fingerprint("beta"))
}

// TestFingerprint_EmptyInput は空入力でも安定したダイジェストを返すことをテストする
func TestFingerprint_EmptyInput(t *testing.T) {
	// 空文字列のSHA-256
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Fingerprint(""),
	)
}
