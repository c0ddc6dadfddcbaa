package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestExtractVideoID は各URL形式からの動画ID抽出をテストする
func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch URL(パラメータ付き)", "https://youtube.com/watch?list=PL123&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"短縮URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"shorts URL", "https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed URL", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"旧v URL", "youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"スキームなし", "www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"非対応URL", "https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"IDが短すぎる", "https://youtu.be/short", "", false},
		{"空文字列", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractVideoID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

// TestParseManifest はマニフェストの行規則をテストする
func TestParseManifest(t *testing.T) {
	content := `# ペルソナ用の動画リスト
https://www.youtube.com/watch?v=dQw4w9WgXcQ

not-a-youtube-link
  # インデント付きコメント
https://youtu.be/abcdefghijk
`
	links := ParseManifest(content)
	assert.Len(t, links, 3)

	assert.True(t, links[0].Valid)
	assert.Equal(t, "dQw4w9WgXcQ", links[0].VideoID)
	assert.Equal(t, 2, links[0].LineNumber)

	assert.False(t, links[1].Valid)
	assert.Equal(t, "not-a-youtube-link", links[1].URL)

	assert.True(t, links[2].Valid)
	assert.Equal(t, "abcdefghijk", links[2].VideoID)
}

// TestParseManifest_Empty は空入力でリンクなしになることをテストする
func TestParseManifest_Empty(t *testing.T) {
	assert.Empty(t, ParseManifest(""))
	assert.Empty(t, ParseManifest("# コメントのみ\n\n"))
}
