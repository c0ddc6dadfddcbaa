package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSlugify は名前からスラッグへの変換をテストする
func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"基本形", "Tim Keller", "tim-keller"},
		{"アクセント除去", "Érik Müller", "erik-muller"},
		{"アンダースコアと連続空白", "some_name  here", "some-name-here"},
		{"記号除去", "Dr. John (PhD)!", "dr-john-phd"},
		{"連続ハイフンの圧縮", "a -- b", "a-b"},
		{"空入力のフォールバック", "", "persona"},
		{"記号のみのフォールバック", "***", "persona"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input, 50))
		})
	}
}

// TestSlugify_MaxLength は最大長での切り詰めをテストする
func TestSlugify_MaxLength(t *testing.T) {
	got := Slugify("aaaa bbbb cccc", 9)
	assert.Equal(t, "aaaa-bbbb", got)
	assert.LessOrEqual(t, len(got), 9)

	// 切り詰め位置が区切りに重なる場合は末尾ハイフンを残さない
	assert.Equal(t, "aaaa", Slugify("aaaa bbbb", 5))
}

// TestPreview は表示用プレビューの切り出しをテストする
func TestPreview(t *testing.T) {
	assert.Equal(t, "", Preview("", 100))
	assert.Equal(t, "short text", Preview("short text", 100))

	long := "The quick brown fox jumps over the lazy dog again and again"
	got := Preview(long, 30)
	assert.LessOrEqual(t, len(got), 33) // 本文30文字 + 省略記号
	assert.Contains(t, got, "...")
}
