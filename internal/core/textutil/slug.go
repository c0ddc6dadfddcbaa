package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSlugMaxLength はスラッグのデフォルト最大長
const DefaultSlugMaxLength = 50

var (
	slugSeparatorPattern = regexp.MustCompile(`[\s_]+`)
	slugInvalidPattern   = regexp.MustCompile(`[^a-z0-9-]`)
	slugHyphenPattern    = regexp.MustCompile(`-+`)

	// accentStripper はNFD分解後に結合文字（アクセント記号等）を除去する
	accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slugify は名前をURL安全なスラッグに変換する。
// ダイアクリティカルマークを除去し、小文字化・ハイフン区切りに正規化する。
// 変換結果が空になった場合は "persona" を返す。
func Slugify(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultSlugMaxLength
	}

	stripped, _, err := transform.String(accentStripper, text)
	if err == nil {
		text = stripped
	}

	text = strings.ToLower(text)
	text = slugSeparatorPattern.ReplaceAllString(text, "-")
	text = slugInvalidPattern.ReplaceAllString(text, "")
	text = slugHyphenPattern.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-")

	if len(text) > maxLength {
		text = strings.TrimRight(text[:maxLength], "-")
	}

	if text == "" {
		return "persona"
	}
	return text
}
