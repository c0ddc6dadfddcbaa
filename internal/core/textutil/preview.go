package textutil

import "strings"

// Preview は表示用にテキストの先頭部分を切り出す。
// 可能な限り単語境界で切り、省略記号を付与する。
func Preview(text string, maxChars int) string {
	if text == "" {
		return ""
	}

	text = Normalize(text)
	if len(text) <= maxChars {
		return text
	}

	truncated := text[:maxChars]
	if idx := strings.LastIndex(truncated, " "); idx > maxChars*7/10 {
		truncated = truncated[:idx]
	}

	return strings.TrimRight(truncated, " ") + "..."
}
