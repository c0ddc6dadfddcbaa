package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	// unicodeSpacePattern はNBSPや全角スペース等のUnicode空白バリアント
	unicodeSpacePattern = regexp.MustCompile(`[\x{00A0}\x{2000}-\x{200B}\x{2028}\x{2029}\x{3000}]`)

	// blankLinePattern は3行以上連続する改行
	blankLinePattern = regexp.MustCompile(`\n{3,}`)

	// inlineSpacePattern は行内のスペース・タブの連続
	inlineSpacePattern = regexp.MustCompile(`[ \t]+`)
)

// Normalize はテキストをハッシュ計算・チャンク化に適した正規形に変換する。
// Unicode空白バリアントを半角スペースに統一し、改行コードをLFに揃え、
// 過剰な空行を最大1行に圧縮した上で前後の空白を除去する。
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = unicodeSpacePattern.ReplaceAllString(text, " ")

	// 改行コードの統一
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = blankLinePattern.ReplaceAllString(text, "\n\n")
	text = inlineSpacePattern.ReplaceAllString(text, " ")

	// 各行の前後空白を除去
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	return strings.TrimSpace(text)
}

// Fingerprint は正規化済みテキストのSHA-256ハッシュを小文字16進で返す。
// ジョブ内での重複取り込み判定（冪等性チェック）に使用する。
func Fingerprint(text string) string {
	normalized := Normalize(text)
	digest := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(digest[:])
}
