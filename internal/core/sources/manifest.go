package sources

import (
	"regexp"
	"strings"
)

// 動画IDは現行11文字だが、形式の揺れに備えて10〜12文字を受ける
var youtubePatterns = []*regexp.Regexp{
	// 標準のwatch URL: youtube.com/watch?v=VIDEO_ID
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?(?:.*&)?v=([a-zA-Z0-9_-]{10,12})`),
	// 短縮URL: youtu.be/VIDEO_ID
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]{10,12})`),
	// ショート動画: youtube.com/shorts/VIDEO_ID
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{10,12})`),
	// 埋め込みURL: youtube.com/embed/VIDEO_ID
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{10,12})`),
	// 旧形式: youtube.com/v/VIDEO_ID
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]{10,12})`),
}

// ExtractVideoID は各種YouTube URL形式から動画IDを取り出す。
// 対応しない形式の場合は ok=false を返す。
func ExtractVideoID(url string) (string, bool) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", false
	}
	for _, pattern := range youtubePatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ManifestLink はリンクマニフェストの1行を表す
type ManifestLink struct {
	URL        string
	VideoID    string
	LineNumber int
	Valid      bool
}

// ParseManifest はyoutube_links.txt形式の内容を解析する。
// 空行と#で始まる行は無視し、残りの各行を1 URLとして扱う。
func ParseManifest(content string) []ManifestLink {
	var links []ManifestLink

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		videoID, ok := ExtractVideoID(line)
		links = append(links, ManifestLink{
			URL:        line,
			VideoID:    videoID,
			LineNumber: i + 1,
			Valid:      ok,
		})
	}

	return links
}
