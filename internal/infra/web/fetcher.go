package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/mpis/persona-genesis/internal/core/sources"
)

// userAgent は外部サイトへのリクエストで名乗るUA
const userAgent = "MPIS Genesis Bot/1.0"

// skipElements は本文抽出で無視する要素
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"iframe":   true,
	"svg":      true,
}

// blockElements は段落の区切りとして扱う要素
var blockElements = map[string]bool{
	"p":          true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"li":         true,
	"blockquote": true,
	"pre":        true,
	"td":         true,
	"article":    true,
	"section":    true,
}

// PageFetcher はWebページを取得し本文テキストを抽出する
type PageFetcher struct {
	client *http.Client
}

type pageFetcherOptions struct {
	client *http.Client
}

// PageFetcherOption は PageFetcher のオプション設定
type PageFetcherOption func(*pageFetcherOptions)

// WithPageHTTPClient はHTTPクライアントを差し替える
func WithPageHTTPClient(client *http.Client) PageFetcherOption {
	return func(o *pageFetcherOptions) {
		o.client = client
	}
}

// NewPageFetcher は新しい PageFetcher を作成する
func NewPageFetcher(opts ...PageFetcherOption) *PageFetcher {
	options := pageFetcherOptions{
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &PageFetcher{client: options.client}
}

var _ sources.PageSummarizer = (*PageFetcher)(nil)

// Summarize はページを取得し、ナビゲーションや装飾を除いた本文テキストを返す。
// 文字数の上限適用は呼び出し側が行う。
func (f *PageFetcher) Summarize(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page fetch failed with status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	return ExtractMainText(doc), nil
}

// ExtractMainText はHTMLツリーから本文テキストを組み立てる。
// ブロック要素ごとに1行とし、空白を正規化する。
func ExtractMainText(doc *html.Node) string {
	var blocks []string
	var current strings.Builder

	flush := func() {
		text := strings.Join(strings.Fields(current.String()), " ")
		if text != "" {
			blocks = append(blocks, text)
		}
		current.Reset()
	}

	var traverse func(n *html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}

		isBlock := n.Type == html.ElementNode && blockElements[n.Data]
		if isBlock {
			flush()
		}

		if n.Type == html.TextNode {
			current.WriteString(n.Data)
			current.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}

		if isBlock {
			flush()
		}
	}
	traverse(doc)
	flush()

	return strings.Join(blocks, "\n")
}
