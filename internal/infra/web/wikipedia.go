package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mpis/persona-genesis/internal/core/sources"
)

const (
	// wikipediaAPIEndpoint はWikipedia検索APIのエンドポイント
	wikipediaAPIEndpoint = "https://en.wikipedia.org/w/api.php"

	// wikipediaSearchLimit は代替検索で取得する記事数
	wikipediaSearchLimit = 5
)

// WikipediaSearcher はSerpAPI未設定時の代替検索。
// Wikipedia検索APIで記事を探し、記事URLを検索結果として返す。
type WikipediaSearcher struct {
	endpoint string
	client   *http.Client
}

type wikipediaOptions struct {
	endpoint string
	client   *http.Client
}

// WikipediaOption は WikipediaSearcher のオプション設定
type WikipediaOption func(*wikipediaOptions)

// WithWikipediaEndpoint はAPIエンドポイントを上書きする
func WithWikipediaEndpoint(endpoint string) WikipediaOption {
	return func(o *wikipediaOptions) {
		o.endpoint = endpoint
	}
}

// WithWikipediaHTTPClient はHTTPクライアントを差し替える
func WithWikipediaHTTPClient(client *http.Client) WikipediaOption {
	return func(o *wikipediaOptions) {
		o.client = client
	}
}

// NewWikipediaSearcher は新しい WikipediaSearcher を作成する
func NewWikipediaSearcher(opts ...WikipediaOption) *WikipediaSearcher {
	options := wikipediaOptions{
		endpoint: wikipediaAPIEndpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &WikipediaSearcher{
		endpoint: options.endpoint,
		client:   options.client,
	}
}

var _ sources.Searcher = (*WikipediaSearcher)(nil)

type wikipediaResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// Search はWikipediaの記事検索結果を返す
func (s *WikipediaSearcher) Search(ctx context.Context, query string) ([]sources.SearchHit, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", fmt.Sprintf("%d", wikipediaSearchLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia request failed with status %d", resp.StatusCode)
	}

	var parsed wikipediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode wikipedia response: %w", err)
	}

	hits := make([]sources.SearchHit, 0, len(parsed.Query.Search))
	for _, item := range parsed.Query.Search {
		titlePath := strings.ReplaceAll(item.Title, " ", "_")
		hits = append(hits, sources.SearchHit{
			URL:     "https://en.wikipedia.org/wiki/" + titlePath,
			Title:   item.Title,
			Snippet: item.Snippet,
		})
	}

	return hits, nil
}
