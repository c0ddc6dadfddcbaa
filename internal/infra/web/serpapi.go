package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mpis/persona-genesis/internal/core/sources"
)

const (
	// serpAPIEndpoint はSerpAPIの検索エンドポイント
	serpAPIEndpoint = "https://serpapi.com/search"

	// DefaultSearchLimit は検索結果のデフォルト取得件数
	DefaultSearchLimit = 20

	// DefaultTimeout はWebリクエストのデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second
)

// SerpSearcher はSerpAPIを使ったWeb検索
type SerpSearcher struct {
	apiKey   string
	endpoint string
	limit    int
	client   *http.Client
}

type serpOptions struct {
	endpoint string
	limit    int
	client   *http.Client
}

// SerpOption は SerpSearcher のオプション設定
type SerpOption func(*serpOptions)

// WithSerpEndpoint は検索エンドポイントを上書きする
func WithSerpEndpoint(endpoint string) SerpOption {
	return func(o *serpOptions) {
		o.endpoint = endpoint
	}
}

// WithSerpLimit は取得件数を上書きする
func WithSerpLimit(limit int) SerpOption {
	return func(o *serpOptions) {
		o.limit = limit
	}
}

// WithSerpHTTPClient はHTTPクライアントを差し替える
func WithSerpHTTPClient(client *http.Client) SerpOption {
	return func(o *serpOptions) {
		o.client = client
	}
}

// NewSerpSearcher は新しい SerpSearcher を作成する
func NewSerpSearcher(apiKey string, opts ...SerpOption) *SerpSearcher {
	options := serpOptions{
		endpoint: serpAPIEndpoint,
		limit:    DefaultSearchLimit,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &SerpSearcher{
		apiKey:   apiKey,
		endpoint: options.endpoint,
		limit:    options.limit,
		client:   options.client,
	}
}

var _ sources.Searcher = (*SerpSearcher)(nil)

type serpResponse struct {
	OrganicResults []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search はクエリのオーガニック検索結果を返す
func (s *SerpSearcher) Search(ctx context.Context, query string) ([]sources.SearchHit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(s.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	var parsed serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]sources.SearchHit, 0, len(parsed.OrganicResults))
	for _, item := range parsed.OrganicResults {
		hits = append(hits, sources.SearchHit{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
		})
	}

	return hits, nil
}
