package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mpis/persona-genesis/internal/core/sources"
)

const (
	// timedTextEndpoint はYouTubeの字幕取得エンドポイント
	timedTextEndpoint = "https://video.google.com/timedtext"

	// DefaultTimeout は字幕取得のデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second
)

// transcriptLanguages は字幕を探す言語の優先順
var transcriptLanguages = []string{"en", "ru", "de", "fr", "es"}

// TranscriptFetcher はYouTube動画の字幕テキストを取得する
type TranscriptFetcher struct {
	client    *http.Client
	endpoint  string
	languages []string
	logger    *slog.Logger
}

type fetcherOptions struct {
	client    *http.Client
	endpoint  string
	languages []string
	logger    *slog.Logger
}

// FetcherOption は TranscriptFetcher のオプション設定
type FetcherOption func(*fetcherOptions)

// WithHTTPClient はHTTPクライアントを差し替える
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(o *fetcherOptions) {
		o.client = client
	}
}

// WithEndpoint は字幕エンドポイントを上書きする
func WithEndpoint(endpoint string) FetcherOption {
	return func(o *fetcherOptions) {
		o.endpoint = endpoint
	}
}

// WithLanguages は字幕言語の優先順を上書きする
func WithLanguages(languages []string) FetcherOption {
	return func(o *fetcherOptions) {
		o.languages = languages
	}
}

// WithLogger はロガーを上書きする
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(o *fetcherOptions) {
		o.logger = logger
	}
}

var _ sources.TranscriptFetcher = (*TranscriptFetcher)(nil)

// NewTranscriptFetcher は新しい TranscriptFetcher を作成する
func NewTranscriptFetcher(opts ...FetcherOption) *TranscriptFetcher {
	options := fetcherOptions{
		client:    &http.Client{Timeout: DefaultTimeout},
		endpoint:  timedTextEndpoint,
		languages: transcriptLanguages,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &TranscriptFetcher{
		client:    options.client,
		endpoint:  options.endpoint,
		languages: options.languages,
		logger:    options.logger,
	}
}

type timedText struct {
	XMLName xml.Name   `xml:"transcript"`
	Texts   []textNode `xml:"text"`
}

type textNode struct {
	Content string `xml:",chardata"`
}

// FetchTranscript は優先言語の順に字幕を探し、結合済みテキストを返す。
// どの言語にも字幕がない場合は空文字列を返す。
func (f *TranscriptFetcher) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	for _, lang := range f.languages {
		transcript, err := f.fetchLanguage(ctx, videoID, lang)
		if err != nil {
			return "", err
		}
		if transcript != "" {
			return transcript, nil
		}
	}

	f.logger.Debug("字幕が見つかりませんでした", slog.String("videoID", videoID))
	return "", nil
}

func (f *TranscriptFetcher) fetchLanguage(ctx context.Context, videoID, lang string) (string, error) {
	query := url.Values{}
	query.Set("v", videoID)
	query.Set("lang", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build transcript request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript response: %w", err)
	}

	if len(body) == 0 {
		return "", nil
	}

	var parsed timedText
	if err := xml.Unmarshal(body, &parsed); err != nil {
		// 字幕なしのときは空ボディや非XMLが返ることがある
		return "", nil
	}

	parts := make([]string, 0, len(parsed.Texts))
	for _, node := range parsed.Texts {
		text := strings.TrimSpace(html.UnescapeString(node.Content))
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
