package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestSerpSearcherParsesOrganicResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sample teacher", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Write([]byte(`{
			"organic_results": [
				{"link": "https://example.com/a", "title": "A", "snippet": "first"},
				{"link": "https://example.com/b", "title": "B", "snippet": "second"}
			]
		}`))
	}))
	t.Cleanup(server.Close)

	searcher := NewSerpSearcher("test-key",
		WithSerpEndpoint(server.URL),
		WithSerpHTTPClient(server.Client()),
	)

	hits, err := searcher.Search(context.Background(), "sample teacher")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "https://example.com/a", hits[0].URL)
	assert.Equal(t, "second", hits[1].Snippet)
}

func TestSerpSearcherErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	searcher := NewSerpSearcher("bad-key",
		WithSerpEndpoint(server.URL),
		WithSerpHTTPClient(server.Client()),
	)

	_, err := searcher.Search(context.Background(), "query")
	assert.Error(t, err)
}

func TestWikipediaSearcherBuildsArticleURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "query", r.URL.Query().Get("action"))
		assert.Equal(t, "search", r.URL.Query().Get("list"))
		w.Write([]byte(`{
			"query": {
				"search": [
					{"title": "Sample Teacher", "snippet": "a biography"},
					{"title": "Teaching", "snippet": "the practice"}
				]
			}
		}`))
	}))
	t.Cleanup(server.Close)

	searcher := NewWikipediaSearcher(
		WithWikipediaEndpoint(server.URL),
		WithWikipediaHTTPClient(server.Client()),
	)

	hits, err := searcher.Search(context.Background(), "sample teacher")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Sample_Teacher", hits[0].URL)
	assert.Equal(t, "Sample Teacher", hits[0].Title)
}

func TestPageFetcherExtractsMainText(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Test</title><script>var x = 1;</script><style>body {}</style></head>
<body>
  <nav><a href="/">Home</a></nav>
  <article>
    <h1>The   Craft</h1>
    <p>Learning happens in  community.</p>
    <p>Practice shapes understanding.</p>
  </article>
  <footer>copyright</footer>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MPIS Genesis Bot/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)

	fetcher := NewPageFetcher(WithPageHTTPClient(server.Client()))

	text, err := fetcher.Summarize(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "The Craft")
	assert.Contains(t, text, "Learning happens in community.")
	assert.Contains(t, text, "Practice shapes understanding.")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "copyright")
}

func TestExtractMainTextBlockSeparation(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><p>one</p><p>two</p></body></html>`))
	require.NoError(t, err)

	assert.Equal(t, "one\ntwo", ExtractMainText(doc))
}
