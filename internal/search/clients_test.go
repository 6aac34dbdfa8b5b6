package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/research-assistant/internal/plan"
)

const arxivFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2101.00001v2</id>
    <title>Quantum Error Correction
  with Surface Codes</title>
    <summary> A survey of surface codes. </summary>
    <published>2021-01-04T18:00:00Z</published>
    <author><name>Alice Example</name></author>
    <author><name>Bob Example</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2102.00002v1</id>
    <title>Decoders for Topological Codes</title>
    <summary>Decoder benchmarks.</summary>
    <published>not-a-date</published>
  </entry>
</feed>`

func TestArxivBackendParsesFeed(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(arxivFeedFixture))
	}))
	defer srv.Close()

	b := &ArxivBackend{BaseURL: srv.URL, Client: srv.Client(), UserAgent: "test-agent"}
	results, err := b.Search(context.Background(), "quantum error correction", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Contains(t, gotQuery, "search_query=all:quantum+error+correction")
	assert.Contains(t, gotQuery, "max_results=10")

	first := results[0]
	assert.Equal(t, "Quantum Error Correction with Surface Codes", first.Title)
	assert.Equal(t, "A survey of surface codes.", first.Abstract)
	assert.Equal(t, []string{"Alice Example", "Bob Example"}, first.Authors)
	assert.Equal(t, "2021-01-04", first.Published)
	assert.Equal(t, plan.SourcePaperIndex, first.Source)

	assert.Empty(t, results[1].Published, "unparsable date left blank")
}

func TestArxivBackendRejectsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := &ArxivBackend{BaseURL: srv.URL, Client: srv.Client(), UserAgent: "test-agent"}
	_, err := b.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestWebBackendTavily(t *testing.T) {
	var gotBody tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"answer": "Surface codes dominate current practice.",
			"results": []map[string]any{
				{"title": "Surface Codes Explained", "url": "https://example.org/sc", "content": "intro", "score": 0.7},
			},
		})
	}))
	defer srv.Close()

	b := &WebBackend{APIKey: "tvly-test", TavilyBaseURL: srv.URL, Client: srv.Client(), UserAgent: "test-agent"}
	results, err := b.Search(context.Background(), "surface codes", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "surface codes research paper academic study", gotBody.Query)
	assert.Equal(t, 5, gotBody.MaxResults)
	assert.Equal(t, "advanced", gotBody.SearchDepth)

	assert.Equal(t, "AI-Generated Summary", results[0].Title)
	assert.Equal(t, 1.0, results[0].RelevanceScore)
	assert.Equal(t, "Surface Codes Explained", results[1].Title)
	assert.Equal(t, 0.7, results[1].RelevanceScore)
	assert.Equal(t, plan.SourceWeb, results[1].Source)
}

func TestWebBackendFallsBackToDuckDuckGo(t *testing.T) {
	tavily := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer tavily.Close()
	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("q"), "research paper")
		json.NewEncoder(w).Encode(map[string]any{
			"Heading":      "Surface code",
			"AbstractText": "A quantum error correcting code.",
			"AbstractURL":  "https://example.org/wiki",
			"RelatedTopics": []map[string]any{
				{"Text": "Toric code", "FirstURL": "https://example.org/toric"},
				{"Text": ""},
			},
		})
	}))
	defer ddg.Close()

	b := &WebBackend{
		APIKey:        "tvly-test",
		TavilyBaseURL: tavily.URL,
		DDGBaseURL:    ddg.URL,
		Client:        http.DefaultClient,
		UserAgent:     "test-agent",
	}
	results, err := b.Search(context.Background(), "surface codes", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Surface code", results[0].Title)
	assert.Equal(t, 0.8, results[0].RelevanceScore)
	assert.Equal(t, "Toric code", results[1].Title)
	assert.Equal(t, 0.5, results[1].RelevanceScore)
}

func TestWebBackendKeylessGoesStraightToDuckDuckGo(t *testing.T) {
	called := false
	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		json.NewEncoder(w).Encode(map[string]any{"AbstractText": "x", "Heading": "X"})
	}))
	defer ddg.Close()

	b := &WebBackend{DDGBaseURL: ddg.URL, Client: http.DefaultClient, UserAgent: "test-agent"}
	results, err := b.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.True(t, called)
	require.Len(t, results, 1)
}
