package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joelkehle/research-assistant/internal/plan"
)

// ddgFallbackTimeout bounds the keyless fallback call.
const ddgFallbackTimeout = 10 * time.Second

// WebBackend searches the web through Tavily, degrading to the keyless
// DuckDuckGo instant-answer API when Tavily is unconfigured or fails.
type WebBackend struct {
	APIKey        string
	TavilyBaseURL string
	DDGBaseURL    string
	Client        *http.Client
	UserAgent     string
}

func (b *WebBackend) Source() plan.Source { return plan.SourceWeb }

func (b *WebBackend) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	if strings.TrimSpace(b.APIKey) != "" {
		results, err := b.searchTavily(ctx, query, maxResults)
		if err == nil {
			return results, nil
		}
		log.Printf("research-assistant web_search_degraded backend=tavily err=%q", err.Error())
	}
	return b.searchDuckDuckGo(ctx, query, maxResults)
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
	IncludeAns  bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title     string  `json:"title"`
		URL       string  `json:"url"`
		Content   string  `json:"content"`
		Score     float64 `json:"score"`
		Published string  `json:"published_date"`
	} `json:"results"`
}

func (b *WebBackend) searchTavily(ctx context.Context, query string, maxResults int) ([]Result, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      b.APIKey,
		Query:       query + " research paper academic study",
		MaxResults:  maxResults,
		SearchDepth: "advanced",
		IncludeAns:  true,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.TavilyBaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned HTTP %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing tavily response: %w", err)
	}

	var results []Result
	if strings.TrimSpace(parsed.Answer) != "" {
		results = append(results, Result{
			Title:          "AI-Generated Summary",
			Abstract:       parsed.Answer,
			Source:         plan.SourceWeb,
			RelevanceScore: 1.0,
		})
	}
	for _, item := range parsed.Results {
		results = append(results, Result{
			Title:          item.Title,
			Abstract:       item.Content,
			URL:            item.URL,
			Published:      item.Published,
			Source:         plan.SourceWeb,
			RelevanceScore: item.Score,
		})
	}
	return results, nil
}

type ddgResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (b *WebBackend) searchDuckDuckGo(ctx context.Context, query string, maxResults int) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, ddgFallbackTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query+" research paper")
	params.Set("format", "json")
	params.Set("no_redirect", "1")
	params.Set("no_html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.DDGBaseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned HTTP %d", resp.StatusCode)
	}

	var parsed ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing duckduckgo response: %w", err)
	}

	var results []Result
	if parsed.AbstractText != "" {
		title := parsed.Heading
		if title == "" {
			title = "Summary"
		}
		results = append(results, Result{
			Title:          title,
			Abstract:       parsed.AbstractText,
			URL:            parsed.AbstractURL,
			Source:         plan.SourceWeb,
			RelevanceScore: 0.8,
		})
	}
	for i, topic := range parsed.RelatedTopics {
		if i >= maxResults || topic.Text == "" {
			continue
		}
		title := truncateRunes(topic.Text, 100)
		results = append(results, Result{
			Title:          title,
			Abstract:       topic.Text,
			URL:            topic.FirstURL,
			Source:         plan.SourceWeb,
			RelevanceScore: 0.5,
		})
	}
	return results, nil
}
