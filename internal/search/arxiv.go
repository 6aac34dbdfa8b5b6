package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joelkehle/research-assistant/internal/plan"
)

// ArxivBackend queries the arXiv Atom API as the paper index.
type ArxivBackend struct {
	// BaseURL is the query endpoint; tests substitute an httptest server.
	BaseURL   string
	Client    *http.Client
	UserAgent string
}

func (b *ArxivBackend) Source() plan.Source { return plan.SourcePaperIndex }

func (b *ArxivBackend) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	url := fmt.Sprintf("%s?search_query=all:%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		b.BaseURL, strings.Join(terms, "+"), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var results []Result
	for _, entry := range feed.Entries {
		r := Result{
			Title:    strings.Join(strings.Fields(entry.Title), " "),
			Abstract: strings.TrimSpace(entry.Summary),
			URL:      strings.TrimSpace(entry.ID),
			Source:   plan.SourcePaperIndex,
		}
		for _, a := range entry.Authors {
			r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			r.Published = t.Format("2006-01-02")
		}
		results = append(results, r)
	}
	return results, nil
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}
