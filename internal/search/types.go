// Package search fans planned queries out to the paper index and web
// backends, then merges and deduplicates what comes back.
package search

import (
	"context"

	"github.com/joelkehle/research-assistant/internal/plan"
)

// Result is one search hit. Identity for dedup purposes is the normalized
// title; the ranker later overwrites RelevanceScore and RelevanceReason.
type Result struct {
	Title           string      `json:"title"`
	Authors         []string    `json:"authors,omitempty"`
	Abstract        string      `json:"abstract_or_content,omitempty"`
	URL             string      `json:"url,omitempty"`
	Published       string      `json:"published,omitempty"`
	Source          plan.Source `json:"source"`
	RelevanceScore  float64     `json:"relevance_score"`
	RelevanceReason string      `json:"relevance_reason,omitempty"`
}

// Backend is one search service. Implementations must be safe for
// concurrent use; failures are reported, never panicked.
type Backend interface {
	Source() plan.Source
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}
