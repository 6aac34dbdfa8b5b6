// Package plan turns a (possibly refined) topic into a structured research
// plan. The model writes the plan; deterministic repair guarantees the
// searcher always receives usable queries.
package plan

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joelkehle/research-assistant/internal/llm"
)

// Source names a search backend class.
type Source string

const (
	SourcePaperIndex Source = "paper_index"
	SourceWeb        Source = "web"
)

// Query is one planned search.
type Query struct {
	Text       string   `json:"query"`
	Sources    []Source `json:"sources"`
	MaxResults int      `json:"max_results"`
	Purpose    string   `json:"purpose"`
}

// Plan is the planner output. Objectives and Methodology are free-form
// model content; SearchQueries is the machine-consumed part and is always
// non-empty after repair.
type Plan struct {
	Summary       string         `json:"summary"`
	Objectives    map[string]any `json:"objectives,omitempty"`
	SearchQueries []Query        `json:"search_queries"`
	Methodology   map[string]any `json:"methodology,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// DefaultMaxResults is the per-query result ceiling applied when neither
// the model nor the caller supplies one.
const DefaultMaxResults = 10

type Planner struct {
	exec       *llm.Executor
	maxResults int
}

func New(exec *llm.Executor, maxResults int) *Planner {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Planner{exec: exec, maxResults: maxResults}
}

const planPrompt = `You are an expert research planning specialist. Create a structured research plan for a literature review.

RESEARCH TOPIC: %s

ADDITIONAL CONTEXT & CLARIFICATIONS: %s

Return JSON:
{
  "summary": "one-paragraph plan summary",
  "objectives": {
    "primary": "main research objective",
    "secondary": ["supporting objectives"]
  },
  "search_queries": [
    {
      "query": "exact search string",
      "purpose": "what this query finds",
      "sources": ["paper_index", "web"],
      "max_results": 10
    }
  ],
  "methodology": {
    "approach": "how to conduct the review",
    "evaluation_criteria": ["relevance", "quality", "recency"],
    "synthesis_method": "how findings are combined"
  }
}

Produce 5-10 specific search queries covering foundations, state of the art, surveys, challenges, and applications. Every element must be actionable.`

// Create asks the model for a plan, then repairs it. On total failure it
// returns the deterministic fallback plan together with the error; the plan
// is always complete either way.
func (p *Planner) Create(ctx context.Context, topic, context_ string) (Plan, error) {
	if strings.TrimSpace(context_) == "" {
		context_ = "No additional context provided."
	}
	var out Plan
	err := p.exec.GenerateJSON(ctx, "planning", llm.Request{
		Prompt:      fmt.Sprintf(planPrompt, topic, context_),
		Temperature: 0.3,
		MaxTokens:   4000,
	}, &out, nil)
	if err != nil {
		log.Printf("research-assistant plan_fallback topic=%q err=%q", topic, err.Error())
		return Fallback(topic, p.maxResults), fmt.Errorf("planning: %w", err)
	}
	Repair(&out, topic, p.maxResults)
	return out, nil
}

// Repair enforces the two plan invariants regardless of what the model
// returned: a non-empty query list and complete per-query fields.
// maxResults is the per-query default; zero or negative means
// DefaultMaxResults.
func Repair(p *Plan, topic string, maxResults int) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if len(p.SearchQueries) == 0 {
		p.SearchQueries = DefaultQueries(topic, maxResults)
	}
	for i := range p.SearchQueries {
		q := &p.SearchQueries[i]
		if len(q.Sources) == 0 {
			q.Sources = []Source{SourcePaperIndex, SourceWeb}
		}
		if q.MaxResults <= 0 {
			q.MaxResults = maxResults
		}
		if strings.TrimSpace(q.Purpose) == "" {
			q.Purpose = "General search"
		}
	}
	if strings.TrimSpace(p.Summary) == "" {
		p.Summary = "Comprehensive research plan for: " + topic
	}
}

// DefaultQueries derives the five-query template from the topic's first
// five keywords.
func DefaultQueries(topic string, maxResults int) []Query {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	keywords := strings.Fields(strings.NewReplacer(",", "", ".", "").Replace(strings.ToLower(topic)))
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	main := strings.Join(keywords, " ")
	both := []Source{SourcePaperIndex, SourceWeb}
	return []Query{
		{Text: topic, Purpose: "Direct topic search", Sources: both, MaxResults: maxResults},
		{Text: main + " state of the art", Purpose: "Find latest developments", Sources: both, MaxResults: maxResults},
		{Text: main + " survey", Purpose: "Find survey and review papers", Sources: both, MaxResults: maxResults},
		{Text: main + " challenges", Purpose: "Identify research challenges", Sources: both, MaxResults: maxResults},
		{Text: main + " applications", Purpose: "Find practical applications", Sources: both, MaxResults: maxResults},
	}
}

// Fallback is the complete no-model plan.
func Fallback(topic string, maxResults int) Plan {
	return Plan{
		Summary: "Basic research plan for: " + topic,
		Objectives: map[string]any{
			"primary": "Investigate the current state of " + topic,
			"secondary": []string{
				"Identify key papers and contributors",
				"Understand main methodologies",
				"Find research gaps",
			},
		},
		SearchQueries: DefaultQueries(topic, maxResults),
		Methodology: map[string]any{
			"approach":            "Systematic literature review",
			"evaluation_criteria": []string{"relevance", "quality", "recency", "citations"},
			"synthesis_method":    "Thematic analysis",
		},
	}
}
