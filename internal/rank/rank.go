// Package rank scores search results against the topic and sorts them by
// relevance. The model is the primary scorer; keyword overlap is the
// always-available fallback.
package rank

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/joelkehle/research-assistant/internal/llm"
	"github.com/joelkehle/research-assistant/internal/search"
)

// DefaultBatchSize is how many results go into one scoring call.
const DefaultBatchSize = 5

// NeutralScore is assigned when the topic has no terms to overlap with.
const NeutralScore = 0.5

type Ranker struct {
	exec      *llm.Executor
	batchSize int
}

func New(exec *llm.Executor, batchSize int) *Ranker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Ranker{exec: exec, batchSize: batchSize}
}

const rankPrompt = `Score each paper below for relevance to the research topic: %q

Papers (index, title, abstract excerpt):
%s

Scoring criteria: direct relevance to the topic, quality of contribution, recency.

Return JSON:
{"scores": [{"index": 0, "score": 0.95, "reason": "one-line justification"}]}

Scores are floats in [0,1]. Include every index exactly once.`

type scoredItem struct {
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Rank scores results in batches and returns them sorted descending by
// relevance. A failed batch falls back to keyword-overlap scores for that
// batch; ties keep their relative input order.
func (r *Ranker) Rank(ctx context.Context, results []search.Result, topic string) []search.Result {
	if len(results) == 0 {
		return results
	}
	out := make([]search.Result, len(results))
	copy(out, results)

	for start := 0; start < len(out); start += r.batchSize {
		end := start + r.batchSize
		if end > len(out) {
			end = len(out)
		}
		batch := out[start:end]
		if err := r.scoreBatch(ctx, batch, topic); err != nil {
			log.Printf("research-assistant rank_fallback batch_start=%d err=%q", start, err.Error())
			for i := range batch {
				batch[i].RelevanceScore = FallbackScore(topic, batch[i].Title)
				batch[i].RelevanceReason = "keyword overlap (model scoring unavailable)"
			}
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].RelevanceScore > out[b].RelevanceScore
	})
	return out
}

func (r *Ranker) scoreBatch(ctx context.Context, batch []search.Result, topic string) error {
	var sb strings.Builder
	for i, res := range batch {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i, res.Title, truncateRunes(res.Abstract, 300))
	}

	var parsed struct {
		Scores []scoredItem `json:"scores"`
	}
	err := r.exec.GenerateJSON(ctx, "ranking", llm.Request{
		Prompt:      fmt.Sprintf(rankPrompt, topic, sb.String()),
		Temperature: 0.2,
		MaxTokens:   2000,
	}, &parsed, func() error {
		if len(parsed.Scores) == 0 {
			return fmt.Errorf("no scores returned")
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, s := range parsed.Scores {
		if s.Index < 0 || s.Index >= len(batch) {
			continue
		}
		batch[s.Index].RelevanceScore = clip01(s.Score)
		batch[s.Index].RelevanceReason = s.Reason
	}
	return nil
}

// FallbackScore is the fraction of the topic's whitespace-split terms that
// appear as substrings of the lowered title, clipped to 1.0. No terms
// yields the neutral score.
func FallbackScore(topic, title string) float64 {
	terms := strings.Fields(strings.ToLower(topic))
	if len(terms) == 0 {
		return NeutralScore
	}
	lowered := strings.ToLower(title)
	hits := 0
	for _, t := range terms {
		if strings.Contains(lowered, t) {
			hits++
		}
	}
	return clip01(float64(hits) / float64(len(terms)))
}

// truncateRunes caps s at n runes; cutting by byte index could split a
// multi-byte rune and feed invalid UTF-8 into the prompt.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
