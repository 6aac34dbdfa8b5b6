// Package gaps asks the model what the ranked literature does not cover.
package gaps

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joelkehle/research-assistant/internal/llm"
	"github.com/joelkehle/research-assistant/internal/search"
)

// DefaultTopK is how many top results feed the analysis when the caller
// does not say otherwise.
const DefaultTopK = 10

// Gaps holds identified research gaps and follow-on opportunities. Both
// lists are always non-empty.
type Gaps struct {
	Gaps          []string `json:"gaps"`
	Opportunities []string `json:"opportunities"`
}

type Analyzer struct {
	exec *llm.Executor
	topK int
}

func New(exec *llm.Executor, topK int) *Analyzer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Analyzer{exec: exec, topK: topK}
}

const gapsPrompt = `Identify research gaps based on the top papers found for the topic: %q

Papers (title, contribution, limitation):
%s

Consider: topics not covered by these papers, methodological weaknesses, unexplored applications, and open questions the papers themselves raise.

Return JSON:
{"gaps": ["specific gap statements"], "opportunities": ["actionable research opportunities"]}`

// Analyze summarizes the top-K results as title/contribution/limitation
// triples and asks the model for gaps. On failure it returns the fixed
// single-gap fallback; the result is never empty.
func (a *Analyzer) Analyze(ctx context.Context, results []search.Result, topic string) Gaps {
	top := results
	if len(top) > a.topK {
		top = top[:a.topK]
	}

	var sb strings.Builder
	for _, r := range top {
		contribution := truncateRunes(r.Abstract, 200)
		limitation := r.RelevanceReason
		if limitation == "" {
			limitation = "not assessed"
		}
		fmt.Fprintf(&sb, "- %s\n  contribution: %s\n  limitation: %s\n", r.Title, contribution, limitation)
	}
	if sb.Len() == 0 {
		sb.WriteString("(no papers found)\n")
	}

	var out Gaps
	err := a.exec.GenerateJSON(ctx, "gap_analysis", llm.Request{
		Prompt:      fmt.Sprintf(gapsPrompt, topic, sb.String()),
		Temperature: 0.3,
		MaxTokens:   2000,
	}, &out, func() error {
		if len(out.Gaps) == 0 {
			return fmt.Errorf("no gaps returned")
		}
		return nil
	})
	if err != nil {
		log.Printf("research-assistant gaps_fallback topic=%q err=%q", topic, err.Error())
		return Fallback(topic)
	}
	if len(out.Opportunities) == 0 {
		out.Opportunities = Fallback(topic).Opportunities
	}
	return out
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

// Fallback is the no-model result: one explanatory gap and one generic
// opportunity.
func Fallback(topic string) Gaps {
	return Gaps{
		Gaps: []string{
			fmt.Sprintf("Automated gap analysis was not possible for %q; the collected literature should be reviewed manually.", topic),
		},
		Opportunities: []string{
			"Conduct a systematic review of the collected papers to identify underexplored directions.",
		},
	}
}
