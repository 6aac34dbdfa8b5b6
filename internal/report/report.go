// Package report renders the final literature review document. The model
// writes the prose on the primary path; the fallback builds the same
// section structure from computed aggregates and depends on nothing
// external.
package report

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joelkehle/research-assistant/internal/gaps"
	"github.com/joelkehle/research-assistant/internal/llm"
	"github.com/joelkehle/research-assistant/internal/plan"
	"github.com/joelkehle/research-assistant/internal/search"
)

// Report is the rendered document plus its generation time.
type Report struct {
	Markdown    string    `json:"markdown"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Reporter struct {
	exec *llm.Executor
	now  func() time.Time
}

func New(exec *llm.Executor) *Reporter {
	return &Reporter{exec: exec, now: time.Now}
}

const reportPrompt = `Write a complete literature review report in Markdown for the research topic: %q

Plan summary: %s

Ranked papers (title, source, relevance, abstract excerpt):
%s

Research gaps:
%s

Research opportunities:
%s

Use exactly these sections, in order:
# Research Report: <topic>
## Executive Summary
## Research Methodology
## Literature Analysis
## Research Gaps
## Recommendations
## Conclusion

Be specific: cite papers by title, discuss the strongest findings first, and base the gaps and recommendations sections on the lists above. Do not invent papers.`

// Render produces the report. On model failure it switches to the
// deterministic fallback, which is complete even with zero results.
func (r *Reporter) Render(ctx context.Context, topic string, p plan.Plan, results []search.Result, g gaps.Gaps) Report {
	var papers strings.Builder
	for _, res := range results {
		fmt.Fprintf(&papers, "- %s (%s, %.2f): %s\n",
			res.Title, res.Source, res.RelevanceScore, truncateRunes(res.Abstract, 200))
	}
	if papers.Len() == 0 {
		papers.WriteString("(no papers found)\n")
	}

	prose, err := r.exec.GenerateText(ctx, "report_generation", llm.Request{
		Prompt: fmt.Sprintf(reportPrompt, topic, p.Summary,
			papers.String(), bulleted(g.Gaps), bulleted(g.Opportunities)),
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	now := r.now()
	if err != nil {
		log.Printf("research-assistant report_fallback topic=%q err=%q", topic, err.Error())
		return Report{Markdown: Fallback(topic, p, results, g, now), GeneratedAt: now}
	}
	return Report{Markdown: prose + footer(now), GeneratedAt: now}
}

// Fallback builds the full section structure from aggregates alone.
func Fallback(topic string, p plan.Plan, results []search.Result, g gaps.Gaps, now time.Time) string {
	papers, web := 0, 0
	var totalScore float64
	for _, r := range results {
		if r.Source == plan.SourceWeb {
			web++
		} else {
			papers++
		}
		totalScore += r.RelevanceScore
	}
	avg := 0.0
	if len(results) > 0 {
		avg = totalScore / float64(len(results))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Report: %s\n\n", topic)

	fmt.Fprintf(&b, "## Executive Summary\n\n")
	fmt.Fprintf(&b, "Research conducted on **%s** using a systematic literature review across the paper index and web sources. ", topic)
	fmt.Fprintf(&b, "This report covers %d sources and lists the identified research gaps and opportunities.\n\n", len(results))

	fmt.Fprintf(&b, "## Research Methodology\n\n")
	fmt.Fprintf(&b, "- **Search strategy**: %s\n", safe(p.Summary))
	fmt.Fprintf(&b, "- **Queries executed**: %d\n", len(p.SearchQueries))
	fmt.Fprintf(&b, "- **Sources analyzed**: %d total (%d paper index, %d web)\n", len(results), papers, web)
	fmt.Fprintf(&b, "- **Average relevance score**: %.2f\n\n", avg)

	fmt.Fprintf(&b, "## Literature Analysis\n\n")
	if len(results) == 0 {
		fmt.Fprintf(&b, "No sources were retrieved. The queries above should be re-run when the search services are reachable.\n\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, safe(r.Title))
		if len(r.Authors) > 0 {
			fmt.Fprintf(&b, "   - Authors: %s\n", strings.Join(r.Authors, ", "))
		}
		if r.Published != "" {
			fmt.Fprintf(&b, "   - Published: %s\n", r.Published)
		}
		if r.URL != "" {
			fmt.Fprintf(&b, "   - URL: %s\n", r.URL)
		}
		fmt.Fprintf(&b, "   - Source: %s, relevance %.2f\n", r.Source, r.RelevanceScore)
	}
	if len(results) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Research Gaps\n\n%s\n", bulleted(g.Gaps))
	fmt.Fprintf(&b, "## Recommendations\n\n%s\n", bulleted(g.Opportunities))

	fmt.Fprintf(&b, "## Conclusion\n\n")
	fmt.Fprintf(&b, "The collected literature on %s is summarized above. The gaps and recommendations sections indicate where further investigation is most likely to pay off.\n", topic)
	b.WriteString(footer(now))
	return b.String()
}

func bulleted(items []string) string {
	if len(items) == 0 {
		return "- None identified.\n"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return b.String()
}

func footer(now time.Time) string {
	return fmt.Sprintf("\n---\n*Report generated at %s*\n", now.Format(time.RFC3339))
}

func safe(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not available)"
	}
	return s
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
