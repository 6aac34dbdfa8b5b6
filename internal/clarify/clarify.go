// Package clarify generates clarifying questions for an ambiguous topic and
// folds the caller's answers back into an enhanced research context.
package clarify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/joelkehle/research-assistant/internal/classify"
	"github.com/joelkehle/research-assistant/internal/llm"
)

// Question is one clarifying question. IDs are sequential from 1 within a
// single generation; they are not stable across generations.
type Question struct {
	ID            int    `json:"id"`
	Category      string `json:"category"`
	Text          string `json:"question"`
	Rationale     string `json:"why_important"`
	ExampleAnswer string `json:"example_answer,omitempty"`
	Priority      string `json:"priority"`
}

// AnswerSet maps question id to answer text. Partial sets are fine.
type AnswerSet map[int]string

// EnhancedContext is the synthesized refinement of the original topic.
// RefinedTopic is always usable, even on total failure.
type EnhancedContext struct {
	RefinedTopic          string   `json:"refined_topic"`
	ScopeBoundaries       string   `json:"scope_boundaries,omitempty"`
	TechnicalRequirements string   `json:"technical_requirements,omitempty"`
	ApplicationContext    string   `json:"application_context,omitempty"`
	Constraints           string   `json:"constraints,omitempty"`
	Priorities            []string `json:"research_priorities,omitempty"`
	Err                   string   `json:"error,omitempty"`
}

type Clarifier struct {
	exec *llm.Executor
}

func New(exec *llm.Executor) *Clarifier {
	return &Clarifier{exec: exec}
}

const generatePrompt = `You are an expert research consultant. Generate 2-8 clarifying questions for this research topic:

TOPIC: %s
ANALYSIS: %s

Create questions in these categories:
1. Scope (time period, geographic boundaries, what to include/exclude)
2. Technical depth (introductory, detailed, expert-level)
3. Application focus (academic, practical, business)
4. Specific outcomes desired

Return JSON:
{
  "questions": [
    {
      "id": 1,
      "category": "scope|technical|application|output",
      "question": "the actual question",
      "why_important": "why this matters",
      "example_answer": "example response",
      "priority": "critical|high|medium|low"
    }
  ]
}

Make questions specific and actionable. Prioritize based on importance for clarifying the research scope.`

// Generate asks the model for 2 to 8 clarifying questions. Any failure
// yields the deterministic fallback set instead; Generate itself never
// returns an empty list.
func (c *Clarifier) Generate(ctx context.Context, topic string, assessment classify.Assessment) ([]Question, error) {
	analysis := strings.Join(assessment.Signals, "; ")
	if analysis == "" {
		analysis = "No analysis provided"
	}
	var parsed struct {
		Questions []Question `json:"questions"`
	}
	err := c.exec.GenerateJSON(ctx, "question_generation", llm.Request{
		Prompt:      fmt.Sprintf(generatePrompt, topic, analysis),
		Temperature: 0.4,
		MaxTokens:   2000,
	}, &parsed, func() error {
		if len(parsed.Questions) < 2 || len(parsed.Questions) > 8 {
			return fmt.Errorf("expected 2-8 questions, got %d", len(parsed.Questions))
		}
		return nil
	})
	if err != nil {
		log.Printf("research-assistant clarify_fallback topic=%q err=%q", topic, err.Error())
		return FallbackQuestions(assessment.Level), fmt.Errorf("question generation: %w", err)
	}
	for i := range parsed.Questions {
		parsed.Questions[i].ID = i + 1
	}
	return parsed.Questions, nil
}

// FallbackQuestions is the deterministic template: time scope and technical
// depth always, plus an application-focus question for medium/high topics.
func FallbackQuestions(level classify.Level) []Question {
	qs := []Question{
		{
			ID:            1,
			Category:      "scope",
			Text:          "What time period should this research cover?",
			Rationale:     "Focuses the literature search",
			ExampleAnswer: "Focus on developments from 2020 onwards",
			Priority:      "critical",
		},
		{
			ID:            2,
			Category:      "technical",
			Text:          "What level of technical depth are you looking for?",
			Rationale:     "Determines complexity of analysis needed",
			ExampleAnswer: "Graduate-level technical analysis",
			Priority:      "high",
		},
	}
	if level == classify.LevelMedium || level == classify.LevelHigh {
		qs = append(qs, Question{
			ID:            3,
			Category:      "application",
			Text:          "Are there specific applications or subfields to focus on?",
			Rationale:     "Narrows research scope to most relevant areas",
			ExampleAnswer: "Focus on healthcare applications",
			Priority:      "high",
		})
	}
	return qs
}

const synthesizePrompt = `Based on these clarifying questions and answers, create an enhanced research context:

ORIGINAL TOPIC: %s

Q&A PAIRS:
%s

Return JSON:
{
  "refined_topic": "more specific version of original topic",
  "scope_boundaries": "clear inclusion/exclusion criteria",
  "technical_requirements": "specific technical aspects to focus on",
  "application_context": "practical considerations",
  "constraints": "time, resource, or access limitations",
  "research_priorities": ["ordered list of priorities"]
}`

// Synthesize folds answered questions into an EnhancedContext. Only answered
// ids are sent. On failure the context degrades to the original topic with
// the error recorded, so downstream stages always have a topic to work with.
func (c *Clarifier) Synthesize(ctx context.Context, topic string, questions []Question, answers AnswerSet) (EnhancedContext, error) {
	type pair struct {
		Question string `json:"question"`
		Category string `json:"category"`
		Answer   string `json:"answer"`
	}
	var pairs []pair
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok {
			pairs = append(pairs, pair{Question: q.Text, Category: q.Category, Answer: a})
		}
	}
	formatted, _ := json.MarshalIndent(pairs, "", "  ")

	var out EnhancedContext
	err := c.exec.GenerateJSON(ctx, "answer_synthesis", llm.Request{
		Prompt:      fmt.Sprintf(synthesizePrompt, topic, formatted),
		Temperature: 0.3,
		MaxTokens:   1500,
	}, &out, func() error {
		if strings.TrimSpace(out.RefinedTopic) == "" {
			return fmt.Errorf("missing refined_topic")
		}
		return nil
	})
	if err != nil {
		log.Printf("research-assistant synthesis_fallback topic=%q err=%q", topic, err.Error())
		return EnhancedContext{RefinedTopic: topic, Err: err.Error()}, fmt.Errorf("answer synthesis: %w", err)
	}
	return out, nil
}
