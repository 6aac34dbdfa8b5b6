package clarify

import (
	"context"
	"errors"
	"testing"

	"github.com/joelkehle/research-assistant/internal/classify"
	"github.com/joelkehle/research-assistant/internal/llm"
)

type fakeCaller struct {
	response string
	err      error
	calls    int
}

func (f *fakeCaller) Generate(context.Context, llm.Request) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeCaller) ModelName() string { return "fake-model" }

func TestGenerateParsesQuestions(t *testing.T) {
	fake := &fakeCaller{response: `{"questions": [
		{"id": 7, "category": "scope", "question": "Which years?", "why_important": "focus", "priority": "critical"},
		{"id": 9, "category": "technical", "question": "How deep?", "why_important": "depth", "priority": "high"}
	]}`}
	c := New(llm.NewExecutor(fake))

	qs, err := c.Generate(context.Background(), "machine learning", classify.Classify("machine learning"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2", len(qs))
	}
	// Ids are reassigned sequentially regardless of model output.
	for i, q := range qs {
		if q.ID != i+1 {
			t.Errorf("question %d has id %d, want %d", i, q.ID, i+1)
		}
	}
}

func TestGenerateFallsBackOnFailure(t *testing.T) {
	fake := &fakeCaller{err: errors.New("service down")}
	c := New(llm.NewExecutor(fake))

	qs, err := c.Generate(context.Background(), "machine learning", classify.Classify("machine learning"))
	if err == nil {
		t.Fatal("expected error alongside fallback")
	}
	if len(qs) != 3 {
		t.Fatalf("high ambiguity fallback should have 3 questions, got %d", len(qs))
	}
	if qs[0].Category != "scope" || qs[1].Category != "technical" || qs[2].Category != "application" {
		t.Errorf("fallback categories = %s/%s/%s", qs[0].Category, qs[1].Category, qs[2].Category)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
}

func TestFallbackQuestionsByLevel(t *testing.T) {
	if got := len(FallbackQuestions(classify.LevelLow)); got != 2 {
		t.Errorf("low: got %d questions, want 2", got)
	}
	if got := len(FallbackQuestions(classify.LevelMedium)); got != 3 {
		t.Errorf("medium: got %d questions, want 3", got)
	}
	if got := len(FallbackQuestions(classify.LevelHigh)); got != 3 {
		t.Errorf("high: got %d questions, want 3", got)
	}
	for i, q := range FallbackQuestions(classify.LevelHigh) {
		if q.ID != i+1 {
			t.Errorf("fallback ids not sequential: %+v", q)
		}
	}
}

func TestSynthesizeOnlySendsAnsweredPairs(t *testing.T) {
	fake := &fakeCaller{response: `{"refined_topic": "transformer models for clinical text since 2020",
		"scope_boundaries": "2020 onward", "research_priorities": ["accuracy", "deployment"]}`}
	c := New(llm.NewExecutor(fake))

	qs := FallbackQuestions(classify.LevelHigh)
	ec, err := c.Synthesize(context.Background(), "nlp", qs, AnswerSet{1: "since 2020"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ec.RefinedTopic != "transformer models for clinical text since 2020" {
		t.Errorf("refined topic = %q", ec.RefinedTopic)
	}
	if len(ec.Priorities) != 2 {
		t.Errorf("priorities = %v", ec.Priorities)
	}
}

func TestSynthesizeFallsBackToOriginalTopic(t *testing.T) {
	fake := &fakeCaller{response: "not json"}
	c := New(llm.NewExecutor(fake))

	ec, err := c.Synthesize(context.Background(), "nlp", FallbackQuestions(classify.LevelHigh), AnswerSet{1: "since 2020"})
	if err == nil {
		t.Fatal("expected error alongside fallback")
	}
	if ec.RefinedTopic != "nlp" {
		t.Errorf("refined topic = %q, want original topic", ec.RefinedTopic)
	}
	if ec.Err == "" {
		t.Error("fallback context should record the error")
	}
}
