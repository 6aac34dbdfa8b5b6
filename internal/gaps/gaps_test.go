package gaps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/joelkehle/research-assistant/internal/llm"
	"github.com/joelkehle/research-assistant/internal/search"
)

type fakeCaller struct {
	response string
	err      error
	prompt   string
}

func (f *fakeCaller) Generate(_ context.Context, req llm.Request) (string, error) {
	f.prompt = req.Prompt
	return f.response, f.err
}

func (f *fakeCaller) ModelName() string { return "fake-model" }

func TestAnalyzeParsesGaps(t *testing.T) {
	fake := &fakeCaller{response: `{
		"gaps": ["No work on low-resource settings"],
		"opportunities": ["Benchmark on low-resource corpora"]
	}`}
	a := New(llm.NewExecutor(fake), DefaultTopK)

	got := a.Analyze(context.Background(), []search.Result{
		{Title: "Paper A", Abstract: "contributes A", RelevanceReason: "relevant"},
	}, "nlp for low-resource languages")

	if len(got.Gaps) != 1 || len(got.Opportunities) != 1 {
		t.Fatalf("got %+v", got)
	}
	if !strings.Contains(fake.prompt, "Paper A") {
		t.Error("prompt missing paper summary")
	}
}

func TestAnalyzeLimitsToTopK(t *testing.T) {
	fake := &fakeCaller{response: `{"gaps": ["g"], "opportunities": ["o"]}`}
	a := New(llm.NewExecutor(fake), 3)

	var in []search.Result
	for i := 0; i < 6; i++ {
		in = append(in, search.Result{Title: fmt.Sprintf("Paper %d", i)})
	}
	a.Analyze(context.Background(), in, "topic")

	if strings.Contains(fake.prompt, "Paper 3") {
		t.Error("prompt includes results beyond top-k")
	}
	if !strings.Contains(fake.prompt, "Paper 2") {
		t.Error("prompt missing top-k results")
	}
}

func TestAnalyzeContributionTruncatesOnRuneBoundary(t *testing.T) {
	fake := &fakeCaller{response: `{"gaps": ["g"], "opportunities": ["o"]}`}
	a := New(llm.NewExecutor(fake), DefaultTopK)

	a.Analyze(context.Background(), []search.Result{
		{Title: "Paper", Abstract: strings.Repeat("ü", 250)},
	}, "topic")

	if !utf8.ValidString(fake.prompt) {
		t.Error("prompt contains invalid UTF-8")
	}
	if strings.Contains(fake.prompt, strings.Repeat("ü", 201)) {
		t.Error("contribution longer than 200 runes")
	}
	if !strings.Contains(fake.prompt, strings.Repeat("ü", 200)) {
		t.Error("contribution shorter than 200 runes")
	}
}

func TestAnalyzeFallsBackOnFailure(t *testing.T) {
	fake := &fakeCaller{err: errors.New("service down")}
	a := New(llm.NewExecutor(fake), DefaultTopK)

	got := a.Analyze(context.Background(), nil, "quantum computing")
	if len(got.Gaps) != 1 || len(got.Opportunities) != 1 {
		t.Fatalf("fallback shape wrong: %+v", got)
	}
	if !strings.Contains(got.Gaps[0], "quantum computing") {
		t.Errorf("fallback gap should name the topic: %q", got.Gaps[0])
	}
}

func TestAnalyzeNeverEmpty(t *testing.T) {
	fake := &fakeCaller{response: `{"gaps": ["one gap"]}`}
	a := New(llm.NewExecutor(fake), DefaultTopK)

	got := a.Analyze(context.Background(), nil, "topic")
	if len(got.Opportunities) == 0 {
		t.Error("opportunities must never be empty")
	}
}
