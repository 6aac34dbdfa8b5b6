package rank

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
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeCaller) Generate(_ context.Context, req llm.Request) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return "", f.err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no more responses")
}

func (f *fakeCaller) ModelName() string { return "fake-model" }

func titles(rs []search.Result) []string {
	var out []string
	for _, r := range rs {
		out = append(out, r.Title)
	}
	return out
}

func TestRankMergesScoresByIndex(t *testing.T) {
	fake := &fakeCaller{responses: []string{
		`{"scores": [
			{"index": 0, "score": 0.2, "reason": "weak match"},
			{"index": 1, "score": 0.9, "reason": "strong match"},
			{"index": 5, "score": 1.0, "reason": "out of range, ignored"}
		]}`,
	}}
	r := New(llm.NewExecutor(fake), DefaultBatchSize)

	got := r.Rank(context.Background(), []search.Result{
		{Title: "Paper A"},
		{Title: "Paper B"},
	}, "graph neural networks")

	if got[0].Title != "Paper B" || got[0].RelevanceScore != 0.9 {
		t.Errorf("top result = %+v", got[0])
	}
	if got[1].RelevanceReason != "weak match" {
		t.Errorf("reason not merged: %+v", got[1])
	}
}

func TestRankBatchesOfFive(t *testing.T) {
	fake := &fakeCaller{responses: []string{
		`{"scores": [{"index": 0, "score": 0.5}]}`,
		`{"scores": [{"index": 0, "score": 0.5}]}`,
	}}
	r := New(llm.NewExecutor(fake), 5)

	var in []search.Result
	for i := 0; i < 7; i++ {
		in = append(in, search.Result{Title: fmt.Sprintf("Paper %d", i)})
	}
	r.Rank(context.Background(), in, "topic")
	if fake.calls != 2 {
		t.Errorf("calls = %d, want 2 batches for 7 results", fake.calls)
	}
}

func TestRankFallsBackToKeywordOverlap(t *testing.T) {
	fake := &fakeCaller{err: errors.New("service down")}
	r := New(llm.NewExecutor(fake), DefaultBatchSize)

	got := r.Rank(context.Background(), []search.Result{
		{Title: "Unrelated Topic"},
		{Title: "Graph Neural Networks for Traffic Forecasting"},
	}, "graph neural networks")

	if got[0].Title != "Graph Neural Networks for Traffic Forecasting" {
		t.Errorf("order = %v", titles(got))
	}
	if got[0].RelevanceScore != 1.0 {
		t.Errorf("full overlap score = %v, want 1.0", got[0].RelevanceScore)
	}
	if got[1].RelevanceScore != 0.0 {
		t.Errorf("no overlap score = %v, want 0.0", got[1].RelevanceScore)
	}
}

func TestRankStableOnTies(t *testing.T) {
	fake := &fakeCaller{err: errors.New("service down")}
	r := New(llm.NewExecutor(fake), DefaultBatchSize)

	got := r.Rank(context.Background(), []search.Result{
		{Title: "First Tied"},
		{Title: "Second Tied"},
	}, "graph neural networks")

	want := []string{"First Tied", "Second Tied"}
	for i := range want {
		if got[i].Title != want[i] {
			t.Errorf("tie order = %v, want %v", titles(got), want)
		}
	}
}

func TestRankExcerptTruncatesOnRuneBoundary(t *testing.T) {
	fake := &fakeCaller{responses: []string{`{"scores": [{"index": 0, "score": 0.5}]}`}}
	r := New(llm.NewExecutor(fake), DefaultBatchSize)

	r.Rank(context.Background(), []search.Result{
		{Title: "Paper", Abstract: strings.Repeat("é", 400)},
	}, "topic")

	if len(fake.prompts) != 1 {
		t.Fatalf("calls = %d, want 1", len(fake.prompts))
	}
	if !utf8.ValidString(fake.prompts[0]) {
		t.Error("prompt contains invalid UTF-8")
	}
	if strings.Contains(fake.prompts[0], strings.Repeat("é", 301)) {
		t.Error("excerpt longer than 300 runes")
	}
	if !strings.Contains(fake.prompts[0], strings.Repeat("é", 300)) {
		t.Error("excerpt shorter than 300 runes")
	}
}

func TestFallbackScore(t *testing.T) {
	cases := []struct {
		topic, title string
		want         float64
	}{
		{"graph neural networks", "Graph Neural Networks for Traffic Forecasting", 1.0},
		{"graph neural networks", "Unrelated Topic", 0.0},
		{"", "Anything", NeutralScore},
	}
	for _, tc := range cases {
		if got := FallbackScore(tc.topic, tc.title); got != tc.want {
			t.Errorf("FallbackScore(%q, %q) = %v, want %v", tc.topic, tc.title, got, tc.want)
		}
	}
}

func TestRankEmptyInput(t *testing.T) {
	r := New(llm.NewExecutor(&fakeCaller{}), DefaultBatchSize)
	if got := r.Rank(context.Background(), nil, "topic"); len(got) != 0 {
		t.Errorf("got %v for empty input", got)
	}
}
