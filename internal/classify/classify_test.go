package classify

import (
	"reflect"
	"testing"
)

func TestClassifyDecisionTable(t *testing.T) {
	cases := []struct {
		name  string
		topic string
		want  Level
	}{
		{"broad short topic", "machine learning", LevelHigh},
		{"broad three words", "deep learning models", LevelHigh},
		{"ambiguous without anchors", "future challenges of autonomous driving", LevelHigh},
		{"short but undistinguished", "quantum error correction", LevelMedium},
		{"broad but long", "machine learning methods for protein structure analysis pipelines", LevelMedium},
		{"specific temporal domain", "sentiment detection in twitter posts about banking since 2024", LevelLow},
		{"empty topic", "", LevelMedium},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.topic)
			if got.Level != tc.want {
				t.Errorf("Classify(%q).Level = %s, want %s (signals: %v)", tc.topic, got.Level, tc.want, got.Signals)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	topics := []string{
		"machine learning",
		"impact of blockchain",
		"sentiment detection in twitter posts about banking since 2024",
		"",
	}
	for _, topic := range topics {
		a := Classify(topic)
		b := Classify(topic)
		if a.Level != b.Level || !reflect.DeepEqual(a.Signals, b.Signals) {
			t.Errorf("Classify(%q) not deterministic: %+v vs %+v", topic, a, b)
		}
	}
}

func TestClassifySignals(t *testing.T) {
	got := Classify("ai")
	if got.Level != LevelHigh {
		t.Fatalf("level = %s, want high", got.Level)
	}
	want := []string{"extremely broad topic", "no temporal specification", "topic too brief", "lacks domain specifics"}
	if !reflect.DeepEqual(got.Signals, want) {
		t.Errorf("signals = %v, want %v", got.Signals, want)
	}
}

func TestClassifyCollectsAmbiguousWords(t *testing.T) {
	got := Classify("future challenges of autonomous driving")
	found := map[string]bool{}
	for _, s := range got.Signals {
		found[s] = true
	}
	if !found["future"] || !found["challenges"] {
		t.Errorf("matched ambiguous words missing from signals: %v", got.Signals)
	}
}
