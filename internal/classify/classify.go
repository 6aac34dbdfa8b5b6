// Package classify scores how ambiguous a research topic is. The decision
// table is deterministic and never consults the model service, so a topic
// always gets the same level for the same input.
package classify

import (
	"strings"
	"unicode"
)

// Level is the ambiguity verdict for a topic.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Word-count thresholds used by the decision table.
const (
	BroadTopicMaxWords    = 3
	ShortTopicMaxWords    = 4
	SpecificTopicMinWords = 8
	BriefTopicMaxWords    = 2
)

// BroadTerms are field names that on their own describe a whole discipline.
var BroadTerms = []string{
	"ai", "artificial intelligence", "machine learning", "ml",
	"deep learning", "dl", "nlp", "natural language processing",
	"computer vision", "cv", "robotics", "blockchain", "cryptocurrency",
	"iot", "internet of things", "big data", "cloud computing",
	"cybersecurity", "data science", "analytics",
}

// AmbiguousWords signal an unscoped relationship or open-ended framing.
var AmbiguousWords = []string{
	"impact", "effect", "relationship", "influence", "role",
	"implications", "applications", "potential", "future", "trends",
	"challenges", "opportunities", "benefits", "advantages",
	"disadvantages", "problems", "issues", "solutions",
}

// TemporalMarkers narrow a topic to a time window. Any digit in the topic
// also counts as temporal.
var TemporalMarkers = []string{"recent", "latest", "current", "2023", "2024", "2025"}

// DomainSpecifics anchor a topic to a concrete application area.
var DomainSpecifics = []string{
	"twitter", "facebook", "medical", "healthcare", "finance", "banking",
	"sentiment", "classification", "prediction", "detection", "recognition",
}

// Assessment is the classifier output: the level plus the human-readable
// signals that drove it, in evaluation order.
type Assessment struct {
	Level   Level
	Signals []string
}

// Classify evaluates the decision table over the lowercased topic. It is
// total: any string, including empty, yields a level.
func Classify(topic string) Assessment {
	lowered := strings.ToLower(strings.TrimSpace(topic))
	wordCount := len(strings.Fields(lowered))

	isBroad := containsAny(lowered, BroadTerms)
	matched := matchedWords(lowered, AmbiguousWords)
	hasAmbiguous := len(matched) > 0
	temporal := hasDigit(lowered) || containsAny(lowered, TemporalMarkers)
	domain := containsAny(lowered, DomainSpecifics)

	var signals []string
	if isBroad {
		signals = append(signals, "extremely broad topic")
	}
	signals = append(signals, matched...)
	if !temporal {
		signals = append(signals, "no temporal specification")
	}
	if wordCount <= BriefTopicMaxWords {
		signals = append(signals, "topic too brief")
	}
	if !domain && wordCount < SpecificTopicMinWords {
		signals = append(signals, "lacks domain specifics")
	}

	level := LevelMedium
	switch {
	case isBroad && wordCount <= BroadTopicMaxWords:
		level = LevelHigh
	case hasAmbiguous && !temporal && !domain:
		level = LevelHigh
	case isBroad || hasAmbiguous || (wordCount <= ShortTopicMaxWords && !domain):
		level = LevelMedium
	case wordCount >= SpecificTopicMinWords && temporal && domain:
		level = LevelLow
	}
	return Assessment{Level: level, Signals: signals}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func matchedWords(s string, terms []string) []string {
	var out []string
	for _, t := range terms {
		if strings.Contains(s, t) {
			out = append(out, t)
		}
	}
	return out
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
