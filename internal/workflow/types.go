package workflow

import (
	"fmt"
	"time"

	"github.com/joelkehle/research-assistant/internal/clarify"
	"github.com/joelkehle/research-assistant/internal/classify"
	"github.com/joelkehle/research-assistant/internal/gaps"
	"github.com/joelkehle/research-assistant/internal/plan"
	"github.com/joelkehle/research-assistant/internal/report"
	"github.com/joelkehle/research-assistant/internal/search"
)

// Step names a workflow state. The order below is total and fixed; a run
// only ever moves forward through it, skipping the clarification pair when
// the branch says so.
type Step string

const (
	StepInitialized        Step = "initialized"
	StepTopicAnalyzed      Step = "topic_analyzed"
	StepQuestionsGenerated Step = "questions_generated"
	StepAnswersProcessed   Step = "answers_processed"
	StepPlanCreated        Step = "plan_created"
	StepSearchCompleted    Step = "search_completed"
	StepPapersRanked       Step = "papers_ranked"
	StepGapsIdentified     Step = "gaps_identified"
	StepReportGenerated    Step = "report_generated"
)

var stepOrder = map[Step]int{
	StepInitialized:        0,
	StepTopicAnalyzed:      1,
	StepQuestionsGenerated: 2,
	StepAnswersProcessed:   3,
	StepPlanCreated:        4,
	StepSearchCompleted:    5,
	StepPapersRanked:       6,
	StepGapsIdentified:     7,
	StepReportGenerated:    8,
}

// Index returns the step's position in the fixed order, -1 if unknown.
func (s Step) Index() int {
	if i, ok := stepOrder[s]; ok {
		return i
	}
	return -1
}

// RunState is the single mutable aggregate of a run. Each stage writes its
// own output field exactly once; nothing is shared across runs.
type RunState struct {
	RunID             string                  `json:"run_id"`
	Topic             string                  `json:"topic"`
	SkipClarification bool                    `json:"skip_clarification"`
	Assessment        classify.Assessment     `json:"ambiguity_assessment"`
	Questions         []clarify.Question      `json:"questions,omitempty"`
	Answers           clarify.AnswerSet       `json:"answers,omitempty"`
	Enhanced          clarify.EnhancedContext `json:"enhanced_context,omitempty"`
	Plan              plan.Plan               `json:"research_plan"`
	Results           []search.Result         `json:"search_results,omitempty"`
	Gaps              gaps.Gaps               `json:"research_gaps"`
	Report            report.Report           `json:"report"`
	Messages          []string                `json:"messages"`
	Errors            []string                `json:"errors"`
	CurrentStep       Step                    `json:"current_step"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// RefinedTopic is the enhanced topic when clarification produced one, the
// original otherwise.
func (s *RunState) RefinedTopic() string {
	if s.Enhanced.RefinedTopic != "" {
		return s.Enhanced.RefinedTopic
	}
	return s.Topic
}

// Result is the terminal projection handed back to callers.
type Result struct {
	RunID        string          `json:"run_id"`
	Topic        string          `json:"topic"`
	RefinedTopic string          `json:"refined_topic"`
	PlanSummary  string          `json:"plan_summary"`
	TopResults   []search.Result `json:"top_results"`
	Gaps         gaps.Gaps       `json:"research_gaps"`
	Report       string          `json:"report"`
	TotalFound   int             `json:"total_found"`
	Errors       []string        `json:"errors"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Project builds the caller-facing result with at most topN results.
func (s *RunState) Project(topN int) Result {
	top := s.Results
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}
	return Result{
		RunID:        s.RunID,
		Topic:        s.Topic,
		RefinedTopic: s.RefinedTopic(),
		PlanSummary:  s.Plan.Summary,
		TopResults:   top,
		Gaps:         s.Gaps,
		Report:       s.Report.Markdown,
		TotalFound:   len(s.Results),
		Errors:       s.Errors,
		GeneratedAt:  s.Report.GeneratedAt,
	}
}

// StageError marks which stage a recovered failure came from.
type StageError struct {
	Step Step
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Step, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
