// Package workflow sequences a research run through its fixed state
// machine. Stages degrade individually; the run always reaches the
// terminal state and yields a report-shaped result.
package workflow

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/research-assistant/internal/clarify"
	"github.com/joelkehle/research-assistant/internal/classify"
	"github.com/joelkehle/research-assistant/internal/gaps"
	"github.com/joelkehle/research-assistant/internal/plan"
	"github.com/joelkehle/research-assistant/internal/report"
	"github.com/joelkehle/research-assistant/internal/search"
)

// clarifyWordLimit: medium-ambiguity topics shorter than this still get
// clarifying questions.
const clarifyWordLimit = 10

// Clarifier generates questions and synthesizes answers. Both calls return
// a usable fallback value alongside any error.
type Clarifier interface {
	Generate(ctx context.Context, topic string, a classify.Assessment) ([]clarify.Question, error)
	Synthesize(ctx context.Context, topic string, qs []clarify.Question, ans clarify.AnswerSet) (clarify.EnhancedContext, error)
}

type Planner interface {
	Create(ctx context.Context, topic, context_ string) (plan.Plan, error)
}

type Searcher interface {
	Run(ctx context.Context, queries []plan.Query) []search.Result
}

type Ranker interface {
	Rank(ctx context.Context, results []search.Result, topic string) []search.Result
}

type GapAnalyzer interface {
	Analyze(ctx context.Context, results []search.Result, topic string) gaps.Gaps
}

type Reporter interface {
	Render(ctx context.Context, topic string, p plan.Plan, results []search.Result, g gaps.Gaps) report.Report
}

// Store persists RunState snapshots after every transition. Save failures
// are logged, never fatal to the run.
type Store interface {
	Save(ctx context.Context, state *RunState) error
}

// Asker collects answers to clarifying questions. A nil Asker (or an
// Asker error) leaves the answer set as whatever the caller pre-supplied.
type Asker func(ctx context.Context, questions []clarify.Question) (clarify.AnswerSet, error)

// Orchestrator wires the stages together. All fields except the six stage
// implementations are optional.
type Orchestrator struct {
	Clarifier Clarifier
	Planner   Planner
	Searcher  Searcher
	Ranker    Ranker
	Gaps      GapAnalyzer
	Reporter  Reporter

	Store Store
	Ask   Asker
	TopN  int
}

// tracer resolves against the global provider on every call; the provider
// may be installed after the orchestrator is built.
func (o *Orchestrator) tracer() trace.Tracer {
	return otel.Tracer("research-assistant/workflow")
}

// Request starts a run.
type Request struct {
	Topic             string
	SkipClarification bool
	// Answers may pre-supply clarification answers, keyed by question id.
	Answers clarify.AnswerSet
	// RunID lets a caller that needs the id up front (the HTTP surface)
	// assign it; empty means a fresh one is generated.
	RunID string
}

// Run drives the state machine to its terminal state. Degraded stages are
// recorded in the state's error log; Run itself fails only if that ever
// becomes impossible.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*RunState, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	now := time.Now()
	state := &RunState{
		RunID:             runID,
		Topic:             req.Topic,
		SkipClarification: req.SkipClarification,
		Answers:           req.Answers,
		CurrentStep:       StepInitialized,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	ctx, runSpan := o.tracer().Start(ctx, "research_run",
		trace.WithAttributes(attribute.String("run.id", state.RunID)))
	defer runSpan.End()

	o.persist(ctx, state)
	log.Printf("research-assistant run_start run=%s topic=%q skip_clarification=%v",
		state.RunID, state.Topic, state.SkipClarification)

	// Topic analysis is pure and cannot fail.
	o.stage(ctx, state, StepTopicAnalyzed, func(context.Context) {
		state.Assessment = classify.Classify(state.Topic)
	}, func() string {
		return "topic analyzed: ambiguity=" + string(state.Assessment.Level)
	})

	// Branch predicate, evaluated exactly once.
	wordCount := len(strings.Fields(state.Topic))
	needClarification := !state.SkipClarification &&
		(state.Assessment.Level == classify.LevelHigh ||
			(state.Assessment.Level == classify.LevelMedium && wordCount < clarifyWordLimit))

	if needClarification {
		o.stage(ctx, state, StepQuestionsGenerated, func(sctx context.Context) {
			qs, err := o.Clarifier.Generate(sctx, state.Topic, state.Assessment)
			state.Questions = qs
			o.recordErr(state, StepQuestionsGenerated, err)
		}, func() string {
			return "clarifying questions generated"
		})

		o.stage(ctx, state, StepAnswersProcessed, func(sctx context.Context) {
			if len(state.Answers) == 0 && o.Ask != nil {
				ans, err := o.Ask(sctx, state.Questions)
				if err != nil {
					o.recordErr(state, StepAnswersProcessed, err)
				} else {
					state.Answers = ans
				}
			}
			ec, err := o.Clarifier.Synthesize(sctx, state.Topic, state.Questions, state.Answers)
			state.Enhanced = ec
			o.recordErr(state, StepAnswersProcessed, err)
		}, func() string {
			return "answers processed: refined topic ready"
		})
	}

	o.stage(ctx, state, StepPlanCreated, func(sctx context.Context) {
		p, err := o.Planner.Create(sctx, state.RefinedTopic(), enhancedContextPrompt(state.Enhanced))
		state.Plan = p
		o.recordErr(state, StepPlanCreated, err)
	}, func() string {
		return "research plan created"
	})

	o.stage(ctx, state, StepSearchCompleted, func(sctx context.Context) {
		state.Results = o.Searcher.Run(sctx, state.Plan.SearchQueries)
	}, func() string {
		return "search completed"
	})

	o.stage(ctx, state, StepPapersRanked, func(sctx context.Context) {
		state.Results = o.Ranker.Rank(sctx, state.Results, state.RefinedTopic())
	}, func() string {
		return "papers ranked"
	})

	o.stage(ctx, state, StepGapsIdentified, func(sctx context.Context) {
		state.Gaps = o.Gaps.Analyze(sctx, state.Results, state.RefinedTopic())
	}, func() string {
		return "research gaps identified"
	})

	o.stage(ctx, state, StepReportGenerated, func(sctx context.Context) {
		state.Report = o.Reporter.Render(sctx, state.RefinedTopic(), state.Plan, state.Results, state.Gaps)
	}, func() string {
		return "report generated"
	})

	log.Printf("research-assistant run_done run=%s results=%d errors=%d",
		state.RunID, len(state.Results), len(state.Errors))
	return state, nil
}

// stage runs one transition: invoke, record the message, advance the step
// marker, persist the snapshot.
func (o *Orchestrator) stage(ctx context.Context, state *RunState, step Step, fn func(context.Context), msg func() string) {
	sctx, span := o.tracer().Start(ctx, string(step),
		trace.WithAttributes(attribute.String("run.id", state.RunID)))
	defer span.End()

	log.Printf("research-assistant stage_start run=%s step=%s", state.RunID, step)
	fn(sctx)

	state.CurrentStep = step
	state.UpdatedAt = time.Now()
	state.Messages = append(state.Messages, msg())
	o.persist(sctx, state)
}

func (o *Orchestrator) recordErr(state *RunState, step Step, err error) {
	if err == nil {
		return
	}
	se := &StageError{Step: step, Err: err}
	state.Errors = append(state.Errors, se.Error())
	log.Printf("research-assistant stage_degraded run=%s step=%s err=%q", state.RunID, step, err.Error())
}

func (o *Orchestrator) persist(ctx context.Context, state *RunState) {
	if o.Store == nil {
		return
	}
	if err := o.Store.Save(ctx, state); err != nil {
		log.Printf("research-assistant persist_warn run=%s step=%s err=%q", state.RunID, state.CurrentStep, err.Error())
	}
}

// enhancedContextPrompt formats the synthesized context for the planner
// prompt; empty when no clarification happened.
func enhancedContextPrompt(ec clarify.EnhancedContext) string {
	var parts []string
	add := func(label, v string) {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Scope boundaries", ec.ScopeBoundaries)
	add("Technical requirements", ec.TechnicalRequirements)
	add("Application context", ec.ApplicationContext)
	add("Constraints", ec.Constraints)
	if len(ec.Priorities) > 0 {
		parts = append(parts, "Priorities: "+strings.Join(ec.Priorities, "; "))
	}
	return strings.Join(parts, "\n")
}
