package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/planforge/planforge/analysis"
	"github.com/planforge/planforge/events"
	"github.com/planforge/planforge/expert"
	"github.com/planforge/planforge/llm"
	"github.com/planforge/planforge/metrics"
	"github.com/planforge/planforge/plan"
	"github.com/planforge/planforge/planner"
	"github.com/planforge/planforge/store"
)

// schemaRetryBudget bounds generate retries when the model returns a
// structurally invalid plan. These retries do not count as regeneration
// iterations: the draft never reached critique.
const schemaRetryBudget = 3

// Config tunes a single orchestrator.
type Config struct {
	// ScoreThreshold accepts a draft when its critique score is greater
	// than or equal to it.
	ScoreThreshold float64

	// MaxRetries bounds regeneration attempts after the initial draft.
	MaxRetries int

	// TopicLimit caps analyzed topics (0 = all).
	TopicLimit int
}

// planGenerator produces plan drafts.
type planGenerator interface {
	Generate(ctx context.Context, brief planner.Brief, prior *plan.Critique, previous *plan.Plan) (*plan.Plan, error)
}

// critiqueScorer reviews drafts.
type critiqueScorer interface {
	Score(ctx context.Context, brief planner.Brief, draft *plan.Plan) (*plan.Critique, error)
}

// topicAnalyzer runs the per-topic analyses.
type topicAnalyzer interface {
	RunAll(ctx context.Context, brief planner.Brief, tasks []analysis.Task) []analysis.Result
}

// Orchestrator drives a run through the planning loop and analysis fan-out.
type Orchestrator struct {
	cfg       Config
	generator planGenerator
	scorer    critiqueScorer
	router    *expert.Router
	analyzer  topicAnalyzer
	store     *store.Manager
	publisher *events.Publisher
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithStore enables artifact persistence.
func WithStore(m *store.Manager) Option {
	return func(o *Orchestrator) {
		o.store = m
	}
}

// WithPublisher enables event publishing. A nil publisher is valid.
func WithPublisher(p *events.Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// New creates an orchestrator. It fails fast on a non-positive retry
// budget, an out-of-range threshold or a missing dependency so a
// misconfigured workflow never starts.
func New(cfg Config, gen planGenerator, scorer critiqueScorer, router *expert.Router, analyzer topicAnalyzer, opts ...Option) (*Orchestrator, error) {
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max retries must be positive, got %d", cfg.MaxRetries)
	}
	if cfg.ScoreThreshold < plan.ScoreMin || cfg.ScoreThreshold > plan.ScoreMax {
		return nil, fmt.Errorf("score threshold must be between %g and %g, got %g", plan.ScoreMin, plan.ScoreMax, cfg.ScoreThreshold)
	}
	if cfg.TopicLimit < 0 {
		return nil, fmt.Errorf("topic limit must not be negative, got %d", cfg.TopicLimit)
	}
	if gen == nil || scorer == nil || router == nil || analyzer == nil {
		return nil, fmt.Errorf("generator, scorer, router and analyzer are required")
	}

	o := &Orchestrator{
		cfg:       cfg,
		generator: gen,
		scorer:    scorer,
		router:    router,
		analyzer:  analyzer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunPlanningLoop executes only the generate/critique loop and returns the
// accepted plan. converged reports whether the plan met the threshold or
// was force-accepted after exhausting retries.
func (o *Orchestrator) RunPlanningLoop(ctx context.Context, brief planner.Brief) (*plan.Plan, bool, error) {
	run := newRunState(brief)
	if err := o.planLoop(ctx, run); err != nil {
		return nil, false, err
	}
	return run.accepted, run.status == StatusConverged, nil
}

// Run executes the full workflow and always returns a Result; on failure
// the Result carries the structured cause and the error wraps it.
func (o *Orchestrator) Run(ctx context.Context, brief planner.Brief) (*Result, error) {
	run := newRunState(brief)
	o.logger.Info("Starting workflow run",
		"run_id", run.id,
		"business", brief.Business,
		"location", brief.Location)

	if err := o.planLoop(ctx, run); err != nil {
		return o.finishFailed(run, err)
	}

	o.transition(run, StateRouting)
	topics := run.accepted.Topics
	if o.cfg.TopicLimit > 0 && len(topics) > o.cfg.TopicLimit {
		o.logger.Info("Capping analyzed topics", "limit", o.cfg.TopicLimit, "total", len(topics))
		topics = topics[:o.cfg.TopicLimit]
	}

	tasks := make([]analysis.Task, len(topics))
	decisions := make([]expert.Decision, len(topics))
	for i, t := range topics {
		d := o.router.Route(t.Title + " " + t.Description)
		decisions[i] = d
		tasks[i] = analysis.Task{Topic: t, Expert: d.Expert}
		o.logger.Debug("Routed topic", "topic_id", t.ID, "expert", d.Expert)
	}
	run.decisions = decisions

	o.transition(run, StateAnalyzing)
	results := o.analyzer.RunAll(ctx, brief, tasks)
	for _, res := range results {
		metrics.RecordAnalysis(res.Err == nil)
	}
	run.report = &analysis.Report{Brief: brief, Results: results}

	if err := o.persist(ctx, run); err != nil {
		o.logger.Warn("Failed to persist run artifacts", "run_id", run.id, "error", err)
	}

	o.transition(run, StateDone)
	return o.finish(run), nil
}

// runState is the mutable state of one run, owned by a single goroutine.
type runState struct {
	id        string
	slug      string
	brief     planner.Brief
	state     State
	iteration int
	accepted  *plan.Plan
	drafts    []plan.Plan
	critiques []plan.Critique
	decisions []expert.Decision
	report    *analysis.Report
	status    Status
	score     float64
}

func newRunState(brief planner.Brief) *runState {
	id := uuid.NewString()
	return &runState{
		id:    id,
		slug:  plan.SlugifyTitle(brief.Business+" "+brief.Location) + "-" + id[:8],
		brief: brief,
		state: StatePlanning,
	}
}

// planLoop runs generate/critique until acceptance or failure. On success
// run.accepted, run.status and run.score are set.
func (o *Orchestrator) planLoop(ctx context.Context, run *runState) *FailureCause {
	if err := run.brief.Validate(); err != nil {
		return o.fail(run, "validate", err)
	}

	o.transition(run, StatePlanning)
	draft, err := o.generateWithSchemaRetry(ctx, run, nil, nil)
	if err != nil {
		return o.fail(run, "generate", err)
	}

	for {
		o.transition(run, StateCritiquing)
		critique, err := o.scorer.Score(ctx, run.brief, draft)
		if err != nil {
			return o.fail(run, "critique", err)
		}
		run.critiques = append(run.critiques, *critique)
		metrics.CritiqueScore.Set(critique.Score)
		o.logger.Info("Draft critiqued",
			"run_id", run.id,
			"iteration", run.iteration,
			"score", critique.Score,
			"threshold", o.cfg.ScoreThreshold)

		if critique.Score >= o.cfg.ScoreThreshold {
			run.accept(draft, StatusConverged, critique.Score)
			break
		}
		if run.iteration >= o.cfg.MaxRetries {
			o.logger.Warn("Retries exhausted, accepting last draft",
				"run_id", run.id,
				"iterations", run.iteration+1,
				"score", critique.Score)
			run.accept(draft, StatusExhausted, critique.Score)
			break
		}

		o.transition(run, StateRegenerating)
		run.iteration++
		draft, err = o.generateWithSchemaRetry(ctx, run, critique, draft)
		if err != nil {
			return o.fail(run, "generate", err)
		}
	}

	metrics.PlanningIterations.Observe(float64(run.iteration + 1))
	return nil
}

// generateWithSchemaRetry calls the generator, retrying only structurally
// invalid responses. Any other error surfaces immediately.
func (o *Orchestrator) generateWithSchemaRetry(ctx context.Context, run *runState, prior *plan.Critique, previous *plan.Plan) (*plan.Plan, error) {
	var lastErr error
	for attempt := 1; attempt <= schemaRetryBudget; attempt++ {
		draft, err := o.generator.Generate(ctx, run.brief, prior, previous)
		if err == nil {
			draft.GenerationIteration = run.iteration
			run.drafts = append(run.drafts, *draft)
			return draft, nil
		}
		if !errors.Is(err, plan.ErrSchema) {
			return nil, err
		}
		lastErr = err
		o.logger.Warn("Generated plan failed schema validation, retrying",
			"run_id", run.id,
			"attempt", attempt,
			"error", err)
	}
	return nil, fmt.Errorf("plan schema invalid after %d attempts: %w", schemaRetryBudget, lastErr)
}

func (run *runState) accept(draft *plan.Plan, status Status, score float64) {
	run.accepted = draft
	run.status = status
	run.score = score
}

// transition moves the run to a new state, logging and publishing the edge.
func (o *Orchestrator) transition(run *runState, to State) {
	from := run.state
	run.state = to
	o.logger.Debug("State transition",
		"run_id", run.id,
		"from", from,
		"to", to,
		"iteration", run.iteration)
	o.publisher.StateChanged(run.id, string(from), string(to), run.iteration)
}

// fail moves the run to StateFailed and builds the structured cause.
func (o *Orchestrator) fail(run *runState, step string, err error) *FailureCause {
	o.transition(run, StateFailed)
	run.status = StatusFailed
	cause := &FailureCause{
		Step:      step,
		Kind:      classifyFailure(err),
		Iteration: run.iteration,
		Err:       err,
	}
	o.logger.Error("Workflow run failed",
		"run_id", run.id,
		"step", cause.Step,
		"kind", cause.Kind,
		"iteration", cause.Iteration,
		"error", err)
	return cause
}

// classifyFailure maps an error to a coarse failure kind.
func classifyFailure(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, plan.ErrSchema):
		return "schema"
	case llm.IsFatal(err):
		return "fatal"
	case llm.IsTransient(err):
		return "transport"
	default:
		return "internal"
	}
}

func (o *Orchestrator) finish(run *runState) *Result {
	metrics.RunsTotal.WithLabelValues(string(run.status)).Inc()

	failed := 0
	topics := 0
	if run.report != nil {
		failed = run.report.Failed()
		topics = len(run.report.Results)
	}
	o.publisher.RunCompleted(run.id, string(run.status), run.score, topics, failed)
	o.logger.Info("Workflow run finished",
		"run_id", run.id,
		"status", run.status,
		"iterations", run.iteration+1,
		"score", run.score,
		"topics", topics,
		"failed_analyses", failed)

	return &Result{
		RunID:      run.id,
		Slug:       run.slug,
		Plan:       run.accepted,
		Critiques:  run.critiques,
		Drafts:     run.drafts,
		Decisions:  run.decisions,
		Report:     run.report,
		Status:     run.status,
		FinalScore: run.score,
		Iterations: run.iteration + 1,
	}
}

func (o *Orchestrator) finishFailed(run *runState, cause *FailureCause) (*Result, error) {
	metrics.RunsTotal.WithLabelValues(string(StatusFailed)).Inc()
	o.publisher.RunCompleted(run.id, string(StatusFailed), run.score, 0, 0)

	result := &Result{
		RunID:        run.id,
		Slug:         run.slug,
		Critiques:    run.critiques,
		Drafts:       run.drafts,
		Status:       StatusFailed,
		Iterations:   run.iteration + 1,
		FailureCause: cause,
	}
	return result, cause
}

// persist writes the run's artifacts through the store. Persistence errors
// never fail the run.
func (o *Orchestrator) persist(ctx context.Context, run *runState) error {
	if o.store == nil {
		return nil
	}

	if err := o.store.SavePlan(ctx, run.slug, run.accepted); err != nil {
		return err
	}
	if err := o.store.SaveCritiques(ctx, run.slug, run.critiques); err != nil {
		return err
	}
	for _, res := range run.report.Results {
		if res.Err != nil {
			continue
		}
		if err := o.store.SaveTopicReport(ctx, run.slug, res.TopicID, res.Content); err != nil {
			return err
		}
	}
	return o.store.SaveMergedReport(ctx, run.slug, run.report.Format())
}
