// Package workflow orchestrates the full planning run: draft generation,
// critique loop, expert routing, parallel analysis and report merge.
package workflow

import (
	"fmt"

	"github.com/planforge/planforge/analysis"
	"github.com/planforge/planforge/expert"
	"github.com/planforge/planforge/plan"
)

// State identifies where a run currently is.
type State string

// Orchestrator states. A run moves Planning → Critiquing, then either
// Regenerating (back to Critiquing) or Routing → Analyzing → Done.
// Failed is reachable from any state.
const (
	StatePlanning     State = "planning"
	StateCritiquing   State = "critiquing"
	StateRegenerating State = "regenerating"
	StateRouting      State = "routing"
	StateAnalyzing    State = "analyzing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Status is the terminal outcome of a run.
type Status string

const (
	// StatusConverged means a draft met the score threshold.
	StatusConverged Status = "converged"

	// StatusExhausted means retries ran out and the last draft was
	// accepted anyway. Downstream consumers can treat these plans with
	// less confidence than converged ones.
	StatusExhausted Status = "exhausted"

	// StatusFailed means the run stopped on an unrecoverable error.
	StatusFailed Status = "failed"
)

// FailureCause describes why a run failed.
type FailureCause struct {
	// Step is the operation that failed (generate, critique, analyze).
	Step string `json:"step"`

	// Kind classifies the failure (schema, canceled, fatal, transport).
	Kind string `json:"kind"`

	// Iteration is the generation iteration the failure occurred in.
	Iteration int `json:"iteration"`

	// Err is the underlying error.
	Err error `json:"-"`
}

func (f *FailureCause) Error() string {
	return fmt.Sprintf("%s failed (%s, iteration %d): %v", f.Step, f.Kind, f.Iteration, f.Err)
}

func (f *FailureCause) Unwrap() error {
	return f.Err
}

// Result is the complete outcome of a workflow run.
type Result struct {
	// RunID uniquely identifies the run.
	RunID string

	// Slug is the artifact directory name for the run.
	Slug string

	// Plan is the accepted plan. Nil when Status is StatusFailed before
	// any draft was accepted.
	Plan *plan.Plan

	// Critiques holds every critique produced, in iteration order.
	Critiques []plan.Critique

	// Drafts holds every generated draft, in iteration order, for audit.
	Drafts []plan.Plan

	// Decisions maps each analyzed topic to its routed expert, in plan
	// order.
	Decisions []expert.Decision

	// Report is the merged analysis. Nil when the run failed before
	// analysis.
	Report *analysis.Report

	// Status is the terminal outcome.
	Status Status

	// FinalScore is the score of the accepted draft (0 when failed
	// before any critique).
	FinalScore float64

	// Iterations is the number of generation iterations performed.
	Iterations int

	// FailureCause is set when Status is StatusFailed.
	FailureCause *FailureCause
}
