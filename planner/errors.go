package planner

import "errors"

// Sentinel errors for the generation and critique steps. Both wrap the
// underlying cause; the orchestrator discriminates with errors.Is.
var (
	// ErrGenerationFailed means the plan generation call failed or
	// returned unparsable content after normalization.
	ErrGenerationFailed = errors.New("plan generation failed")

	// ErrCritiqueFailed means the critique call failed or its score was
	// unrecoverable after normalization and format retries.
	ErrCritiqueFailed = errors.New("plan critique failed")
)
