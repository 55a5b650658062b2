package plan

import (
	"errors"
	"fmt"
)

// ErrSchema is the sentinel for schema violations: a required field is
// absent or of the wrong fundamental kind after normalization. Schema
// violations are recoverable by the orchestrator, not fatal to a run.
var ErrSchema = errors.New("schema violation")

// SchemaError describes which field of which record kind failed
// normalization.
type SchemaError struct {
	Kind   string // "plan" or "critique"
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation: %s.%s: %s", e.Kind, e.Field, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

func newSchemaError(kind, field, reason string) error {
	return &SchemaError{Kind: kind, Field: field, Reason: reason}
}
