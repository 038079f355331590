package scheduling

import (
	"fmt"
	"strings"
)

// Violation is a single validation failure tied to an input field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in the input, not just the
// first, so the caller can report all problems at once.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return fmt.Sprintf("invalid scheduling input (%d violation(s)): %s",
		len(e.Violations), strings.Join(parts, "; "))
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Violations = append(e.Violations, Violation{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// ok reports whether no violations were recorded.
func (e *ValidationError) ok() bool { return len(e.Violations) == 0 }

// ComputationError reports an internal invariant violation during a run. It
// is fatal for that run and should be treated as a bug report, not retried.
type ComputationError struct {
	Stage   string
	Message string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("scheduling computation failed during %s: %s", e.Stage, e.Message)
}
