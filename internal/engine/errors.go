package engine

import (
    "errors"
    "fmt"
)

// ErrAnalysisUnavailable matches every *UnavailableError.
var ErrAnalysisUnavailable = errors.New("analysis unavailable")

// ValidationError reports a malformed route.
type ValidationError struct {
    Field  string
    Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }

// UnavailableError is returned once every source, the fallback included,
// failed. Last is the final concrete failure.
type UnavailableError struct {
    Last error
}

func (e *UnavailableError) Error() string {
    if e.Last == nil {
        return ErrAnalysisUnavailable.Error()
    }
    return fmt.Sprintf("%s: %v", ErrAnalysisUnavailable, e.Last)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrAnalysisUnavailable }
func (e *UnavailableError) Unwrap() error        { return e.Last }
