package provider

import (
    "fmt"
    "time"
)

// AuthError reports absent or rejected credentials. Missing is set when the
// provider was never configured; Status carries the HTTP code otherwise.
type AuthError struct {
    Provider string
    Status   int
    Missing  bool
    Err      error
}

func (e *AuthError) Error() string {
    if e.Missing {
        return fmt.Sprintf("%s: credentials not configured", e.Provider)
    }
    if e.Err != nil {
        return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
    }
    return fmt.Sprintf("%s: authentication failed (status %d)", e.Provider, e.Status)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError reports upstream throttling.
type RateLimitError struct {
    Provider   string
    RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
    if e.RetryAfter > 0 {
        return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
    }
    return fmt.Sprintf("%s: rate limited", e.Provider)
}

// UpstreamError covers every other failed exchange. Status 0 means the
// request never produced a response (network error or timeout).
type UpstreamError struct {
    Provider string
    Status   int
    Body     string
    Err      error
}

func (e *UpstreamError) Error() string {
    switch {
    case e.Status == 0 && e.Err != nil:
        return fmt.Sprintf("%s: %v", e.Provider, e.Err)
    case e.Err != nil:
        return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
    case e.Body != "":
        return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
    }
    return fmt.Sprintf("%s: status %d", e.Provider, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transient reports whether the failure is eligible for a retry.
func (e *UpstreamError) Transient() bool { return e.Status == 0 || e.Status >= 500 }

// ResolutionError reports a failed airport code to entity id lookup.
type ResolutionError struct {
    Provider string
    Code     string
    Err      error
}

func (e *ResolutionError) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: resolve %q: %v", e.Provider, e.Code, e.Err)
    }
    return fmt.Sprintf("%s: resolve %q: no matching location", e.Provider, e.Code)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// EmptyResultError reports a successful exchange with nothing usable in it.
type EmptyResultError struct {
    Provider string
}

func (e *EmptyResultError) Error() string {
    return fmt.Sprintf("%s: no usable price observations", e.Provider)
}
