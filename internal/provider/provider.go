package provider

import (
    "context"
    "strings"
    "time"
)

// DateLayout is the calendar date format used on every wire boundary.
const DateLayout = "2006-01-02"

// Kind declares how a source covers a date window.
type Kind int

const (
    // KindSingleDate sources answer for one departure date per call.
    KindSingleDate Kind = iota
    // KindRange sources answer for the whole window in one call.
    KindRange
    // KindSynthetic sources never touch the network.
    KindSynthetic
)

func (k Kind) String() string {
    switch k {
    case KindSingleDate:
        return "single-date"
    case KindRange:
        return "range"
    case KindSynthetic:
        return "synthetic"
    }
    return "unknown"
}

type CabinClass string

const (
    Economy  CabinClass = "Economy"
    Business CabinClass = "Business"
    First    CabinClass = "First"
)

// ParseCabin accepts any casing and defaults to Economy.
func ParseCabin(s string) (CabinClass, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "economy":
        return Economy, true
    case "business":
        return Business, true
    case "first":
        return First, true
    }
    return Economy, false
}

// Route is the priced itinerary plus the departure window, both ends inclusive.
type Route struct {
    Origin      string
    Destination string
    Currency    string
    Cabin       CabinClass
    Start       time.Time
    End         time.Time
}

// Request is what a Source receives. Date is set only for KindSingleDate sources.
// Today anchors every relative computation of the run.
type Request struct {
    Route Route
    Date  time.Time
    Today time.Time
}

// Key identifies the request for memoization. A single-date request is keyed
// by its date alone, so overlapping windows share per-date results.
func (r Request) Key(source string) string {
    parts := []string{source, r.Route.Origin, r.Route.Destination, r.Route.Currency, string(r.Route.Cabin)}
    if r.Date.IsZero() {
        parts = append(parts, r.Route.Start.Format(DateLayout), r.Route.End.Format(DateLayout))
    } else {
        parts = append(parts, r.Date.Format(DateLayout))
    }
    return strings.Join(parts, ":")
}

// RawEntry is one upstream price point before normalization. Price and High
// keep the upstream textual representation.
type RawEntry struct {
    Date    string
    Price   string
    High    string // optional spread hint (upper amount reported for the same date)
    Ranking string
    Note    string
}

// Payload is the raw result of one Fetch.
type Payload struct {
    Source    string
    Currency  string
    Entries   []RawEntry
    Estimated bool // synthetic data, not bound to the requested window
}

// Source is implemented by every upstream price provider.
type Source interface {
    Name() string
    Kind() Kind
    Fetch(ctx context.Context, req Request) (Payload, error)
}

// Wrapper is implemented by decorators around a Source.
type Wrapper interface {
    Unwrap() Source
}

// CredentialInvalidator is implemented by sources holding a cached credential.
type CredentialInvalidator interface {
    InvalidateCredentials()
}

// InvalidateCredentials walks the decorator chain and drops the first cached
// credential it finds. It reports whether anything was invalidated.
func InvalidateCredentials(s Source) bool {
    for s != nil {
        if ci, ok := s.(CredentialInvalidator); ok {
            ci.InvalidateCredentials()
            return true
        }
        w, ok := s.(Wrapper)
        if !ok {
            return false
        }
        s = w.Unwrap()
    }
    return false
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
    y, m, d := t.UTC().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
