// Package resolver maps IATA airport codes onto the opaque location ids some
// providers require. Results are cached per provider.
package resolver

import (
    "context"
    "strings"
    "time"

    "golang.org/x/sync/singleflight"

    "fareadvisor/internal/logger"
    "fareadvisor/internal/provider"
    "fareadvisor/internal/provider/cache"
)

// DefaultTTL is how long a resolved id stays cached.
const DefaultTTL = time.Hour

// Candidate is one autocomplete suggestion.
type Candidate struct {
    ID    string // opaque id sent back to the provider
    Code  string // structured IATA field, may be empty
    Label string // display text, e.g. "Paris Charles de Gaulle (CDG)"
}

// Lookup is the provider autocomplete endpoint.
type Lookup interface {
    Autocomplete(ctx context.Context, query string) ([]Candidate, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, query string) ([]Candidate, error)

func (f LookupFunc) Autocomplete(ctx context.Context, query string) ([]Candidate, error) {
    return f(ctx, query)
}

type Resolver struct {
    provider string
    lookup   Lookup
    store    *cache.Store[string]
    ttl      time.Duration
    log      logger.Logger
    sf       singleflight.Group
}

type Option func(*Resolver)

// WithTTL sets how long resolved ids are kept. Non-positive values keep the default.
func WithTTL(d time.Duration) Option {
    return func(r *Resolver) {
        if d > 0 {
            r.ttl = d
        }
    }
}

// WithStore shares a store between resolvers; keys are prefixed by provider.
func WithStore(s *cache.Store[string]) Option { return func(r *Resolver) { r.store = s } }

func WithLogger(l logger.Logger) Option { return func(r *Resolver) { r.log = l } }

func New(providerName string, lookup Lookup, opts ...Option) *Resolver {
    r := &Resolver{provider: providerName, lookup: lookup, ttl: DefaultTTL, log: logger.NewNop()}
    for _, o := range opts {
        o(r)
    }
    if r.store == nil {
        r.store = cache.New[string]()
    }
    return r
}

// Resolve returns the provider id for code. Codes that already look resolved
// pass through untouched. Any failure is a *provider.ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, code string) (string, error) {
    code = strings.TrimSpace(code)
    if LooksResolved(code) {
        return code, nil
    }
    code = strings.ToUpper(code)
    key := r.provider + ":loc:" + code
    if id, ok := r.store.Get(key); ok {
        return id, nil
    }

    v, err, _ := r.sf.Do(key, func() (any, error) {
        cands, err := r.lookup.Autocomplete(ctx, code)
        if err != nil {
            return "", &provider.ResolutionError{Provider: r.provider, Code: code, Err: err}
        }
        c, ok := Match(code, cands)
        if !ok {
            return "", &provider.ResolutionError{Provider: r.provider, Code: code}
        }
        r.store.Set(key, c.ID, r.ttl)
        r.log.Debug("location resolved", "provider", r.provider, "code", code, "id", c.ID)
        return c.ID, nil
    })
    if err != nil {
        return "", err
    }
    return v.(string), nil
}

// LooksResolved reports whether code is already a provider id rather than a
// bare 3-letter IATA code.
func LooksResolved(code string) bool {
    return len(code) > 3 || strings.ContainsAny(code, "/:-_. ")
}

// Match picks the candidate for code: an exact structured code match first,
// then a label containing "(CODE)". Candidates without an id are skipped.
func Match(code string, cands []Candidate) (Candidate, bool) {
    code = strings.ToUpper(code)
    for _, c := range cands {
        if c.ID != "" && strings.EqualFold(c.Code, code) {
            return c, true
        }
    }
    needle := "(" + code + ")"
    for _, c := range cands {
        if c.ID != "" && strings.Contains(strings.ToUpper(c.Label), needle) {
            return c, true
        }
    }
    return Candidate{}, false
}
