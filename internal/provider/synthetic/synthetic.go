// Package synthetic estimates a price curve locally. It never touches the
// network and never fails.
package synthetic

import (
    "context"
    "math"
    "math/rand/v2"
    "strconv"
    "sync"
    "time"

    "fareadvisor/internal/provider"
)

const Name = "synthetic"

// Anchors are the days-before-departure points of every estimate.
var Anchors = []int{120, 105, 90, 75, 60, 50, 45, 40, 35, 30, 25, 21, 18, 15, 14, 12, 10, 7, 5, 3, 2, 1}

// BasePrice by cabin.
func BasePrice(c provider.CabinClass) float64 {
    switch c {
    case provider.Business:
        return 1500
    case provider.First:
        return 3000
    }
    return 650
}

type Generator struct {
    mu  sync.Mutex
    rnd *rand.Rand
}

// New seeds the generator. A zero seed draws one from the runtime.
func New(seed uint64) *Generator {
    if seed == 0 {
        seed = rand.Uint64()
    }
    return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *Generator) Name() string        { return Name }
func (g *Generator) Kind() provider.Kind { return provider.KindSynthetic }

// multiplier picks the band factor for a point daysBefore out.
func (g *Generator) multiplier(daysBefore int) float64 {
    switch {
    case daysBefore >= 45:
        return 1.15 + g.rnd.Float64()*0.10
    case daysBefore >= 21:
        return 0.95 + g.rnd.Float64()*0.15
    case daysBefore >= 7:
        return 1.05 + g.rnd.Float64()*0.15
    }
    return 1.25 + g.rnd.Float64()*0.20
}

// Fetch produces one entry per anchor dated today+daysBefore. The day-30
// anchor carries the lowest price of the curve.
func (g *Generator) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
    today := req.Today
    if today.IsZero() {
        today = time.Now()
    }
    today = provider.Day(today)
    base := BasePrice(req.Route.Cabin)

    prices := make([]int64, len(Anchors))
    lowest, at30 := int64(math.MaxInt64), -1
    g.mu.Lock()
    for i, d := range Anchors {
        prices[i] = int64(math.Round(base * g.multiplier(d)))
        lowest = min(lowest, prices[i])
        if d == 30 {
            at30 = i
        }
    }
    g.mu.Unlock()
    if at30 >= 0 {
        prices[at30] = lowest
    }

    out := provider.Payload{Source: Name, Currency: req.Route.Currency, Estimated: true, Entries: make([]provider.RawEntry, len(Anchors))}
    for i, d := range Anchors {
        out.Entries[i] = provider.RawEntry{
            Date:  today.AddDate(0, 0, d).Format(provider.DateLayout),
            Price: strconv.FormatInt(prices[i], 10),
        }
    }
    return out, nil
}
