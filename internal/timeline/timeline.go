package timeline

import (
    "math"
    "sort"
    "strings"
    "time"

    "github.com/shopspring/decimal"

    "fareadvisor/internal/provider"
)

// Ranking is the canonical qualitative price tier. The zero value means the
// provider gave none.
type Ranking string

const (
    RankingNone    Ranking = ""
    RankingBest    Ranking = "best"
    RankingLow     Ranking = "low"
    RankingMedium  Ranking = "medium"
    RankingHigh    Ranking = "high"
    RankingWorst   Ranking = "worst"
    RankingUnknown Ranking = "unknown"
)

// aliasMap folds upstream tier vocabularies onto Ranking.
//   Amadeus quartiles: MINIMUM, FIRST, MEDIUM, THIRD, MAXIMUM
//   Calendar groups:   low, medium, high
var aliasMap = map[string]Ranking{
    "minimum": RankingBest,
    "best":    RankingBest,
    "first":   RankingLow,
    "low":     RankingLow,
    "medium":  RankingMedium,
    "third":   RankingHigh,
    "high":    RankingHigh,
    "maximum": RankingWorst,
    "worst":   RankingWorst,
}

// ParseRanking maps an upstream label; unrecognized labels are unknown.
func ParseRanking(s string) Ranking {
    s = strings.ToLower(strings.TrimSpace(s))
    if s == "" {
        return RankingNone
    }
    if r, ok := aliasMap[s]; ok {
        return r
    }
    return RankingUnknown
}

// maxFactor is the assumed max/min ratio for a tier when a payload carries no spread.
func (r Ranking) maxFactor() float64 {
    switch r {
    case RankingBest, RankingLow:
        return 1.4
    case RankingMedium:
        return 1.6
    case RankingHigh, RankingWorst:
        return 1.8
    }
    return 1.5
}

// Note is the default per-observation advice for a tier.
func (r Ranking) Note() string {
    switch r {
    case RankingBest:
        return "Excellent price, this is the ideal time to buy."
    case RankingLow:
        return "Price below the historical average."
    case RankingMedium:
        return "Price close to the average."
    case RankingHigh:
        return "Price above average, consider waiting if possible."
    case RankingWorst:
        return "High price. Wait if you can."
    case RankingUnknown:
        return "Not enough data to assess this price."
    }
    return ""
}

type Observation struct {
    Date       time.Time
    Price      int64
    DaysBefore int
    Ranking    Ranking
    Note       string
}

type Summary struct {
    MinPrice int64
    MaxPrice int64
    AvgPrice int64
    Currency string
}

// Timeline is sorted by DaysBefore descending with one observation per date.
type Timeline struct {
    Observations []Observation
    Summary      Summary
    Estimated    bool
}

// Input anchors normalization. Start and End bound real payloads, both inclusive.
type Input struct {
    Today    time.Time
    Start    time.Time
    End      time.Time
    Currency string
}

// DaysBefore is round((date - today) / 24h), never negative.
func DaysBefore(date, today time.Time) int {
    d := provider.Day(date).Sub(provider.Day(today)).Hours() / 24
    if d <= 0 {
        return 0
    }
    return int(d + 0.5)
}

// MaxPrice bounds accepted amounts; anything larger is treated as malformed.
const MaxPrice = math.MaxInt32

var maxPrice = decimal.NewFromInt(MaxPrice)

// ParsePrice accepts a finite non-negative decimal up to MaxPrice and rounds
// half away from zero.
func ParsePrice(s string) (int64, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return 0, false
    }
    d, err := decimal.NewFromString(s)
    if err != nil || d.IsNegative() {
        return 0, false
    }
    d = d.Round(0)
    if d.GreaterThan(maxPrice) {
        return 0, false
    }
    return d.IntPart(), true
}

func parseDate(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if t, err := time.Parse(provider.DateLayout, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return provider.Day(t), true
    }
    return time.Time{}, false
}

// Normalize merges payloads, given in provider priority order, into one
// Timeline. An empty result is a *provider.EmptyResultError.
func Normalize(in Input, payloads ...provider.Payload) (Timeline, error) {
    today := in.Today
    if today.IsZero() {
        today = time.Now()
    }
    today = provider.Day(today)

    var (
        obs      []Observation
        highest  int64
        seen     = map[string]struct{}{}
        currency = in.Currency
        source   = "timeline"
        est      = len(payloads) > 0
    )
    for _, p := range payloads {
        if p.Source != "" && source == "timeline" { source = p.Source }
        if currency == "" { currency = p.Currency }
        est = est && p.Estimated
        for _, e := range p.Entries {
            date, ok := parseDate(e.Date)
            if !ok { continue }
            price, ok := ParsePrice(e.Price)
            if !ok { continue }
            if !p.Estimated && outside(date, in.Start, in.End) { continue }
            key := date.Format(provider.DateLayout)
            if _, dup := seen[key]; dup { continue }
            seen[key] = struct{}{}

            if hi, ok := ParsePrice(e.High); ok && hi > highest { highest = hi }
            r := ParseRanking(e.Ranking)
            note := e.Note
            if note == "" { note = r.Note() }
            obs = append(obs, Observation{Date: date, Price: price, DaysBefore: DaysBefore(date, today), Ranking: r, Note: note})
        }
    }
    obs = collapse(obs)
    if len(obs) == 0 {
        return Timeline{}, &provider.EmptyResultError{Provider: source}
    }

    sort.SliceStable(obs, func(i, j int) bool { return obs[i].DaysBefore > obs[j].DaysBefore })
    return Timeline{Observations: obs, Summary: summarize(obs, highest, currency), Estimated: est}, nil
}

func outside(date, start, end time.Time) bool {
    if !start.IsZero() && date.Before(provider.Day(start)) { return true }
    if !end.IsZero() && date.After(provider.Day(end)) { return true }
    return false
}

// collapse keeps the latest date when several observations land on the same
// DaysBefore (past dates clamped to 0).
func collapse(obs []Observation) []Observation {
    idx := make(map[int]int, len(obs))
    out := obs[:0]
    for _, o := range obs {
        if i, ok := idx[o.DaysBefore]; ok {
            if o.Date.After(out[i].Date) { out[i] = o }
            continue
        }
        idx[o.DaysBefore] = len(out)
        out = append(out, o)
    }
    return out
}

// summarize derives the summary. Spread hints lift the max; if it still
// equals the min the cheapest observation's tier factor infers one.
func summarize(obs []Observation, highest int64, currency string) Summary {
    s := Summary{MinPrice: obs[0].Price, MaxPrice: obs[0].Price, Currency: currency}
    cheapest := obs[0]
    var sum int64
    for _, o := range obs {
        sum += o.Price
        if o.Price < s.MinPrice {
            s.MinPrice = o.Price
            cheapest = o
        }
        if o.Price > s.MaxPrice { s.MaxPrice = o.Price }
    }
    s.AvgPrice = decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(obs)))).Round(0).IntPart()
    if highest > s.MaxPrice { s.MaxPrice = highest }
    if s.MaxPrice == s.MinPrice {
        inferred := decimal.NewFromInt(s.MinPrice).Mul(decimal.NewFromFloat(cheapest.Ranking.maxFactor())).Round(0).IntPart()
        s.MaxPrice = max(inferred, s.MinPrice+1)
    }
    return s
}
