// Package analyzer turns a timeline into a purchase-timing recommendation.
// It performs no I/O.
package analyzer

import (
    "fmt"
    "math"

    "fareadvisor/internal/timeline"
)

type Status string

const (
    StatusEarly   Status = "early"
    StatusOptimal Status = "optimal"
    StatusLate    Status = "late"
    StatusStable  Status = "stable"
)

const (
    sweetSpot     = 30 // days before departure with the best expected fares
    windowSlack   = 3
    windowFloor   = 3
    windowCeiling = 60
)

type Recommendation struct {
    Cheapest         timeline.Observation
    CheapestPrice    int64
    MaxPrice         int64
    Average          int64
    BestPurchaseDate int
    WindowMin        int
    WindowMax        int
    Score            int
    Status           Status
    Message          string
    Advice           string
    SavingsAmount    int64
    SavingsPercent   int
}

// Analyze scores obs, which must be sorted by DaysBefore descending.
// An empty slice is a caller bug and panics.
func Analyze(obs []timeline.Observation) Recommendation {
    if len(obs) == 0 {
        panic("analyzer: empty timeline")
    }

    r := Recommendation{Cheapest: obs[0], CheapestPrice: obs[0].Price, MaxPrice: obs[0].Price}
    var sum int64
    for _, o := range obs {
        sum += o.Price
        if o.Price < r.CheapestPrice {
            r.CheapestPrice = o.Price
            r.Cheapest = o
        }
        if o.Price > r.MaxPrice {
            r.MaxPrice = o.Price
        }
    }
    r.Average = int64(math.Round(float64(sum) / float64(len(obs))))
    r.BestPurchaseDate = r.Cheapest.DaysBefore
    r.WindowMin = max(windowFloor, r.BestPurchaseDate-windowSlack)
    r.WindowMax = min(windowCeiling, r.BestPurchaseDate+windowSlack)

    dayScore := max(0, 100-2*math.Abs(float64(r.BestPurchaseDate-sweetSpot)))
    variation := float64(r.MaxPrice-r.CheapestPrice) / float64(max(r.Average, 1)) * 100
    stability := max(0, 100-variation)
    r.Score = int(math.Round(0.6*dayScore + 0.4*stability))

    r.Status = Classify(r.BestPurchaseDate)
    r.Message, r.Advice = texts(r)

    r.SavingsAmount = r.MaxPrice - r.CheapestPrice
    if r.MaxPrice > 0 {
        r.SavingsPercent = int(math.Round(float64(r.SavingsAmount) / float64(r.MaxPrice) * 100))
    }
    return r
}

// Classify applies the status ladder in order: early, optimal, late, stable.
func Classify(bestPurchaseDate int) Status {
    switch {
    case bestPurchaseDate >= 45:
        return StatusEarly
    case bestPurchaseDate >= 21 && bestPurchaseDate <= 35:
        return StatusOptimal
    case bestPurchaseDate < 14:
        return StatusLate
    }
    return StatusStable
}

func texts(r Recommendation) (string, string) {
    switch r.Status {
    case StatusEarly:
        return "It is still early to book this flight.",
            fmt.Sprintf("Wait about %d days for optimal prices (around 30 days before departure).", max(1, r.BestPurchaseDate-sweetSpot))
    case StatusOptimal:
        return "This is the ideal time to book this flight!",
            fmt.Sprintf("Best prices fall between %d and %d days before departure.", r.WindowMax, r.WindowMin)
    case StatusLate:
        return "Careful, prices are likely to rise.",
            "Book now to avoid last-minute price increases."
    }
    return "Prices look stable for this route.", "You can book now or wait a few days."
}
