package engine

import (
    "cmp"
    "fmt"
    "slices"

    "fareadvisor/internal/provider"
    "fareadvisor/internal/timeline"
)

// Report is the JSON document served for one analysis.
type Report struct {
    Success      bool         `json:"success"`
    Query        Query        `json:"query"`
    Route        RouteInfo    `json:"route"`
    Prices       []PricePoint `json:"prices"`
    BestDeals    []PricePoint `json:"bestDeals"`
    Summary      SummaryInfo  `json:"summary"`
    CheapestDate CheapestDate `json:"cheapestDate"`
    Analysis     AnalysisInfo `json:"analysis"`
}

type Query struct {
    From      string `json:"from"`
    To        string `json:"to"`
    StartDate string `json:"startDate"`
    EndDate   string `json:"endDate"`
    Currency  string `json:"currency"`
    Cabin     string `json:"cabin"`
}

type RouteInfo struct {
    From      string `json:"from"`
    To        string `json:"to"`
    Currency  string `json:"currency"`
    Cabin     string `json:"cabin"`
    StartDate string `json:"startDate"`
    EndDate   string `json:"endDate"`
    Date      string `json:"date"`
    Source    string `json:"source"`
}

type PricePoint struct {
    DaysBefore     int     `json:"daysBefore"`
    Price          int64   `json:"price"`
    DepartureDate  string  `json:"departureDate"`
    Ranking        *string `json:"ranking"`
    Recommendation *string `json:"recommendation"`
}

type SummaryInfo struct {
    MinPrice int64  `json:"minPrice"`
    MaxPrice int64  `json:"maxPrice"`
    AvgPrice int64  `json:"avgPrice"`
    Currency string `json:"currency"`

    Recommendations string `json:"recommendations"`
}

// MaxBestDeals caps Report.BestDeals.
const MaxBestDeals = 5

type CheapestDate struct {
    Date  string `json:"date"`
    Price int64  `json:"price"`
}

type AnalysisInfo struct {
    Score             int    `json:"score"`
    Status            string `json:"status"`
    Message           string `json:"message"`
    Recommendation    string `json:"recommendation"`
    BestPurchaseDate  int    `json:"bestPurchaseDate"`
    WindowMin         int    `json:"windowMin"`
    WindowMax         int    `json:"windowMax"`
    Cheapest          int64  `json:"cheapest"`
    Average           int64  `json:"average"`
    MaxPrice          int64  `json:"maxPrice"`
    SavingsPotential  int64  `json:"savingsPotential"`
    SavingsPercentage int    `json:"savingsPercentage"`
}

func optional(s string) *string {
    if s == "" {
        return nil
    }
    return &s
}

// NewReport flattens o. The same Outcome always yields the same Report.
func NewReport(o Outcome) Report {
    r, rec, sum := o.Route, o.Recommendation, o.Timeline.Summary
    start, end := r.Start.Format(provider.DateLayout), r.End.Format(provider.DateLayout)
    cheapest := rec.Cheapest.Date.Format(provider.DateLayout)

    prices := make([]PricePoint, 0, len(o.Timeline.Observations))
    for _, ob := range o.Timeline.Observations {
        prices = append(prices, pricePoint(ob))
    }
    deals := bestDeals(o.Timeline.Observations)

    return Report{
        Success: true,
        Query: Query{
            From: r.Origin, To: r.Destination, StartDate: start, EndDate: end,
            Currency: r.Currency, Cabin: string(r.Cabin),
        },
        Route: RouteInfo{
            From: r.Origin, To: r.Destination, Currency: r.Currency, Cabin: string(r.Cabin),
            StartDate: start, EndDate: end, Date: cheapest, Source: o.Source,
        },
        Prices:    prices,
        BestDeals: deals,
        Summary: SummaryInfo{
            MinPrice: sum.MinPrice, MaxPrice: sum.MaxPrice, AvgPrice: sum.AvgPrice, Currency: sum.Currency,
            Recommendations: dealsNote(len(deals)),
        },
        CheapestDate: CheapestDate{Date: cheapest, Price: rec.CheapestPrice},
        Analysis: AnalysisInfo{
            Score:             rec.Score,
            Status:            string(rec.Status),
            Message:           rec.Message,
            Recommendation:    rec.Advice,
            BestPurchaseDate:  rec.BestPurchaseDate,
            WindowMin:         rec.WindowMin,
            WindowMax:         rec.WindowMax,
            Cheapest:          rec.CheapestPrice,
            Average:           rec.Average,
            MaxPrice:          rec.MaxPrice,
            SavingsPotential:  rec.SavingsAmount,
            SavingsPercentage: rec.SavingsPercent,
        },
    }
}

func pricePoint(ob timeline.Observation) PricePoint {
    return PricePoint{
        DaysBefore:     ob.DaysBefore,
        Price:          ob.Price,
        DepartureDate:  ob.Date.Format(provider.DateLayout),
        Ranking:        optional(string(ob.Ranking)),
        Recommendation: optional(ob.Note),
    }
}

// bestDeals keeps the observations ranked best, cheapest first.
func bestDeals(obs []timeline.Observation) []PricePoint {
    picked := make([]timeline.Observation, 0, len(obs))
    for _, ob := range obs {
        if ob.Ranking == timeline.RankingBest {
            picked = append(picked, ob)
        }
    }
    slices.SortStableFunc(picked, func(a, b timeline.Observation) int { return cmp.Compare(a.Price, b.Price) })

    out := make([]PricePoint, 0, min(len(picked), MaxBestDeals))
    for _, ob := range picked[:min(len(picked), MaxBestDeals)] {
        out = append(out, pricePoint(ob))
    }
    return out
}

func dealsNote(n int) string {
    if n == 0 {
        return "No exceptional deal detected for this period"
    }
    return fmt.Sprintf("%d date(s) with good deals detected", n)
}
