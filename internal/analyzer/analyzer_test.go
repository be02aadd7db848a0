package analyzer

import (
    "testing"
    "time"

    "fareadvisor/internal/timeline"
)

func series(prices []int64, days []int) []timeline.Observation {
    base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
    out := make([]timeline.Observation, len(prices))
    for i := range prices {
        out[i] = timeline.Observation{Date: base.AddDate(0, 0, i), Price: prices[i], DaysBefore: days[i]}
    }
    return out
}

func TestAnalyze_Scenario(t *testing.T) {
    obs := series(
        []int64{800, 750, 700, 650, 600, 650, 700, 750, 800, 850},
        []int{60, 50, 40, 30, 20, 10, 5, 3, 2, 1},
    )
    r := Analyze(obs)

    if r.CheapestPrice != 600 || r.BestPurchaseDate != 20 {
        t.Fatalf("cheapest=%d at %d", r.CheapestPrice, r.BestPurchaseDate)
    }
    if r.WindowMin != 17 || r.WindowMax != 23 {
        t.Fatalf("window=[%d,%d] want [17,23]", r.WindowMin, r.WindowMax)
    }
    if r.Average != 725 || r.MaxPrice != 850 {
        t.Fatalf("avg=%d max=%d", r.Average, r.MaxPrice)
    }
    // dayScore 80, stability 100-250/725*100 = 65.52, score round(48+26.21)=74
    if r.Score != 74 {
        t.Fatalf("score=%d want 74", r.Score)
    }
    if r.Status != StatusStable {
        t.Fatalf("status=%s want stable", r.Status)
    }
    if r.SavingsAmount != 250 || r.SavingsPercent != 29 {
        t.Fatalf("savings=%d (%d%%)", r.SavingsAmount, r.SavingsPercent)
    }
}

func TestAnalyze_TieKeepsFurthestFromDeparture(t *testing.T) {
    obs := series([]int64{500, 400, 400, 450}, []int{40, 31, 25, 10})
    r := Analyze(obs)
    if r.BestPurchaseDate != 31 || r.Cheapest.DaysBefore != 31 {
        t.Fatalf("want first cheapest at 31, got %d", r.BestPurchaseDate)
    }
}

func TestClassify_Boundaries(t *testing.T) {
    cases := map[int]Status{
        120: StatusEarly,
        45:  StatusEarly,
        44:  StatusStable,
        36:  StatusStable,
        35:  StatusOptimal,
        30:  StatusOptimal,
        21:  StatusOptimal,
        20:  StatusStable,
        15:  StatusStable,
        14:  StatusStable,
        13:  StatusLate,
        0:   StatusLate,
    }
    for d, want := range cases {
        if got := Classify(d); got != want {
            t.Fatalf("Classify(%d)=%s want %s", d, got, want)
        }
    }
}

func TestAnalyze_WindowClampsAndTexts(t *testing.T) {
    r := Analyze(series([]int64{300, 200}, []int{90, 2}))
    if r.WindowMin != 3 || r.WindowMax != 5 {
        t.Fatalf("window=[%d,%d] want [3,5]", r.WindowMin, r.WindowMax)
    }
    if r.Status != StatusLate || r.Advice != "Book now to avoid last-minute price increases." {
        t.Fatalf("late texts: %s / %s", r.Status, r.Advice)
    }

    r = Analyze(series([]int64{200, 300}, []int{59, 10}))
    if r.WindowMax != 60 || r.Status != StatusEarly {
        t.Fatalf("window max=%d status=%s", r.WindowMax, r.Status)
    }
    if r.Advice != "Wait about 29 days for optimal prices (around 30 days before departure)." {
        t.Fatalf("early advice: %q", r.Advice)
    }

    r = Analyze(series([]int64{400, 300}, []int{40, 28}))
    if r.Advice != "Best prices fall between 31 and 25 days before departure." {
        t.Fatalf("optimal advice: %q", r.Advice)
    }
}

func TestAnalyze_ScoreBounds(t *testing.T) {
    r := Analyze(series([]int64{0, 10000}, []int{1, 0}))
    if r.Score < 0 || r.Score > 100 {
        t.Fatalf("score out of range: %d", r.Score)
    }
    r = Analyze(series([]int64{500}, []int{30}))
    if r.Score != 100 || r.SavingsPercent != 0 {
        t.Fatalf("flat at sweet spot: score=%d savings=%d", r.Score, r.SavingsPercent)
    }
    r = Analyze(series([]int64{0}, []int{30}))
    if r.SavingsPercent != 0 {
        t.Fatalf("zero max must not divide: %d", r.SavingsPercent)
    }
}

func TestAnalyze_EmptyPanics(t *testing.T) {
    defer func() {
        if recover() == nil {
            t.Fatalf("empty timeline must panic")
        }
    }()
    Analyze(nil)
}
