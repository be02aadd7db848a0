package timeline

import (
    "errors"
    "testing"
    "time"

    "fareadvisor/internal/provider"
)

var today = time.Date(2025, 11, 1, 9, 30, 0, 0, time.UTC)

func day(s string) time.Time {
    t, err := time.Parse(provider.DateLayout, s)
    if err != nil {
        panic(err)
    }
    return t
}

func window() Input {
    return Input{Today: today, Start: day("2025-12-01"), End: day("2025-12-10"), Currency: "EUR"}
}

func TestParseRanking_Aliases(t *testing.T) {
    cases := map[string]Ranking{
        "MINIMUM": RankingBest,
        "FIRST":   RankingLow,
        "MEDIUM":  RankingMedium,
        "THIRD":   RankingHigh,
        "MAXIMUM": RankingWorst,
        "low":     RankingLow,
        " High ":  RankingHigh,
        "UNKNOWN": RankingUnknown,
        "weird":   RankingUnknown,
        "":        RankingNone,
    }
    for in, want := range cases {
        if got := ParseRanking(in); got != want {
            t.Fatalf("ParseRanking(%q)=%q want %q", in, got, want)
        }
    }
}

func TestParsePrice(t *testing.T) {
    good := map[string]int64{"0": 0, "412.4": 412, "412.5": 413, "99.49": 99, " 7 ": 7}
    for in, want := range good {
        got, ok := ParsePrice(in)
        if !ok || got != want {
            t.Fatalf("ParsePrice(%q)=%d,%v want %d", in, got, ok, want)
        }
    }
    if got, ok := ParsePrice("2147483647"); !ok || got != MaxPrice {
        t.Fatalf("ParsePrice at the bound = %d,%v", got, ok)
    }
    for _, in := range []string{"", "-1", "abc", "NaN", "Inf", "1e", "2147483648", "1e19", "18446744073709551616", "1e30"} {
        if _, ok := ParsePrice(in); ok {
            t.Fatalf("ParsePrice(%q) should fail", in)
        }
    }
}

func TestDaysBefore_RoundsAndClamps(t *testing.T) {
    if got := DaysBefore(day("2025-11-11"), today); got != 10 {
        t.Fatalf("got %d want 10", got)
    }
    if got := DaysBefore(day("2025-10-20"), today); got != 0 {
        t.Fatalf("past dates clamp to 0, got %d", got)
    }
    if got := DaysBefore(day("2025-11-01"), today); got != 0 {
        t.Fatalf("today is 0, got %d", got)
    }
}

func TestNormalize_FiltersDedupesAndSorts(t *testing.T) {
    primary := provider.Payload{Source: "flightsky", Entries: []provider.RawEntry{
        {Date: "2025-12-03", Price: "389", Ranking: "low"},
        {Date: "2025-12-01", Price: "412.4", Ranking: "medium"},
        {Date: "2025-11-20", Price: "100"}, // before window
        {Date: "2025-12-11", Price: "100"}, // after window
        {Date: "2025-12-02", Price: "-5"},
        {Date: "", Price: "300"},
        {Date: "2025-12-04", Price: ""},
        {Date: "not-a-date", Price: "300"},
    }}
    secondary := provider.Payload{Source: "google", Entries: []provider.RawEntry{
        {Date: "2025-12-03", Price: "999"}, // duplicate date, lower priority
        {Date: "2025-12-05", Price: "450", Note: "return on 2025-12-10 (5-day trip)"},
    }}

    tl, err := Normalize(window(), primary, secondary)
    if err != nil {
        t.Fatalf("normalize: %v", err)
    }
    if len(tl.Observations) != 3 {
        t.Fatalf("want 3 observations, got %+v", tl.Observations)
    }
    wantDates := []string{"2025-12-05", "2025-12-03", "2025-12-01"}
    for i, o := range tl.Observations {
        if o.Date.Format(provider.DateLayout) != wantDates[i] {
            t.Fatalf("obs %d date %s want %s", i, o.Date.Format(provider.DateLayout), wantDates[i])
        }
        if i > 0 && o.DaysBefore >= tl.Observations[i-1].DaysBefore {
            t.Fatalf("not strictly descending: %+v", tl.Observations)
        }
    }
    if tl.Observations[1].Price != 389 || tl.Observations[1].Ranking != RankingLow {
        t.Fatalf("first occurrence must win: %+v", tl.Observations[1])
    }
    if tl.Observations[1].Note != RankingLow.Note() {
        t.Fatalf("ranking note not filled: %q", tl.Observations[1].Note)
    }
    if tl.Observations[0].Note != "return on 2025-12-10 (5-day trip)" {
        t.Fatalf("provider note must be kept: %q", tl.Observations[0].Note)
    }
    s := tl.Summary
    if s.MinPrice != 389 || s.MaxPrice != 450 || s.AvgPrice != 417 || s.Currency != "EUR" {
        t.Fatalf("summary: %+v", s)
    }
    if tl.Estimated {
        t.Fatalf("real payloads are not estimated")
    }
}

func TestNormalize_SummaryBounds(t *testing.T) {
    p := provider.Payload{Entries: []provider.RawEntry{
        {Date: "2025-12-01", Price: "800"},
        {Date: "2025-12-02", Price: "650"},
        {Date: "2025-12-03", Price: "700.5"},
        {Date: "2025-12-04", Price: "910"},
    }}
    tl, err := Normalize(window(), p)
    if err != nil {
        t.Fatal(err)
    }
    s := tl.Summary
    for _, o := range tl.Observations {
        if o.Price < s.MinPrice || o.Price > s.MaxPrice {
            t.Fatalf("price %d outside [%d,%d]", o.Price, s.MinPrice, s.MaxPrice)
        }
    }
    if s.AvgPrice < s.MinPrice || s.AvgPrice > s.MaxPrice {
        t.Fatalf("avg %d outside bounds", s.AvgPrice)
    }
}

func TestNormalize_SpreadHintLiftsMax(t *testing.T) {
    p := provider.Payload{Entries: []provider.RawEntry{
        {Date: "2025-12-01", Price: "212.50", High: "690.00", Ranking: "MINIMUM"},
    }}
    tl, err := Normalize(window(), p)
    if err != nil {
        t.Fatal(err)
    }
    if tl.Summary.MinPrice != 213 || tl.Summary.MaxPrice != 690 {
        t.Fatalf("summary: %+v", tl.Summary)
    }
}

func TestNormalize_RankingInfersMaxStrictlyAboveMin(t *testing.T) {
    cases := []struct {
        ranking string
        price   string
        wantMax int64
    }{
        {"low", "500", 700},
        {"medium", "500", 800},
        {"high", "500", 900},
        {"MINIMUM", "500", 700},
        {"MAXIMUM", "500", 900},
        {"", "500", 750},
        {"low", "1", 2}, // 1.4 rounds to 1, forced above
        {"medium", "0", 1},
    }
    for _, c := range cases {
        p := provider.Payload{Entries: []provider.RawEntry{{Date: "2025-12-02", Price: c.price, Ranking: c.ranking}}}
        tl, err := Normalize(window(), p)
        if err != nil {
            t.Fatal(err)
        }
        if tl.Summary.MaxPrice != c.wantMax || tl.Summary.MaxPrice <= tl.Summary.MinPrice {
            t.Fatalf("ranking %q price %s: max=%d want %d", c.ranking, c.price, tl.Summary.MaxPrice, c.wantMax)
        }
    }
}

func TestNormalize_EstimatedSkipsWindow(t *testing.T) {
    p := provider.Payload{Source: "synthetic", Estimated: true, Entries: []provider.RawEntry{
        {Date: "2026-03-01", Price: "700"},
        {Date: "2025-12-01", Price: "600"},
    }}
    tl, err := Normalize(window(), p)
    if err != nil {
        t.Fatal(err)
    }
    if len(tl.Observations) != 2 || !tl.Estimated {
        t.Fatalf("estimated payload must be kept whole: %+v", tl)
    }
}

func TestNormalize_CollapsedPastDatesKeepLatest(t *testing.T) {
    in := Input{Today: today, Currency: "EUR"}
    p := provider.Payload{Entries: []provider.RawEntry{
        {Date: "2025-10-28", Price: "300"},
        {Date: "2025-10-30", Price: "350"},
        {Date: "2025-11-05", Price: "400"},
    }}
    tl, err := Normalize(in, p)
    if err != nil {
        t.Fatal(err)
    }
    if len(tl.Observations) != 2 {
        t.Fatalf("want 2 observations, got %+v", tl.Observations)
    }
    last := tl.Observations[1]
    if last.DaysBefore != 0 || last.Date.Format(provider.DateLayout) != "2025-10-30" {
        t.Fatalf("want latest past date at 0, got %+v", last)
    }
}

func TestNormalize_EmptyIsTypedError(t *testing.T) {
    p := provider.Payload{Source: "flightsky", Entries: []provider.RawEntry{{Date: "2025-12-01", Price: "x"}}}
    _, err := Normalize(window(), p)
    var ee *provider.EmptyResultError
    if !errors.As(err, &ee) || ee.Provider != "flightsky" {
        t.Fatalf("want EmptyResultError for flightsky, got %v", err)
    }
}
