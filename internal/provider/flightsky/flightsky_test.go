package flightsky

import (
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "fareadvisor/internal/httpx"
    "fareadvisor/internal/provider"
)

const autocompleteBody = `{
  "status": true,
  "data": [
    {"presentation": {"title": "Paris", "suggestionTitle": "Paris (Any)", "skyId": "PARI"},
     "navigation": {"entityId": "27539733", "entityType": "CITY", "relevantFlightParams": {"skyId": "PARI", "entityId": "27539733"}}},
    {"presentation": {"title": "Paris Charles de Gaulle", "suggestionTitle": "Paris Charles de Gaulle (CDG)", "skyId": "CDG"},
     "navigation": {"entityId": "95565041", "entityType": "AIRPORT", "relevantFlightParams": {"skyId": "CDG", "entityId": "95565041"}}},
    {"presentation": {"title": "New York John F. Kennedy", "suggestionTitle": "New York John F. Kennedy (JFK)", "skyId": ""},
     "navigation": {"entityId": "95565058", "entityType": "AIRPORT", "relevantFlightParams": {"skyId": "", "entityId": "95565058"}}}
  ]
}`

const calendarBody = `{
  "status": true,
  "data": {"flights": {"currencyCode": "EUR", "days": [
    {"day": "2025-12-01", "group": "low", "price": 412.4},
    {"day": "2025-12-02", "group": "medium", "price": 530},
    {"day": "2025-12-03", "price": 389},
    {"day": "2025-12-04", "group": "high", "price": null},
    {"day": "", "group": "high", "price": 900}
  ]}}
}`

type fakeSky struct {
    autocompleteCalls atomic.Int32
    calendarStatus    int
    calendar          string
}

func (f *fakeSky) server(t *testing.T) *httptest.Server {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        require.Equal(t, "key", r.Header.Get("X-RapidAPI-Key"))
        require.Equal(t, "sky.example", r.Header.Get("X-RapidAPI-Host"))
        switch r.URL.Path {
        case "/flights/auto-complete":
            f.autocompleteCalls.Add(1)
            _, _ = w.Write([]byte(autocompleteBody))
        case "/flights/price-calendar":
            q := r.URL.Query()
            require.Equal(t, "95565041", q.Get("fromEntityId"))
            require.Equal(t, "95565058", q.Get("toEntityId"))
            require.Equal(t, "2025-12-01", q.Get("departDate"))
            require.Equal(t, "FR", q.Get("market"))
            require.Equal(t, "fr-FR", q.Get("locale"))
            require.Equal(t, "EUR", q.Get("currency"))
            if f.calendarStatus != 0 {
                w.WriteHeader(f.calendarStatus)
                return
            }
            _, _ = w.Write([]byte(f.calendar))
        default:
            w.WriteHeader(http.StatusNotFound)
        }
    }))
    t.Cleanup(srv.Close)
    return srv
}

func route() provider.Request {
    start := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
    return provider.Request{Route: provider.Route{
        Origin: "CDG", Destination: "JFK", Currency: "EUR", Cabin: provider.Economy,
        Start: start, End: start.AddDate(0, 0, 9),
    }}
}

func newProvider(t *testing.T, f *fakeSky) *Provider {
    srv := f.server(t)
    return New(Config{Host: "sky.example", Key: "key", BaseURL: srv.URL}, httpx.New(time.Second))
}

func TestFetch_ResolvesAndMapsCalendar(t *testing.T) {
    t.Parallel()

    f := &fakeSky{calendar: calendarBody}
    p := newProvider(t, f)

    payload, err := p.Fetch(t.Context(), route())
    require.NoError(t, err)
    require.Equal(t, "flightsky", payload.Source)
    require.Equal(t, "EUR", payload.Currency)
    require.Equal(t, []provider.RawEntry{
        {Date: "2025-12-01", Price: "412.4", Ranking: "low"},
        {Date: "2025-12-02", Price: "530", Ranking: "medium"},
        {Date: "2025-12-03", Price: "389", Ranking: "low"},
    }, payload.Entries)

    _, err = p.Fetch(t.Context(), route())
    require.NoError(t, err)
    require.EqualValues(t, 2, f.autocompleteCalls.Load(), "one lookup per endpoint, then cached")
    require.Equal(t, provider.KindRange, p.Kind())
}

func TestFetch_MissingCredentials(t *testing.T) {
    t.Parallel()

    p := New(Config{}, httpx.New(time.Second))
    _, err := p.Fetch(t.Context(), route())
    var ae *provider.AuthError
    require.ErrorAs(t, err, &ae)
    require.True(t, ae.Missing)
    require.False(t, p.Configured())
}

func TestFetch_ErrorShapes(t *testing.T) {
    t.Parallel()

    t.Run("quota exceeded", func(t *testing.T) {
        t.Parallel()
        p := newProvider(t, &fakeSky{calendarStatus: http.StatusTooManyRequests})
        _, err := p.Fetch(t.Context(), route())
        var rl *provider.RateLimitError
        require.ErrorAs(t, err, &rl)
    })

    t.Run("status false", func(t *testing.T) {
        t.Parallel()
        p := newProvider(t, &fakeSky{calendar: `{"status": false, "message": "quota"}`})
        _, err := p.Fetch(t.Context(), route())
        var ue *provider.UpstreamError
        require.ErrorAs(t, err, &ue)
        require.False(t, ue.Transient())
    })

    t.Run("no usable days", func(t *testing.T) {
        t.Parallel()
        p := newProvider(t, &fakeSky{calendar: `{"status": true, "data": {"flights": {"days": []}}}`})
        _, err := p.Fetch(t.Context(), route())
        var ee *provider.EmptyResultError
        require.ErrorAs(t, err, &ee)
    })
}

func TestAutocompleteCandidates(t *testing.T) {
    t.Parallel()

    p := newProvider(t, &fakeSky{})
    cands, err := p.Autocomplete(t.Context(), "CDG")
    require.NoError(t, err)
    require.Len(t, cands, 3)
    require.Equal(t, "95565041", cands[1].ID)
    require.Equal(t, "CDG", cands[1].Code)
    require.Equal(t, "", cands[2].Code)
    require.Equal(t, "New York John F. Kennedy (JFK)", cands[2].Label)
}
