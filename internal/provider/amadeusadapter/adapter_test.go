package amadeusadapter

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
    "golang.org/x/oauth2"

    "fareadvisor/internal/provider"
    "fareadvisor/internal/provider/amadeus"
)

type upstream struct {
    tokenCalls   atomic.Int32
    metricsCalls atomic.Int32
    tokenStatus  int
    data         []map[string]any
}

func (u *upstream) handler(t *testing.T) http.Handler {
    mux := http.NewServeMux()
    mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
        u.tokenCalls.Add(1)
        require.NoError(t, r.ParseForm())
        require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
        require.Equal(t, "id", r.PostForm.Get("client_id"))
        if u.tokenStatus != 0 {
            w.Header().Set("Content-Type", "application/json")
            w.WriteHeader(u.tokenStatus)
            _, _ = w.Write([]byte(`{"error":"invalid_client"}`))
            return
        }
        w.Header().Set("Content-Type", "application/json")
        _ = json.NewEncoder(w).Encode(map[string]any{
            "access_token": "tok",
            "token_type":   "Bearer",
            "expires_in":   1799,
        })
    })
    mux.HandleFunc("/v1/analytics/itinerary-price-metrics", func(w http.ResponseWriter, r *http.Request) {
        u.metricsCalls.Add(1)
        if r.Header.Get("Authorization") != "Bearer tok" {
            w.WriteHeader(http.StatusUnauthorized)
            return
        }
        _ = json.NewEncoder(w).Encode(map[string]any{"data": u.data})
    })
    return mux
}

func newAdapter(t *testing.T, u *upstream, cfg Config) *Adapter {
    srv := httptest.NewServer(u.handler(t))
    t.Cleanup(srv.Close)

    client, err := amadeus.NewAmadeusAPIClient(amadeus.WithBaseURL(srv.URL), amadeus.WithHTTPClient(srv.Client()))
    require.NoError(t, err)
    cfg.TokenURL = srv.URL + "/v1/security/oauth2/token"
    cfg.TokenHTTP = srv.Client()
    return New(cfg, client)
}

func request(date string) provider.Request {
    d, _ := time.Parse(provider.DateLayout, date)
    return provider.Request{
        Route: provider.Route{Origin: "CDG", Destination: "JFK", Currency: "EUR", Start: d, End: d.AddDate(0, 0, 9)},
        Date:  d,
    }
}

var sampleData = []map[string]any{{
    "departureDate": "2025-12-03",
    "currencyCode":  "EUR",
    "priceMetrics": []map[string]any{
        {"amount": "212.50", "quartileRanking": "MINIMUM"},
        {"amount": "355.75", "quartileRanking": "MEDIUM"},
        {"amount": "690.00", "quartileRanking": "MAXIMUM"},
    },
}}

func TestFetch_MissingCredentials(t *testing.T) {
    t.Parallel()

    a := newAdapter(t, &upstream{}, Config{})
    _, err := a.Fetch(t.Context(), request("2025-12-03"))

    var ae *provider.AuthError
    require.ErrorAs(t, err, &ae)
    require.True(t, ae.Missing)
    require.Equal(t, provider.KindSingleDate, a.Kind())
}

func TestFetch_PricesOneDateAndReusesToken(t *testing.T) {
    t.Parallel()

    u := &upstream{data: sampleData}
    a := newAdapter(t, u, Config{ClientID: "id", ClientSecret: "secret"})

    p, err := a.Fetch(t.Context(), request("2025-12-03"))
    require.NoError(t, err)
    require.Equal(t, "amadeus", p.Source)
    require.Equal(t, "EUR", p.Currency)
    require.Len(t, p.Entries, 1)
    e := p.Entries[0]
    require.Equal(t, "2025-12-03", e.Date)
    require.Equal(t, "212.5", e.Price)
    require.Equal(t, "690", e.High)
    require.Equal(t, "MINIMUM", e.Ranking)

    _, err = a.Fetch(t.Context(), request("2025-12-04"))
    require.NoError(t, err)
    require.EqualValues(t, 1, u.tokenCalls.Load(), "token must be cached across fetches")

    a.InvalidateCredentials()
    _, err = a.Fetch(t.Context(), request("2025-12-04"))
    require.NoError(t, err)
    require.EqualValues(t, 2, u.tokenCalls.Load(), "invalidation forces a new exchange")
}

func TestFetch_RejectedCredentials(t *testing.T) {
    t.Parallel()

    u := &upstream{tokenStatus: http.StatusUnauthorized}
    a := newAdapter(t, u, Config{ClientID: "id", ClientSecret: "bad"})

    _, err := a.Fetch(t.Context(), request("2025-12-03"))
    var ae *provider.AuthError
    require.ErrorAs(t, err, &ae)
    require.False(t, ae.Missing)
    require.Equal(t, http.StatusUnauthorized, ae.Status)
    require.Zero(t, u.metricsCalls.Load())
}

func TestFetch_EmptyData(t *testing.T) {
    t.Parallel()

    a := newAdapter(t, &upstream{}, Config{ClientID: "id", ClientSecret: "secret"})
    _, err := a.Fetch(t.Context(), request("2025-12-03"))

    var ee *provider.EmptyResultError
    require.ErrorAs(t, err, &ee)
}

type staticTokens struct {
    calls  atomic.Int32
    expiry time.Time
}

func (s *staticTokens) Token(context.Context) (*oauth2.Token, error) {
    s.calls.Add(1)
    return &oauth2.Token{AccessToken: "tok", Expiry: s.expiry}, nil
}

func TestToken_NearExpiryIsNotCached(t *testing.T) {
    t.Parallel()

    u := &upstream{data: sampleData}
    srv := httptest.NewServer(u.handler(t))
    t.Cleanup(srv.Close)
    client, err := amadeus.NewAmadeusAPIClient(amadeus.WithBaseURL(srv.URL), amadeus.WithHTTPClient(srv.Client()))
    require.NoError(t, err)

    ts := &staticTokens{expiry: time.Now().Add(10 * time.Second)}
    a := New(Config{}, client, WithTokenSource(ts))

    for i := 0; i < 2; i++ {
        _, err := a.Fetch(t.Context(), request("2025-12-03"))
        require.NoError(t, err)
    }
    require.EqualValues(t, 2, ts.calls.Load())
}
