package googlecal

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/url"
    "sort"
    "strings"
    "time"

    "fareadvisor/internal/httpx"
    "fareadvisor/internal/logger"
    "fareadvisor/internal/provider"
    "fareadvisor/internal/resolver"
)

const Name = "google"

type Config struct {
    Host     string
    Key      string
    Language string
    Location string
    Currency string
    Adults   int
    BaseURL  string // overrides https://<Host>

    ResolverTTL time.Duration // entity id cache lifetime, default resolver.DefaultTTL
}

// Provider reads the roundtrip price calendar: departures across the window
// with the return fixed at the window end.
type Provider struct {
    cfg      Config
    client   *httpx.Client
    resolver *resolver.Resolver
    log      logger.Logger
}

type Option func(*Provider)

func WithResolver(r *resolver.Resolver) Option { return func(p *Provider) { p.resolver = r } }

func WithLogger(l logger.Logger) Option { return func(p *Provider) { p.log = l } }

func New(cfg Config, hc *httpx.Client, opts ...Option) *Provider {
    if cfg.Language == "" { cfg.Language = "en-US" }
    if cfg.Location == "" { cfg.Location = "US" }
    if cfg.Currency == "" { cfg.Currency = "USD" }
    if cfg.Adults <= 0 { cfg.Adults = 1 }
    if cfg.BaseURL == "" && cfg.Host != "" { cfg.BaseURL = "https://" + cfg.Host }
    cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
    p := &Provider{cfg: cfg, client: hc, log: logger.NewNop()}
    for _, o := range opts { o(p) }
    if p.resolver == nil {
        p.resolver = resolver.New(Name, p, resolver.WithLogger(p.log), resolver.WithTTL(cfg.ResolverTTL))
    }
    return p
}

func (p *Provider) Name() string        { return Name }
func (p *Provider) Kind() provider.Kind { return provider.KindRange }

func (p *Provider) Configured() bool { return p.cfg.Host != "" && p.cfg.Key != "" }

func (p *Provider) header() http.Header {
    h := http.Header{}
    h.Set("X-RapidAPI-Key", p.cfg.Key)
    h.Set("X-RapidAPI-Host", p.cfg.Host)
    return h
}

// cabinCode maps the cabin onto the calendar API numeric class.
func cabinCode(c provider.CabinClass) string {
    switch c {
    case provider.Business:
        return "3"
    case provider.First:
        return "4"
    }
    return "1"
}

type calendarResponse struct {
    Status *bool `json:"status"`
    Data   []struct {
        DepartureDate string       `json:"departureDate"`
        ArrivalDate   string       `json:"arrivalDate"`
        Price         *json.Number `json:"price"`
    } `json:"data"`
}

type trip struct {
    departure, arrival string
    price              string
    length             int
}

func (p *Provider) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
    if !p.Configured() {
        return provider.Payload{}, &provider.AuthError{Provider: Name, Missing: true}
    }
    from, err := p.resolver.Resolve(ctx, req.Route.Origin)
    if err != nil { return provider.Payload{}, err }
    to, err := p.resolver.Resolve(ctx, req.Route.Destination)
    if err != nil { return provider.Payload{}, err }

    currency := req.Route.Currency
    if currency == "" { currency = p.cfg.Currency }

    q := url.Values{}
    q.Set("departureId", from)
    q.Set("arrivalId", to)
    q.Set("departureDate", req.Route.Start.Format(provider.DateLayout))
    q.Set("arrivalDate", req.Route.End.Format(provider.DateLayout))
    q.Set("language", p.cfg.Language)
    q.Set("location", p.cfg.Location)
    q.Set("currency", currency)
    q.Set("adults", fmt.Sprint(p.cfg.Adults))
    q.Set("children", "0")
    q.Set("infantsInSeat", "0")
    q.Set("infantsOnLap", "0")
    q.Set("cabinClass", cabinCode(req.Route.Cabin))

    var body calendarResponse
    if err := p.client.GetJSON(ctx, Name, p.cfg.BaseURL+"/google/price-calendar/for-roundtrip?"+q.Encode(), p.header(), &body); err != nil {
        return provider.Payload{}, err
    }
    if body.Data == nil || (body.Status != nil && !*body.Status) {
        return provider.Payload{}, &provider.UpstreamError{Provider: Name, Status: http.StatusOK, Err: errors.New("invalid price calendar response")}
    }

    trips := make([]trip, 0, len(body.Data))
    for _, d := range body.Data {
        if d.Price == nil { continue }
        dep, err1 := time.Parse(provider.DateLayout, d.DepartureDate)
        arr, err2 := time.Parse(provider.DateLayout, d.ArrivalDate)
        if err1 != nil || err2 != nil { continue }
        trips = append(trips, trip{
            departure: d.DepartureDate,
            arrival:   d.ArrivalDate,
            price:     d.Price.String(),
            length:    max(0, int(arr.Sub(dep).Hours()/24)),
        })
    }
    sort.Slice(trips, func(i, j int) bool {
        if trips[i].departure == trips[j].departure {
            return trips[i].arrival < trips[j].arrival
        }
        return trips[i].departure < trips[j].departure
    })

    out := provider.Payload{Source: Name, Currency: currency}
    seen := make(map[string]struct{}, len(trips))
    for _, tr := range trips {
        if _, dup := seen[tr.departure]; dup { continue }
        seen[tr.departure] = struct{}{}
        out.Entries = append(out.Entries, provider.RawEntry{
            Date:  tr.departure,
            Price: tr.price,
            Note:  fmt.Sprintf("return on %s (%d-day trip)", tr.arrival, tr.length),
        })
    }
    if len(out.Entries) == 0 {
        return provider.Payload{}, &provider.EmptyResultError{Provider: Name}
    }
    return out, nil
}

type airportResponse struct {
    Data []struct {
        ID       string `json:"id"`
        Code     string `json:"code"`
        Title    string `json:"title"`
        Type     string `json:"type"`
        Airports []struct {
            ID    string `json:"id"`
            Code  string `json:"code"`
            Title string `json:"title"`
        } `json:"airports"`
    } `json:"data"`
}

// Autocomplete implements resolver.Lookup over the airport search endpoint.
// Nested airports of a city result are flattened after their parent.
func (p *Provider) Autocomplete(ctx context.Context, query string) ([]resolver.Candidate, error) {
    q := url.Values{}
    q.Set("query", query)
    q.Set("language", p.cfg.Language)
    var body airportResponse
    if err := p.client.GetJSON(ctx, Name, p.cfg.BaseURL+"/google/airport/search?"+q.Encode(), p.header(), &body); err != nil {
        return nil, err
    }
    var out []resolver.Candidate
    for _, d := range body.Data {
        out = append(out, resolver.Candidate{ID: d.ID, Code: d.Code, Label: d.Title})
        for _, a := range d.Airports {
            out = append(out, resolver.Candidate{ID: a.ID, Code: a.Code, Label: a.Title})
        }
    }
    return out, nil
}
