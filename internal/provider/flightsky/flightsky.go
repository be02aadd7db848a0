package flightsky

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/url"
    "strings"
    "time"

    "fareadvisor/internal/httpx"
    "fareadvisor/internal/logger"
    "fareadvisor/internal/provider"
    "fareadvisor/internal/resolver"
)

const Name = "flightsky"

type Config struct {
    Host     string // RapidAPI host, also used to build the base URL
    Key      string
    Market   string
    Locale   string
    Currency string
    BaseURL  string // overrides https://<Host>

    ResolverTTL time.Duration // entity id cache lifetime, default resolver.DefaultTTL
}

// Provider prices a whole window with one price-calendar call. Airport codes
// are turned into sky entity ids through the auto-complete endpoint.
type Provider struct {
    cfg      Config
    client   *httpx.Client
    resolver *resolver.Resolver
    log      logger.Logger
}

type Option func(*Provider)

// WithResolver replaces the default auto-complete backed resolver.
func WithResolver(r *resolver.Resolver) Option { return func(p *Provider) { p.resolver = r } }

func WithLogger(l logger.Logger) Option { return func(p *Provider) { p.log = l } }

func New(cfg Config, hc *httpx.Client, opts ...Option) *Provider {
    if cfg.Market == "" { cfg.Market = "FR" }
    if cfg.Locale == "" { cfg.Locale = "fr-FR" }
    if cfg.Currency == "" { cfg.Currency = "EUR" }
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

// Configured reports whether credentials are present.
func (p *Provider) Configured() bool { return p.cfg.Host != "" && p.cfg.Key != "" }

func (p *Provider) header() http.Header {
    h := http.Header{}
    h.Set("X-RapidAPI-Key", p.cfg.Key)
    h.Set("X-RapidAPI-Host", p.cfg.Host)
    return h
}

type calendarResponse struct {
    Status bool `json:"status"`
    Data   struct {
        Flights *struct {
            Days []struct {
                Day   string       `json:"day"`
                Group string       `json:"group"`
                Price *json.Number `json:"price"`
            } `json:"days"`
            CurrencyCode string `json:"currencyCode"`
        } `json:"flights"`
    } `json:"data"`
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
    q.Set("fromEntityId", from)
    q.Set("toEntityId", to)
    q.Set("departDate", req.Route.Start.Format(provider.DateLayout))
    q.Set("market", p.cfg.Market)
    q.Set("locale", p.cfg.Locale)
    q.Set("currency", currency)

    var body calendarResponse
    if err := p.client.GetJSON(ctx, Name, p.cfg.BaseURL+"/flights/price-calendar?"+q.Encode(), p.header(), &body); err != nil {
        return provider.Payload{}, err
    }
    if !body.Status || body.Data.Flights == nil {
        return provider.Payload{}, &provider.UpstreamError{Provider: Name, Status: http.StatusOK, Err: errors.New("invalid price calendar response")}
    }

    cal := body.Data.Flights
    out := provider.Payload{Source: Name, Currency: currency, Entries: make([]provider.RawEntry, 0, len(cal.Days))}
    for _, d := range cal.Days {
        if d.Day == "" || d.Price == nil { continue }
        group := d.Group
        if group == "" { group = "low" }
        out.Entries = append(out.Entries, provider.RawEntry{Date: d.Day, Price: d.Price.String(), Ranking: group})
    }
    if len(out.Entries) == 0 {
        return provider.Payload{}, &provider.EmptyResultError{Provider: Name}
    }
    p.log.Debug("flightsky calendar", "from", from, "to", to, "days", len(out.Entries))
    return out, nil
}

type autocompleteResponse struct {
    Status bool `json:"status"`
    Data   []struct {
        Presentation struct {
            Title           string `json:"title"`
            SuggestionTitle string `json:"suggestionTitle"`
            SkyID           string `json:"skyId"`
        } `json:"presentation"`
        Navigation struct {
            EntityID             string `json:"entityId"`
            EntityType           string `json:"entityType"`
            RelevantFlightParams struct {
                SkyID    string `json:"skyId"`
                EntityID string `json:"entityId"`
            } `json:"relevantFlightParams"`
        } `json:"navigation"`
    } `json:"data"`
}

// Autocomplete implements resolver.Lookup.
func (p *Provider) Autocomplete(ctx context.Context, query string) ([]resolver.Candidate, error) {
    q := url.Values{}
    q.Set("query", query)
    var body autocompleteResponse
    if err := p.client.GetJSON(ctx, Name, p.cfg.BaseURL+"/flights/auto-complete?"+q.Encode(), p.header(), &body); err != nil {
        return nil, err
    }
    out := make([]resolver.Candidate, 0, len(body.Data))
    for _, d := range body.Data {
        id := d.Navigation.RelevantFlightParams.EntityID
        if id == "" { id = d.Navigation.EntityID }
        code := d.Presentation.SkyID
        if code == "" { code = d.Navigation.RelevantFlightParams.SkyID }
        label := d.Presentation.SuggestionTitle
        if label == "" { label = d.Presentation.Title }
        out = append(out, resolver.Candidate{ID: id, Code: code, Label: label})
    }
    return out, nil
}
