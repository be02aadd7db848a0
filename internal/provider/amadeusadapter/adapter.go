package amadeusadapter

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/shopspring/decimal"
    "golang.org/x/oauth2"
    "golang.org/x/oauth2/clientcredentials"
    "golang.org/x/sync/singleflight"

    "fareadvisor/internal/httpx"
    "fareadvisor/internal/logger"
    "fareadvisor/internal/provider"
    "fareadvisor/internal/provider/amadeus"
    "fareadvisor/internal/provider/cache"
)

const tokenKey = "amadeus:access_token"

// TokenSource exchanges client credentials for an access token.
// *clientcredentials.Config satisfies it.
type TokenSource interface {
    Token(ctx context.Context) (*oauth2.Token, error)
}

type Config struct {
    ClientID     string
    ClientSecret string
    TokenURL     string        // default amadeus.TokenURL
    TokenTTL     time.Duration // upper bound on token reuse, default 30m
    TokenHTTP    *http.Client  // client used for the token exchange
}

// Adapter is the single-date analytics source. Each Fetch prices one
// departure date.
type Adapter struct {
    cfg    Config
    client *amadeus.AmadeusAPIClient
    tokens TokenSource
    store  *cache.Store[string]
    log    logger.Logger
    sf     singleflight.Group
}

type Option func(*Adapter)

// WithTokenSource replaces the client-credentials exchange.
func WithTokenSource(ts TokenSource) Option { return func(a *Adapter) { a.tokens = ts } }

// WithTokenStore shares the token cache.
func WithTokenStore(s *cache.Store[string]) Option { return func(a *Adapter) { a.store = s } }

func WithLogger(l logger.Logger) Option { return func(a *Adapter) { a.log = l } }

func New(cfg Config, client *amadeus.AmadeusAPIClient, opts ...Option) *Adapter {
    if cfg.TokenURL == "" { cfg.TokenURL = amadeus.TokenURL }
    if cfg.TokenTTL <= 0 { cfg.TokenTTL = 30 * time.Minute }
    a := &Adapter{cfg: cfg, client: client, log: logger.NewNop()}
    if cfg.ClientID != "" && cfg.ClientSecret != "" {
        a.tokens = &clientcredentials.Config{
            ClientID:     cfg.ClientID,
            ClientSecret: cfg.ClientSecret,
            TokenURL:     cfg.TokenURL,
            AuthStyle:    oauth2.AuthStyleInParams,
        }
    }
    for _, o := range opts { o(a) }
    if a.store == nil { a.store = cache.New[string]() }
    return a
}

func (a *Adapter) Name() string        { return amadeus.Name }
func (a *Adapter) Kind() provider.Kind { return provider.KindSingleDate }

// InvalidateCredentials drops the cached access token.
func (a *Adapter) InvalidateCredentials() { a.store.Delete(tokenKey) }

func (a *Adapter) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
    date := req.Date
    if date.IsZero() { date = req.Route.Start }

    tok, err := a.token(ctx)
    if err != nil { return provider.Payload{}, err }

    metrics, err := a.client.ItineraryPriceMetrics(ctx, req.Route.Origin, req.Route.Destination,
        date.Format(provider.DateLayout), req.Route.Currency, amadeus.WithBearerToken(tok))
    if err != nil { return provider.Payload{}, err }
    if len(metrics) == 0 || len(metrics[0].PriceMetrics) == 0 {
        return provider.Payload{}, &provider.EmptyResultError{Provider: amadeus.Name}
    }

    m := metrics[0]
    entry, ok := spread(m.PriceMetrics)
    if !ok {
        return provider.Payload{}, &provider.EmptyResultError{Provider: amadeus.Name}
    }
    entry.Date = m.DepartureDate
    if entry.Date == "" { entry.Date = date.Format(provider.DateLayout) }
    entry.Ranking = m.PriceMetrics[0].QuartileRanking

    currency := m.CurrencyCode
    if currency == "" { currency = req.Route.Currency }
    return provider.Payload{Source: amadeus.Name, Currency: currency, Entries: []provider.RawEntry{entry}}, nil
}

// spread keeps the lowest quartile amount as the price and the highest as
// the spread hint. Unparseable amounts are skipped.
func spread(pm []amadeus.PriceMetric) (provider.RawEntry, bool) {
    var lo, hi decimal.Decimal
    found := false
    for _, p := range pm {
        d, err := decimal.NewFromString(p.Amount)
        if err != nil { continue }
        if !found || d.LessThan(lo) { lo = d }
        if !found || d.GreaterThan(hi) { hi = d }
        found = true
    }
    if !found { return provider.RawEntry{}, false }
    return provider.RawEntry{Price: lo.String(), High: hi.String()}, true
}

// token returns the cached access token or performs one exchange shared by
// every concurrent caller.
func (a *Adapter) token(ctx context.Context) (string, error) {
    if a.tokens == nil {
        return "", &provider.AuthError{Provider: amadeus.Name, Missing: true}
    }
    if t, ok := a.store.Get(tokenKey); ok { return t, nil }

    v, err, _ := a.sf.Do(tokenKey, func() (any, error) {
        if a.cfg.TokenHTTP != nil {
            ctx = context.WithValue(ctx, oauth2.HTTPClient, a.cfg.TokenHTTP)
        }
        t, err := a.tokens.Token(ctx)
        if err != nil { return "", tokenError(err) }
        if t.AccessToken == "" {
            return "", &provider.AuthError{Provider: amadeus.Name, Err: errors.New("empty access token")}
        }
        ttl := a.cfg.TokenTTL
        if !t.Expiry.IsZero() {
            if left := time.Until(t.Expiry) - 30*time.Second; left < ttl { ttl = left }
        }
        a.store.Set(tokenKey, t.AccessToken, ttl)
        a.log.Info("amadeus token obtained", "ttl", ttl.String())
        return t.AccessToken, nil
    })
    if err != nil { return "", err }
    return v.(string), nil
}

func tokenError(err error) error {
    var re *oauth2.RetrieveError
    if errors.As(err, &re) && re.Response != nil {
        switch code := re.Response.StatusCode; {
        case code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden:
            return &provider.AuthError{Provider: amadeus.Name, Status: code, Err: err}
        case code == http.StatusTooManyRequests:
            return &provider.RateLimitError{Provider: amadeus.Name, RetryAfter: httpx.RetryAfter(re.Response.Header.Get("Retry-After"), time.Now())}
        default:
            return &provider.UpstreamError{Provider: amadeus.Name, Status: code, Err: err}
        }
    }
    return httpx.Transport(amadeus.Name, err)
}
