package cache

import (
    "context"
    "time"

    "fareadvisor/internal/provider"
)

// Provider memoizes successful payloads of the wrapped source per request for a TTL.
// Failures are never cached, so the next call goes upstream again.
type Provider struct {
    P     provider.Source
    TTL   time.Duration
    Store *Store[provider.Payload]
}

func (c *Provider) Name() string            { return c.P.Name() }
func (c *Provider) Kind() provider.Kind     { return c.P.Kind() }
func (c *Provider) Unwrap() provider.Source { return c.P }

// Fetch returns the cached payload when still valid, otherwise the fresh one.
func (c *Provider) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
    if c.Store == nil || c.TTL <= 0 {
        return c.P.Fetch(ctx, req)
    }
    key := req.Key(c.P.Name())
    if p, ok := c.Store.Get(key); ok {
        return p, nil
    }
    p, err := c.P.Fetch(ctx, req)
    if err != nil {
        return provider.Payload{}, err
    }
    // empty payloads are not worth remembering
    if len(p.Entries) > 0 {
        c.Store.Set(key, p, c.TTL)
    }
    return p, nil
}
