package httpx

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net"
    "net/http"
    "strconv"
    "strings"
    "time"

    "fareadvisor/internal/provider"
)

// MaxErrorBody bounds how much of a failed response body is kept in errors.
const MaxErrorBody = 2 << 10

// Client is a small wrapper around http.Client with shared transport settings.
type Client struct {
    HTTP      *http.Client
    UserAgent string
    Headers   map[string]string
}

func New(timeout time.Duration) *Client {
    transport := &http.Transport{
        Proxy:                 http.ProxyFromEnvironment,
        DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          50,
        MaxIdleConnsPerHost:   10,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   5 * time.Second,
        ExpectContinueTimeout: time.Second,
    }
    return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "fareadvisor/1.0"}
}

// Do sets default headers without overriding the ones already on req.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
    if ctx != nil && req.Context() != ctx {
        req = req.WithContext(ctx)
    }
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    for k, v := range c.Headers {
        if req.Header.Get(k) == "" {
            req.Header.Set(k, v)
        }
    }
    return c.HTTP.Do(req)
}

// GetJSON issues a GET with header and decodes a 2xx JSON body into out.
// Failures come back already classified for provider name.
func (c *Client) GetJSON(ctx context.Context, name, rawURL string, header http.Header, out any) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
    if err != nil {
        return fmt.Errorf("creating request: %w", err)
    }
    for k, vs := range header {
        for _, v := range vs {
            req.Header.Add(k, v)
        }
    }
    req.Header.Set("Accept", "application/json")
    resp, err := c.Do(ctx, req)
    if err != nil {
        return Transport(name, err)
    }
    if err := Classify(name, resp); err != nil {
        return err
    }
    defer resp.Body.Close()
    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        return &provider.UpstreamError{Provider: name, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
    }
    return nil
}

// Classify maps a response status onto the provider error taxonomy.
// 2xx yields nil and leaves the body untouched; otherwise the body is read
// (bounded) and closed.
func Classify(name string, resp *http.Response) error {
    if resp.StatusCode >= 200 && resp.StatusCode < 300 {
        return nil
    }
    defer resp.Body.Close()
    body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBody))
    text := strings.TrimSpace(string(body))

    switch resp.StatusCode {
    case http.StatusUnauthorized, http.StatusForbidden:
        return &provider.AuthError{Provider: name, Status: resp.StatusCode}
    case http.StatusTooManyRequests:
        return &provider.RateLimitError{Provider: name, RetryAfter: RetryAfter(resp.Header.Get("Retry-After"), time.Now())}
    }
    return &provider.UpstreamError{Provider: name, Status: resp.StatusCode, Body: text}
}

// Transport wraps a failure that happened before any response arrived.
// Context cancellation passes through unchanged.
func Transport(name string, err error) error {
    if err == nil {
        return nil
    }
    if errors.Is(err, context.Canceled) {
        return err
    }
    return &provider.UpstreamError{Provider: name, Err: err}
}

// RetryAfter parses a Retry-After header given either as seconds or as an
// HTTP date. Unparseable or past values yield 0.
func RetryAfter(v string, now time.Time) time.Duration {
    v = strings.TrimSpace(v)
    if v == "" {
        return 0
    }
    if secs, err := strconv.Atoi(v); err == nil {
        if secs < 0 {
            return 0
        }
        return time.Duration(secs) * time.Second
    }
    if at, err := http.ParseTime(v); err == nil {
        if d := at.Sub(now); d > 0 {
            return d
        }
    }
    return 0
}
