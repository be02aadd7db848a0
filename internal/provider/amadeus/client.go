package amadeus

import (
	"net/http"
	"net/url"
)

// DefaultBaseURL is the Amadeus self-service test environment.
const DefaultBaseURL = "https://test.api.amadeus.com"

// TokenURL is the OAuth2 client-credentials endpoint.
const TokenURL = DefaultBaseURL + "/v1/security/oauth2/token"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=amadeus_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AmadeusAPIClient is a client for the Amadeus self-service API.
type AmadeusAPIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// AmadeusAPIClientOption is a configuration option for the Amadeus API client.
type AmadeusAPIClientOption func(*AmadeusAPIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) AmadeusAPIClientOption {
	return func(c *AmadeusAPIClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) AmadeusAPIClientOption {
	return func(c *AmadeusAPIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) AmadeusAPIClientOption {
	return func(c *AmadeusAPIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithBearerToken authenticates the request with an OAuth2 access token.
// It replaces any Authorization header already present.
func WithBearerToken(token string) AmadeusAPIClientOption {
	return func(c *AmadeusAPIClient) {
		c.header.Set("Authorization", "Bearer "+token)
	}
}

// NewAmadeusAPIClient creates a new Amadeus API client.
func NewAmadeusAPIClient(options ...AmadeusAPIClientOption) (*AmadeusAPIClient, error) {
	var amadeusAPIClient = &AmadeusAPIClient{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	amadeusAPIClient.header.Set("Accept", "application/json")
	for _, option := range options {
		option(amadeusAPIClient)
	}
	return amadeusAPIClient, nil
}

// with applies per-call options on a copy of the client.
func (c *AmadeusAPIClient) with(opts []AmadeusAPIClientOption) *AmadeusAPIClient {
	var override = &AmadeusAPIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}
	return override
}
