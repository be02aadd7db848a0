package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"

	"fareadvisor/internal/httpx"
	"fareadvisor/internal/provider"
)

// Name is the provider name used in errors and logs.
const Name = "amadeus"

// PriceMetric is one quartile of the historical fare distribution.
type PriceMetric struct {
	Amount          string `json:"amount"`
	QuartileRanking string `json:"quartileRanking"`
}

// Location is an airport reference.
type Location struct {
	IataCode string `json:"iataCode"`
}

// ItineraryPriceMetric is the price analysis for one itinerary and date.
type ItineraryPriceMetric struct {
	Type          string        `json:"type"`
	Origin        Location      `json:"origin"`
	Destination   Location      `json:"destination"`
	DepartureDate string        `json:"departureDate"`
	TransportType string        `json:"transportType"`
	CurrencyCode  string        `json:"currencyCode"`
	OneWay        bool          `json:"oneWay"`
	PriceMetrics  []PriceMetric `json:"priceMetrics"`
}

type itineraryPriceMetricsResponse struct {
	Data []ItineraryPriceMetric `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Status int    `json:"status"`
		Code   int    `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// ItineraryPriceMetrics retrieves the fare quartiles for a one-way itinerary
// departing on departureDate (YYYY-MM-DD).
func (c *AmadeusAPIClient) ItineraryPriceMetrics(ctx context.Context, origin, destination, departureDate, currency string, opts ...AmadeusAPIClientOption) ([]ItineraryPriceMetric, error) {
	override := c.with(opts)

	query := maps.Clone(override.query)
	query.Set("originIataCode", origin)
	query.Set("destinationIataCode", destination)
	query.Set("departureDate", departureDate)
	if currency != "" {
		query.Set("currencyCode", currency)
	}

	url := fmt.Sprintf("%s/v1/analytics/itinerary-price-metrics?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, httpx.Transport(Name, err)
	}
	if err := httpx.Classify(Name, res); err != nil {
		return nil, withDetail(err)
	}
	defer res.Body.Close()

	var body itineraryPriceMetricsResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &provider.UpstreamError{Provider: Name, Status: res.StatusCode, Err: fmt.Errorf("decoding price metrics: %w", err)}
	}
	return body.Data, nil
}

// withDetail lifts the first errors[].detail of an Amadeus error body into
// the upstream error cause.
func withDetail(err error) error {
	var ue *provider.UpstreamError
	if !errors.As(err, &ue) || ue.Body == "" || ue.Err != nil {
		return err
	}
	var er errorResponse
	if json.Unmarshal([]byte(ue.Body), &er) == nil && len(er.Errors) > 0 && er.Errors[0].Detail != "" {
		ue.Err = errors.New(er.Errors[0].Detail)
	}
	return err
}
