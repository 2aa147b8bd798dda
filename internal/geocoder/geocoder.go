// Package geocoder resolves place names and street addresses to coordinates
// through a MapQuest-compatible geocoding API, with an optional Redis cache.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/deppfellow/sitterbook/internal/config"
	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/deppfellow/sitterbook/internal/query"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Geocoder turns free-form places into locations.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (*model.Location, error)
	Resolve(ctx context.Context, place string) (query.Point, error)
}

// Client calls the provider's /geocoding/v1/address endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New returns a Client for cfg. Outgoing calls show up as external
// segments of the request's New Relic transaction.
func New(cfg *config.GeocoderConfig) *Client {
	return NewWithHTTPClient(cfg, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: newrelic.NewRoundTripper(http.DefaultTransport),
	})
}

func NewWithHTTPClient(cfg *config.GeocoderConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

type addressResponse struct {
	Info struct {
		StatusCode int      `json:"statuscode"`
		Messages   []string `json:"messages"`
	} `json:"info"`
	Results []struct {
		Locations []providerLocation `json:"locations"`
	} `json:"results"`
}

type providerLocation struct {
	Street     string `json:"street"`
	City       string `json:"adminArea5"`
	State      string `json:"adminArea3"`
	Country    string `json:"adminArea1"`
	PostalCode string `json:"postalCode"`
	LatLng     struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"latLng"`
}

// Geocode returns the provider's best match for place. Failures are
// *query.GeocodingError; a place without a match wraps query.ErrPlaceNotFound.
func (c *Client) Geocode(ctx context.Context, place string) (*model.Location, error) {
	loc, err := c.geocode(ctx, place)
	if err != nil {
		return nil, &query.GeocodingError{Place: place, Err: err}
	}
	return loc, nil
}

func (c *Client) geocode(ctx context.Context, place string) (*model.Location, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("location", place)
	params.Set("maxResults", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocoding/v1/address?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("provider responded with status %d", resp.StatusCode)
	}

	var body addressResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}

	if body.Info.StatusCode != 0 {
		return nil, fmt.Errorf("provider status %d: %s", body.Info.StatusCode, strings.Join(body.Info.Messages, "; "))
	}

	if len(body.Results) == 0 || len(body.Results[0].Locations) == 0 {
		return nil, query.ErrPlaceNotFound
	}

	return body.Results[0].Locations[0].toModel(), nil
}

// Resolve returns only the coordinates of Geocode's match.
func (c *Client) Resolve(ctx context.Context, place string) (query.Point, error) {
	return resolve(ctx, c, place)
}

func resolve(ctx context.Context, g Geocoder, place string) (query.Point, error) {
	loc, err := g.Geocode(ctx, place)
	if err != nil {
		return query.Point{}, err
	}
	return query.Point{Longitude: loc.Longitude(), Latitude: loc.Latitude()}, nil
}

func (l providerLocation) toModel() *model.Location {
	return &model.Location{
		Type:             model.PointType,
		Coordinates:      []float64{l.LatLng.Lng, l.LatLng.Lat},
		FormattedAddress: formatAddress(l.Street, l.City, l.State+" "+l.PostalCode, l.Country),
		Street:           l.Street,
		City:             l.City,
		State:            l.State,
		Zipcode:          l.PostalCode,
		Country:          l.Country,
	}
}

// formatAddress joins the non-blank parts with ", ".
func formatAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
