package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
)

const (
	defaultPlacesURL            = "https://places.googleapis.com/v1"
	defaultRoutesURL            = "https://routes.googleapis.com/directions/v2:computeRoutes"
	autocompleteFieldMask       = "suggestions.placePrediction.placeId,suggestions.placePrediction.text"
	placeResolveFieldMask       = "id,formattedAddress,location"
	routeFieldMask              = "routes.distanceMeters,routes.duration"
	responseBodyReadLimit int64 = 1024
	defaultBreakerFailures      = 5
	defaultBreakerOpenFor       = 30 * time.Second
)

var errAPIKeyRequired = errors.New("google maps api key is required")

// ErrNoRoute is returned when the routes API finds no drivable path.
var ErrNoRoute = errors.New("no route between origin and destination")

// Client wraps the Google Places and Routes APIs used to place delivery addresses.
type Client struct {
	httpClient *http.Client
	placesURL  string
	routesURL  string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Places base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.placesURL = trimmed
		}
	}
}

// WithRoutesURL overrides the computeRoutes endpoint.
func WithRoutesURL(routesURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(routesURL); trimmed != "" {
			c.routesURL = trimmed
		}
	}
}

// NewClient builds the Google Maps client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		placesURL:  defaultPlacesURL,
		routesURL:  defaultRoutesURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    newBreaker(defaultBreakerFailures, defaultBreakerOpenFor),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// AutocompleteRequest describes the payload sent to the Places autocomplete API.
type AutocompleteRequest struct {
	Input               string   `json:"input"`
	IncludedRegionCodes []string `json:"includedRegionCodes,omitempty"`
	LanguageCode        string   `json:"languageCode,omitempty"`
}

// AutocompleteSuggestion holds the mapped data returned by the autocomplete API.
type AutocompleteSuggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// PlaceDetails is the normalized place-details payload.
type PlaceDetails struct {
	PlaceID          string
	FormattedAddress string
	Location         LatLng
}

// LatLng is a latitude/longitude pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Route is the driving distance and duration between two points.
type Route struct {
	DistanceMeters int
	Duration       time.Duration
}

// Autocomplete queries suggested places based on partial input.
func (c *Client) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]AutocompleteSuggestion, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "autocomplete input is required")
	}

	var apiResp struct {
		Suggestions []struct {
			Prediction struct {
				PlaceID string `json:"placeId"`
				Text    struct {
					Text string `json:"text"`
				} `json:"text"`
			} `json:"placePrediction"`
		} `json:"suggestions"`
	}
	endpoint := strings.TrimRight(c.placesURL, "/") + "/places:autocomplete"
	if err := c.do(ctx, http.MethodPost, endpoint, autocompleteFieldMask, req, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "autocomplete request failed")
	}

	suggestions := make([]AutocompleteSuggestion, 0, len(apiResp.Suggestions))
	for _, s := range apiResp.Suggestions {
		suggestions = append(suggestions, AutocompleteSuggestion{
			PlaceID:     s.Prediction.PlaceID,
			Description: s.Prediction.Text.Text,
		})
	}
	return suggestions, nil
}

// ResolvePlace fetches the canonical place data for the provided place ID.
func (c *Client) ResolvePlace(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	trimmed := strings.TrimSpace(placeID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place ID is required")
	}

	var apiResp struct {
		ID               string `json:"id"`
		FormattedAddress string `json:"formattedAddress"`
		Location         LatLng `json:"location"`
	}
	endpoint := fmt.Sprintf("%s/places/%s", strings.TrimRight(c.placesURL, "/"), url.PathEscape(trimmed))
	if err := c.do(ctx, http.MethodGet, endpoint, placeResolveFieldMask, nil, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place resolve request failed")
	}

	return &PlaceDetails{
		PlaceID:          apiResp.ID,
		FormattedAddress: apiResp.FormattedAddress,
		Location:         apiResp.Location,
	}, nil
}

// ComputeRoute asks the Routes API for the driving distance from origin to destination.
func (c *Client) ComputeRoute(ctx context.Context, origin, destination LatLng) (*Route, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}

	waypoint := func(p LatLng) map[string]any {
		return map[string]any{"location": map[string]any{"latLng": p}}
	}
	body := map[string]any{
		"origin":      waypoint(origin),
		"destination": waypoint(destination),
		"travelMode":  "DRIVE",
	}

	var apiResp struct {
		Routes []struct {
			DistanceMeters int    `json:"distanceMeters"`
			Duration       string `json:"duration"`
		} `json:"routes"`
	}
	if err := c.do(ctx, http.MethodPost, c.routesURL, routeFieldMask, body, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute route request failed")
	}
	if len(apiResp.Routes) == 0 {
		return nil, ErrNoRoute
	}

	first := apiResp.Routes[0]
	route := &Route{DistanceMeters: first.DistanceMeters}
	if first.Duration != "" {
		d, err := time.ParseDuration(first.Duration)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse route duration")
		}
		route.Duration = d
	}
	return route, nil
}

// do sends the request through the breaker. Only transport failures and 5xx
// answers count toward tripping it.
func (c *Client) do(ctx context.Context, method, endpoint, fieldMask string, payload, out any) error {
	if c.breaker == nil {
		return c.send(ctx, method, endpoint, fieldMask, payload, out)
	}

	var passthrough error
	_, err := c.breaker.Execute(func() (interface{}, error) {
		err := c.send(ctx, method, endpoint, fieldMask, payload, out)
		if err != nil && !countsAsFailure(ctx, err) {
			passthrough = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return err
	}
	return passthrough
}

func (c *Client) send(ctx context.Context, method, endpoint, fieldMask string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
