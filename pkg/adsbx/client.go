// Package adsbx provides a client for the ADS-B Exchange flight data
// API.
//
// ADS-B Exchange offers two endpoints: the direct globe feed (free,
// aggressively rate limited) and a RapidAPI-hosted v2 API (requires an
// API key, higher limits). The client converts reported values to SI
// units (meters, meters/second) unless configured otherwise.
//
// API Documentation: https://www.adsbexchange.com/version-2-api-wip/
package adsbx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/flightlog/pkg/filter"
	"github.com/unklstewy/flightlog/pkg/flight"
	"github.com/unklstewy/flightlog/pkg/geo"
)

const (
	// DirectBaseURL is the free globe feed base URL
	DirectBaseURL = "https://globe.adsbexchange.com/data"

	// RapidAPIBaseURL is the RapidAPI-hosted v2 API base URL
	RapidAPIBaseURL = "https://adsbexchange-com1.p.rapidapi.com/v2"

	// rapidAPIHost is the value of the X-RapidAPI-Host header
	rapidAPIHost = "adsbexchange-com1.p.rapidapi.com"

	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second
)

// Config contains configuration for the ADS-B Exchange client.
type Config struct {
	// APIKey is the RapidAPI key. Required when UseRapidAPI is true.
	APIKey string

	// UseRapidAPI selects the RapidAPI endpoint over the direct feed.
	UseRapidAPI bool

	// BaseURL overrides the endpoint base URL (used in tests).
	BaseURL string

	// RequestsPerSecond limits the API call rate (default: 1).
	RequestsPerSecond float64

	// Timeout for individual HTTP requests (default: 30s).
	Timeout time.Duration

	// RawUnits disables SI conversion, keeping the API's native
	// feet / knots / feet-per-minute values.
	RawUnits bool
}

// Client represents an ADS-B Exchange API client.
type Client struct {
	baseURL     string
	apiKey      string
	rapidAPI    bool
	rawUnits    bool
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a new ADS-B Exchange client.
// Returns an error if RapidAPI access is requested without an API key.
func NewClient(cfg Config) (*Client, error) {
	if cfg.UseRapidAPI && cfg.APIKey == "" {
		return nil, fmt.Errorf("API key required for RapidAPI access")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.UseRapidAPI {
			baseURL = RapidAPIBaseURL
		} else {
			baseURL = DirectBaseURL
		}
	}

	return &Client{
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		rapidAPI: cfg.UseRapidAPI,
		rawUnits: cfg.RawUnits,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

// AllFlights returns all currently tracked flights.
// Records with partial data are kept; only entries with no ICAO
// address at all are dropped. Position filtering is the caller's
// (typically a filter.Pipeline's) job.
func (c *Client) AllFlights(ctx context.Context) ([]flight.Record, error) {
	resp, err := c.fetch(ctx, "all")
	if err != nil {
		return nil, fmt.Errorf("fetch all flights: %w", err)
	}

	aircraft := resp.aircraft()
	records := make([]flight.Record, 0, len(aircraft))
	for _, ac := range aircraft {
		if ac.Hex == "" {
			continue
		}
		records = append(records, c.convert(ac, resp.Now))
	}
	return records, nil
}

// FlightByICAO returns the flight for a specific aircraft by its ICAO
// 24-bit hex address. Returns nil, nil if the aircraft is not
// currently tracked.
func (c *Client) FlightByICAO(ctx context.Context, icao string) (*flight.Record, error) {
	endpoint := "icao/" + strings.ToLower(icao)
	resp, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch flight %s: %w", icao, err)
	}

	aircraft := resp.aircraft()
	if len(aircraft) == 0 || aircraft[0].Hex == "" {
		return nil, nil
	}
	rec := c.convert(aircraft[0], resp.Now)
	return &rec, nil
}

// FlightsInBounds returns all tracked flights within the inclusive
// bounding box. The API has no bounds endpoint on the direct feed, so
// filtering happens client-side.
func (c *Client) FlightsInBounds(ctx context.Context, latMin, latMax, lonMin, lonMax float64) ([]flight.Record, error) {
	records, err := c.AllFlights(ctx)
	if err != nil {
		return nil, err
	}

	p := filter.New().AddBoundsFilter(latMin, latMax, lonMin, lonMax)
	return flight.Collect(p.Evaluate(flight.SliceSeq(records))), nil
}

// endpointURL maps a logical endpoint to a request URL. The direct
// globe feed serves the full aircraft list as aircraft.json.
func (c *Client) endpointURL(endpoint string) string {
	if !c.rapidAPI && endpoint == "all" {
		return c.baseURL + "/aircraft.json"
	}
	return c.baseURL + "/" + endpoint
}

// fetch performs a rate-limited GET against the API and decodes the
// response envelope.
func (c *Client) fetch(ctx context.Context, endpoint string) (*apiResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.rapidAPI {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", rapidAPIHost)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    "rate limit exceeded",
			Headers:    extractRateLimitHeaders(resp.Header),
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("parse API response: %w", err)
	}
	return &apiResp, nil
}

// apiResponse represents the JSON envelope from ADS-B Exchange.
// Depending on endpoint and API version the aircraft list arrives
// under either "aircraft" or "ac".
type apiResponse struct {
	Now      float64       `json:"now"`
	Messages uint64        `json:"messages"`
	Total    int           `json:"total"`
	Aircraft []apiAircraft `json:"aircraft"`
	AC       []apiAircraft `json:"ac"`
}

func (r *apiResponse) aircraft() []apiAircraft {
	if len(r.Aircraft) > 0 {
		return r.Aircraft
	}
	return r.AC
}

// apiAircraft represents a single aircraft in an API response.
// Optional fields are pointers; absent means the feed has no current
// value for that aircraft.
type apiAircraft struct {
	Hex      string  `json:"hex"`
	Flight   *string `json:"flight"`
	Reg      *string `json:"r"`
	RegLong  *string `json:"registration"`
	Type     *string `json:"t"`
	TypeLong *string `json:"type"`

	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`

	// These fields might be a number, a string (usually "ground"), or nil
	AltBaro json.Token `json:"alt_baro,omitempty"`
	AltGeom json.Token `json:"alt_geom,omitempty"`

	Gs       *float64 `json:"gs"`
	Track    *float64 `json:"track"`
	BaroRate *float64 `json:"baro_rate"`
	GeomRate *float64 `json:"geom_rate"`
	Squawk   *string  `json:"squawk"`

	// PosTime is the last position timestamp in milliseconds
	PosTime *float64 `json:"postime"`
}

// convert maps an API aircraft entry to a flight.Record, applying SI
// conversion unless the client was configured for raw units.
func (c *Client) convert(ac apiAircraft, now float64) flight.Record {
	rec := flight.Record{
		ICAO: strings.ToUpper(ac.Hex),
	}

	if ac.Flight != nil {
		rec.Callsign = strings.TrimSpace(*ac.Flight)
	}
	if ac.Reg != nil {
		rec.Registration = *ac.Reg
	} else if ac.RegLong != nil {
		rec.Registration = *ac.RegLong
	}
	if ac.Type != nil {
		rec.Type = *ac.Type
	} else if ac.TypeLong != nil {
		rec.Type = *ac.TypeLong
	}
	if ac.Squawk != nil {
		rec.Squawk = *ac.Squawk
	}

	rec.Latitude = ac.Lat
	rec.Longitude = ac.Lon

	// Altitude: prefer barometric, fall back to geometric
	alt := parseAltitude(ac.AltBaro)
	if alt == nil {
		alt = parseAltitude(ac.AltGeom)
	}
	rec.Altitude = c.scaled(alt, geo.FeetToMeters)

	rec.GroundSpeed = c.scaled(ac.Gs, geo.KnotsToMetersPerSecond)
	rec.Track = ac.Track

	vr := ac.BaroRate
	if vr == nil {
		vr = ac.GeomRate
	}
	rec.VerticalRate = c.scaled(vr, geo.FeetPerMinuteToMetersPerSecond)

	if ac.PosTime != nil {
		ts := time.UnixMilli(int64(*ac.PosTime)).UTC()
		rec.Timestamp = &ts
	} else if now > 0 {
		ts := time.Unix(int64(now), 0).UTC()
		rec.Timestamp = &ts
	}

	return rec
}

// scaled multiplies an optional value by factor, or passes it through
// untouched when the client reports raw units.
func (c *Client) scaled(v *float64, factor float64) *float64 {
	if v == nil || c.rawUnits {
		return v
	}
	scaled := *v * factor
	return &scaled
}

// parseAltitude safely extracts altitude from a JSON value that can be
// a number or a string. The feed reports "ground" for aircraft on the
// surface, which maps to 0; any other non-numeric value is treated as
// absent, never as an error.
func parseAltitude(val json.Token) *float64 {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case float64:
		return &v
	case string:
		if v == "ground" {
			zero := 0.0
			return &zero
		}
		return nil
	default:
		return nil
	}
}
