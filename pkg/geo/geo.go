// Package geo resolves addresses and travel routes using the public
// Nominatim and OSRM HTTP APIs, with a haversine fallback when routing
// is unavailable.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	nominatimBaseURL = "https://nominatim.openstreetmap.org"
	osrmBaseURL      = "https://router.project-osrm.org"

	walkSpeedKmh    = 4.5
	transitSpeedKmh = 20.0
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Route describes travel between two points.
type Route struct {
	DistanceKM  float64
	DurationMin float64
	Profile     string
}

// Client queries the geocoding and routing services.
type Client struct {
	http   *http.Client
	logger zerolog.Logger
}

// New constructs a geo client.
func New(logger zerolog.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "geo").Logger(),
	}
}

// Geocode resolves a free-form address to a coordinate via Nominatim.
func (c *Client) Geocode(ctx context.Context, address string) (Point, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", nominatimBaseURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "rentease-api/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return Point{}, fmt.Errorf("no geocode result for address")
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude in geocode response: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude in geocode response: %w", err)
	}

	return Point{Lat: lat, Lng: lng}, nil
}

// WalkingRoute returns the walking route between two points. OSRM failures
// fall back to a haversine estimate so property onboarding never blocks on
// the routing service.
func (c *Client) WalkingRoute(ctx context.Context, from, to Point) Route {
	if route, err := c.osrmRoute(ctx, "foot", from, to); err == nil {
		return route
	} else {
		c.logger.Warn().Err(err).Msg("osrm walking route failed, using haversine estimate")
	}
	return estimateRoute("foot", from, to, walkSpeedKmh)
}

// TransitEstimate approximates public-transport travel time from straight
// line distance. There is no free transit routing API, so this stays an
// estimate.
func (c *Client) TransitEstimate(from, to Point) Route {
	return estimateRoute("transit", from, to, transitSpeedKmh)
}

func (c *Client) osrmRoute(ctx context.Context, profile string, from, to Point) (Route, error) {
	endpoint := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=false",
		osrmBaseURL, profile, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Route{}, fmt.Errorf("failed to build route request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("route request returned status %d", resp.StatusCode)
	}

	var body struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Route{}, fmt.Errorf("failed to decode route response: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return Route{}, fmt.Errorf("no route found")
	}

	return Route{
		DistanceKM:  body.Routes[0].Distance / 1000,
		DurationMin: body.Routes[0].Duration / 60,
		Profile:     profile,
	}, nil
}

func estimateRoute(profile string, from, to Point, speedKmh float64) Route {
	dist := HaversineKM(from, to)
	return Route{
		DistanceKM:  dist,
		DurationMin: dist / speedKmh * 60,
		Profile:     profile,
	}
}

// HaversineKM is the great-circle distance between two points in kilometers.
func HaversineKM(a, b Point) float64 {
	const earthRadiusKM = 6371.0

	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
