// README: Google Maps adapter for geocoding and route estimates.
package maps

import (
	"context"
	"fmt"
	"math"

	"googlemaps.github.io/maps"

	"tripmatch/internal/types"
)

// Route is the black-box answer for an (origin, destination) pair.
type Route struct {
	DistanceKm   float64
	DurationText string
	Polyline     string
}

// RouteService handles interactions with the Google Maps API. It is consumed by
// the gateway only; the matching core never calls it and never blocks on it.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Geocode resolves an opaque address string to coordinates.
func (s *RouteService) Geocode(ctx context.Context, address string) (types.Point, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address, Region: "IN"})
	if err != nil {
		return types.Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no geocode result for %q", address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// RouteEstimate returns distance, human-readable duration, and the overview
// polyline for a driving route between two addresses. When the Directions API
// has no route for the pair, the estimate falls back to the great-circle
// distance between the geocoded endpoints.
func (s *RouteService) RouteEstimate(ctx context.Context, origin, destination string) (Route, error) {
	routes, _, err := s.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Region:      "IN",
	})
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return s.straightLine(ctx, origin, destination)
	}

	leg := routes[0].Legs[0]
	return Route{
		DistanceKm:   float64(leg.Distance.Meters) / 1000,
		DurationText: leg.Duration.String(),
		Polyline:     routes[0].OverviewPolyline.Points,
	}, nil
}

func (s *RouteService) straightLine(ctx context.Context, origin, destination string) (Route, error) {
	from, err := s.Geocode(ctx, origin)
	if err != nil {
		return Route{}, err
	}
	to, err := s.Geocode(ctx, destination)
	if err != nil {
		return Route{}, err
	}
	return Route{DistanceKm: haversineKm(from, to)}, nil
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance in kilometres between two
// points given in decimal degrees.
func haversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
