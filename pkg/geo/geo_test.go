package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineKM(t *testing.T) {
	// Connaught Place to IIT Delhi, roughly 10.5 km apart.
	cp := Point{Lat: 28.6315, Lng: 77.2167}
	iitd := Point{Lat: 28.5456, Lng: 77.1926}

	dist := HaversineKM(cp, iitd)
	require.InDelta(t, 9.8, dist, 1.0)

	require.Zero(t, HaversineKM(cp, cp))
}

func TestTransitEstimate(t *testing.T) {
	c := Client{}

	route := c.TransitEstimate(Point{Lat: 28.6315, Lng: 77.2167}, Point{Lat: 28.5456, Lng: 77.1926})
	require.Equal(t, "transit", route.Profile)
	require.Greater(t, route.DistanceKM, 0.0)
	require.InDelta(t, route.DistanceKM/transitSpeedKmh*60, route.DurationMin, 0.01)
}
