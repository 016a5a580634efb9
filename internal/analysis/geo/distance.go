// Package geo converts coordinate pairs into road-distance estimates and
// transport costs for intra-regional hauling.
package geo

import (
	"fmt"
	"math"
	"strings"
)

// KmPerDegree is the length of one degree of latitude.
const KmPerDegree = 111.0

// earthRadiusKm is the mean Earth radius used by Haversine.
const earthRadiusKm = 6371.0

// DistanceFunc returns the distance in km between a reference point
// (lat1, lon1) and a target point (lat2, lon2).
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

// Model names accepted by ModelByName.
const (
	ModelPlanar    = "planar"
	ModelHaversine = "haversine"
)

// Planar is a small-angle approximation valid for distances under roughly
// 150 km. The longitude delta is scaled by the cosine of the reference
// latitude. Error grows with distance and latitude; it never fails.
func Planar(lat1, lon1, lat2, lon2 float64) float64 {
	dy := (lat2 - lat1) * KmPerDegree
	dx := (lon2 - lon1) * KmPerDegree * math.Cos(lat1*math.Pi/180)
	return math.Sqrt(dx*dx + dy*dy)
}

// Haversine returns the great-circle distance between the two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ModelByName resolves a configured distance model. The empty name
// selects Planar.
func ModelByName(name string) (DistanceFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ModelPlanar:
		return Planar, nil
	case ModelHaversine:
		return Haversine, nil
	default:
		return nil, fmt.Errorf("unknown distance model %q (want %q or %q)", name, ModelPlanar, ModelHaversine)
	}
}

// TransportCost is distance × rate. Non-positive distances cost nothing.
func TransportCost(distanceKm, ratePerKm float64) float64 {
	if distanceKm <= 0 {
		return 0
	}
	return distanceKm * ratePerKm
}
