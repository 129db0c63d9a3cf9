// Package geo provides the great-circle math used by duplicate detection.
package geo

import "math"

const (
	earthRadiusMeters = 6371000.0

	// Degrees of latitude per meter, used for the coarse bounding box.
	degreesPerMeter = 1.0 / 111000.0
)

// Distance returns the great-circle distance in meters between two points
// given in degrees, using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// WithinRadius reports whether two points are at most radiusMeters apart.
func WithinRadius(lat1, lon1, lat2, lon2, radiusMeters float64) bool {
	return Distance(lat1, lon1, lat2, lon2) <= radiusMeters
}

// BoundingBox is a rectangular coordinate prefilter around a center point.
// It deliberately overshoots the true circle; candidates inside it still go
// through the precise Distance check.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// NewBoundingBox builds a box of radiusMeters around (lat, lon). The
// longitude delta is widened by 1/cos(lat) to correct for meridian
// convergence; this approximation degrades near the poles (cos(lat) -> 0),
// so the delta is clamped to a full hemisphere to keep queries well-formed.
func NewBoundingBox(lat, lon, radiusMeters float64) BoundingBox {
	latDelta := radiusMeters * degreesPerMeter

	lonDelta := 180.0
	if cos := math.Abs(math.Cos(lat * math.Pi / 180)); cos > 1e-6 {
		lonDelta = math.Min(latDelta/cos, 180.0)
	}

	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}
