// Package geo computes distances between coordinates.
package geo

import (
	"fmt"
	"math"

	"routeopt/internal/apperror"
)

const (
	earthRadiusKm = 6371.0
	// RoadFactor converts great-circle distance into an approximate driving distance.
	RoadFactor = 1.3
	// MinLegKm is the shortest leg ever reported, including a leg between identical points.
	MinLegKm = 0.2
)

type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether p is a finite coordinate within ±90/±180.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string { return fmt.Sprintf("(%.6f,%.6f)", p.Lat, p.Lng) }

// Haversine returns the great-circle distance in kilometers.
func Haversine(a, b Point) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

// Road is the road-corrected leg distance in kilometers, never below MinLegKm.
// Inputs are assumed valid.
func Road(a, b Point) float64 {
	return math.Max(Haversine(a, b)*RoadFactor, MinLegKm)
}

// Distance is Road with input validation.
func Distance(a, b Point) (float64, error) {
	if !a.Valid() {
		return 0, apperror.Newf(apperror.CodeInvalidCoordinate, "invalid coordinate %s", a)
	}
	if !b.Valid() {
		return 0, apperror.Newf(apperror.CodeInvalidCoordinate, "invalid coordinate %s", b)
	}
	return Road(a, b), nil
}

// Centroid is the arithmetic mean of pts. It returns the zero Point for no input.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var lat, lng float64
	for _, p := range pts {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(pts))
	return Point{Lat: lat / n, Lng: lng / n}
}
