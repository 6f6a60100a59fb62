// Package geometry builds the connector drawn between a shipment's two markers.
package geometry

import "github.com/UnknownOlympus/hermes/internal/models"

// DefaultCurvature is the bow applied to connectors on the map.
const DefaultCurvature = 0.2

// Point is a latitude/longitude pair as the map library expects it.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PointOf extracts the coordinates of a location.
func PointOf(loc models.Location) Point {
	return Point{Lat: loc.Lat, Lng: loc.Lng}
}

// Curve returns a three-point polyline from start to end bowed by DefaultCurvature.
func Curve(start, end Point) [3]Point {
	return CurveWith(start, end, DefaultCurvature)
}

// CurveWith returns [start, mid, end] where mid is the midpoint shifted by k times the
// span along the opposite axis, so the latitude offset comes from the longitude span and
// vice versa. NaN inputs propagate.
func CurveWith(start, end Point, k float64) [3]Point {
	mid := Point{
		Lat: (start.Lat+end.Lat)/2 + (end.Lng-start.Lng)*k,
		Lng: (start.Lng+end.Lng)/2 + (end.Lat-start.Lat)*k,
	}
	return [3]Point{start, mid, end}
}
