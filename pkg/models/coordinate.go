package models

import (
	"math"
	"time"
)

// Plausible bounding box for the UK, WGS84.
const (
	ukMinLat = 49.8
	ukMaxLat = 60.9
	ukMinLon = -8.7
	ukMaxLon = 2.0
)

// Coordinate is one resolved address location. Only validated coordinates
// are ever persisted; an invalid resolution is retried on the next call.
type Coordinate struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Provider   string    `json:"provider"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Valid reports whether the coordinate is finite and inside the UK
// bounding box.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= ukMinLat && c.Lat <= ukMaxLat && c.Lon >= ukMinLon && c.Lon <= ukMaxLon
}
