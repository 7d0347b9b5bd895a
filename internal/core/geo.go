package core

import (
	"math"
	"slices"
	"strings"

	"github.com/dkeye/Nearby/internal/domain"
)

const (
	EarthRadiusMeters   = 6_371_000.0
	DefaultRadiusMeters = 500.0
)

// Neighbor is a derived view of another user relative to some origin.
type Neighbor struct {
	ID        domain.UserID `json:"id"`
	Username  string        `json:"username"`
	Distance  int           `json:"distance"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
}

// DistanceMeters is the great-circle distance between a and b (Haversine).
func DistanceMeters(a, b domain.Location) float64 {
	φ1 := a.Latitude * math.Pi / 180
	φ2 := b.Latitude * math.Pi / 180
	dφ := (b.Latitude - a.Latitude) * math.Pi / 180
	dλ := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dφ/2)*math.Sin(dφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// NeighborsOf returns every user with a location within radius meters of
// origin, except exclude. Result is ordered by distance, then id.
func NeighborsOf(origin domain.Location, radius float64, exclude domain.UserID, users []domain.User) []Neighbor {
	out := make([]Neighbor, 0)
	for _, u := range users {
		if u.ID == exclude || u.Location == nil {
			continue
		}
		d := DistanceMeters(origin, *u.Location)
		if d > radius {
			continue
		}
		out = append(out, Neighbor{
			ID:        u.ID,
			Username:  u.Username,
			Distance:  int(math.Round(d)),
			Latitude:  u.Location.Latitude,
			Longitude: u.Location.Longitude,
		})
	}
	slices.SortFunc(out, func(a, b Neighbor) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// Within reports whether b lies inside radius meters of a.
func Within(a, b domain.Location, radius float64) bool {
	return DistanceMeters(a, b) <= radius
}
