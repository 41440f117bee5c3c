// Package geo orders places by great-circle distance from a position.
package geo

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/playperu/destinations/internal/places"
)

// Distance returns the haversine distance in metres between a and b,
// using orb's fixed Earth radius.
func Distance(a, b places.Coordinates) float64 {
	return geo.DistanceHaversine(point(a), point(b))
}

func point(c places.Coordinates) orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// SortByDistance returns a new slice ordered by ascending distance from
// origin. Places at equal distance keep their input order. list is not modified.
func SortByDistance(list []places.Place, origin places.Coordinates) []places.Place {
	type ranked struct {
		place places.Place
		dist  float64
	}

	rs := make([]ranked, len(list))
	for i, p := range list {
		rs[i] = ranked{place: p, dist: Distance(origin, p.Coordinates())}
	}

	sort.SliceStable(rs, func(i, j int) bool { return rs[i].dist < rs[j].dist })

	sorted := make([]places.Place, len(rs))
	for i, r := range rs {
		sorted[i] = r.place
	}
	return sorted
}
