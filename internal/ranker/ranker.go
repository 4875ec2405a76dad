// Package ranker orders candidate locations by great-circle distance.
package ranker

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	// EarthRadiusMiles is the sphere radius used by Haversine.
	EarthRadiusMiles = 3958.8
	// DefaultLimit is the number of results Rank returns when k <= 0.
	DefaultLimit = 3
)

// ErrInvalidCoordinate is returned for coordinates that are missing,
// unparseable, non-finite or out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a point in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Valid reports whether c is finite and within [-90,90] x [-180,180].
func (c Coordinate) Valid() bool {
	for _, v := range []float64{c.Lat, c.Lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// ParseCoordinate parses decimal-degree strings as found in spreadsheet cells.
func ParseCoordinate(lat, lon string) (Coordinate, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinate, lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinate, lon)
	}
	c := Coordinate{Lat: la, Lon: lo}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("%w: (%s, %s)", ErrInvalidCoordinate, lat, lon)
	}
	return c, nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Haversine returns the great-circle distance between a and b in miles.
func Haversine(a, b Coordinate) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	// Rounding can push h a hair outside [0,1] for antipodal points.
	h = math.Min(1, math.Max(0, h))
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Candidate is an unranked location with coordinates still in text form.
type Candidate struct {
	Name      string
	Address   string
	Latitude  string
	Longitude string
}

// Ranked is a candidate annotated with its distance to the target.
type Ranked struct {
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	DistanceMiles float64 `json:"distance_miles"`
}

// Rank returns the k candidates nearest to target, distances rounded to two
// decimals. Ties on the rounded distance keep input order. Candidates with
// unusable coordinates are skipped and counted in dropped.
func Rank(target Coordinate, candidates []Candidate, k int) (ranked []Ranked, dropped int) {
	if k <= 0 {
		k = DefaultLimit
	}

	ranked = make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		at, err := ParseCoordinate(c.Latitude, c.Longitude)
		if err != nil {
			dropped++
			continue
		}
		ranked = append(ranked, Ranked{
			Name:          c.Name,
			Address:       c.Address,
			DistanceMiles: round2(Haversine(target, at)),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMiles < ranked[j].DistanceMiles
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, dropped
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
