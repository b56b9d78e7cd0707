// geo/geo.go
//
// Pure geometry helpers. The Mongo store delegates distance and
// containment to the 2dsphere index; these functions exist so the
// in-memory store and the tests reproduce the same semantics.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry marks malformed coordinates or rings. Callers
// classify anything wrapping it as a validation failure.
var ErrInvalidGeometry = errors.New("invalid geometry")

const earthRadiusMeters = 6371000.0

// Point is a longitude/latitude pair in degrees.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// ValidatePoint checks that both coordinates are finite and in range:
// longitude [-180, 180], latitude [-90, 90].
func ValidatePoint(lng, lat float64) error {
	if math.IsNaN(lng) || math.IsInf(lng, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrInvalidGeometry)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidGeometry, lng)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidGeometry, lat)
	}
	return nil
}

// ValidateRing checks a polygon ring: at least 4 points and first ==
// last, exactly. No auto-closing is performed.
func ValidateRing(ring []Point) error {
	if len(ring) < 4 {
		return fmt.Errorf("%w: polygon needs at least 4 points (closed loop), got %d", ErrInvalidGeometry, len(ring))
	}
	first, last := ring[0], ring[len(ring)-1]
	if first.Lng != last.Lng || first.Lat != last.Lat {
		return fmt.Errorf("%w: polygon must be a closed loop (first and last points must match)", ErrInvalidGeometry)
	}
	for _, p := range ring {
		if err := ValidatePoint(p.Lng, p.Lat); err != nil {
			return err
		}
	}
	return nil
}

// Haversine returns the great-circle distance in meters between two
// points given in degrees.
func Haversine(lng1, lat1, lng2, lat2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PointInRing reports whether the point lies inside the ring or on its
// boundary. Boundary points count as inside, matching $geoWithin's
// closed-region behavior. Standard ray cast over the closed ring.
func PointInRing(lng, lat float64, ring []Point) bool {
	n := len(ring)
	if n < 4 {
		return false
	}
	inside := false
	for i := 0; i < n-1; i++ {
		a, b := ring[i], ring[i+1]
		if onSegment(lng, lat, a, b) {
			return true
		}
		if (a.Lat > lat) != (b.Lat > lat) {
			x := a.Lng + (lat-a.Lat)/(b.Lat-a.Lat)*(b.Lng-a.Lng)
			if lng < x {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment reports whether (lng, lat) lies on the segment a-b.
func onSegment(lng, lat float64, a, b Point) bool {
	cross := (b.Lng-a.Lng)*(lat-a.Lat) - (b.Lat-a.Lat)*(lng-a.Lng)
	if math.Abs(cross) > 1e-12 {
		return false
	}
	return lng >= math.Min(a.Lng, b.Lng) && lng <= math.Max(a.Lng, b.Lng) &&
		lat >= math.Min(a.Lat, b.Lat) && lat <= math.Max(a.Lat, b.Lat)
}
