// Package geom provides the planar geometry primitives shared by the import
// pipeline: point and vector arithmetic on orb.Point, segment projection,
// and the slab boundary polygon.
//
// All coordinates are millimetres in the XY plane. Elevation (drape height)
// never participates in plan geometry and is carried separately by the
// tendon profile.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Epsilon is the coordinate comparison tolerance in millimetres.
const Epsilon = 1e-6

// Add returns a + b.
func Add(a, b orb.Point) orb.Point {
	return orb.Point{a[0] + b[0], a[1] + b[1]}
}

// Sub returns a - b.
func Sub(a, b orb.Point) orb.Point {
	return orb.Point{a[0] - b[0], a[1] - b[1]}
}

// Scale returns v scaled by s.
func Scale(v orb.Point, s float64) orb.Point {
	return orb.Point{v[0] * s, v[1] * s}
}

// Dot returns the dot product of two vectors.
func Dot(a, b orb.Point) float64 {
	return a[0]*b[0] + a[1]*b[1]
}

// Cross returns the 2D cross product (z-component) of two vectors.
func Cross(a, b orb.Point) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// Length returns the magnitude of v.
func Length(v orb.Point) float64 {
	return math.Hypot(v[0], v[1])
}

// Unit returns v normalised to length 1. A zero vector is returned unchanged.
func Unit(v orb.Point) orb.Point {
	l := Length(v)
	if l < Epsilon {
		return v
	}
	return orb.Point{v[0] / l, v[1] / l}
}

// Perp returns v rotated 90 degrees counter-clockwise.
func Perp(v orb.Point) orb.Point {
	return orb.Point{-v[1], v[0]}
}

// Angle returns the angle of v from the positive X axis, in radians.
func Angle(v orb.Point) float64 {
	return math.Atan2(v[1], v[0])
}

// AngleBetween returns the unsigned angle between two vectors in [0, π].
func AngleBetween(a, b orb.Point) float64 {
	ua, ub := Unit(a), Unit(b)
	dot := Dot(ua, ub)
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}

// FoldParallel folds an unsigned angle in [0, π] into [0, π/2], treating
// opposite directions as parallel.
func FoldParallel(a float64) float64 {
	if a > math.Pi/2 {
		return math.Pi - a
	}
	return a
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Rotate returns p rotated by angle radians (counter-clockwise) around origin.
func Rotate(p orb.Point, angle float64, origin orb.Point) orb.Point {
	sin, cos := math.Sincos(angle)
	tx := p[0] - origin[0]
	ty := p[1] - origin[1]
	return orb.Point{
		tx*cos - ty*sin + origin[0],
		tx*sin + ty*cos + origin[1],
	}
}

// Distance returns the planar distance between two points.
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// Bounds returns the axis-aligned bounding box of pts as (min, max).
// Empty input yields two zero points.
func Bounds(pts []orb.Point) (min, max orb.Point) {
	if len(pts) == 0 {
		return orb.Point{}, orb.Point{}
	}
	min, max = pts[0], pts[0]
	for _, p := range pts[1:] {
		min[0] = math.Min(min[0], p[0])
		min[1] = math.Min(min[1], p[1])
		max[0] = math.Max(max[0], p[0])
		max[1] = math.Max(max[1], p[1])
	}
	return min, max
}

// Centroid returns the arithmetic mean of pts, or a zero point for empty input.
func Centroid(pts []orb.Point) orb.Point {
	if len(pts) == 0 {
		return orb.Point{}
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(pts))
	return orb.Point{sx / n, sy / n}
}
