// Package sdfmath implements scalar combinators over signed distances.
// Node based shapes in the root package and the text field evaluators are
// built on top of these functions so their CPU results match the emitted GLSL.
package sdfmath

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// Sentinel is the distance reported by fields with no geometry, such as an empty
// text layout or an unused glyph slot. It is large enough to never win a union
// with scene geometry while staying finite in GLSL.
const Sentinel = 1000.0

// Union returns min(a,b).
func Union(a, b float32) float32 { return math32.Min(a, b) }

// Subtract removes b from a: max(a,-b).
func Subtract(a, b float32) float32 { return math32.Max(a, -b) }

// Intersect returns max(a,b).
func Intersect(a, b float32) float32 { return math32.Max(a, b) }

// SmoothMin blends a and b over a neighborhood of radius k around their crossover
// using the quadratic polynomial smooth minimum. k<=0 degenerates to [Union].
func SmoothMin(a, b, k float32) float32 {
	if k <= 0 {
		return Union(a, b)
	}
	h := Clamp(0.5+0.5*(b-a)/k, 0, 1)
	return Mix(b, a, h) - k*h*(1-h)
}

// RoundedIntersect intersects two fields using the exterior-exact formula
//
//	min(max(a,b),0) + length(max(vec2(a,b),0))
//
// used to extrude and to bound a 2D field inside a thin shell.
func RoundedIntersect(a, b float32) float32 {
	return math32.Min(math32.Max(a, b), 0) + math32.Hypot(math32.Max(a, 0), math32.Max(b, 0))
}

// Median3 returns the middle ranked value of the three arguments.
func Median3(r, g, b float32) float32 {
	return math32.Max(math32.Min(r, g), math32.Min(math32.Max(r, g), b))
}

// Box2 returns the exact distance from p to an axis aligned rectangle
// with the given center and half size.
func Box2(p, center, halfSize ms2.Vec) float32 {
	dx := math32.Abs(p.X-center.X) - halfSize.X
	dy := math32.Abs(p.Y-center.Y) - halfSize.Y
	return math32.Hypot(math32.Max(dx, 0), math32.Max(dy, 0)) + math32.Min(math32.Max(dx, dy), 0)
}

// Clamp limits v to the range [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}

// Mix linearly interpolates between x and y: x*(1-a) + y*a.
func Mix(x, y, a float32) float32 {
	return x*(1-a) + y*a
}
