// Package geom holds the 2D primitives the simulator lays things out with.
// Coordinates are screen pixels, y grows downwards.
package geom

import "math"

type Point struct {
	X, Y float64
}

func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Lerp interpolates from p to q; t=0 gives p, t=1 gives q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

type Size struct {
	W, H float64
}

func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Fit scales s to fit inside bounds, preserving its aspect ratio.
func (s Size) Fit(bounds Size) Size {
	if s.Empty() || bounds.Empty() {
		return Size{}
	}
	k := math.Min(bounds.W/s.W, bounds.H/s.H)
	return Size{W: s.W * k, H: s.H * k}
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// RectCentered builds a rectangle of size sz centered on c.
func RectCentered(c Point, sz Size) Rect {
	return Rect{X: c.X - sz.W/2, Y: c.Y - sz.H/2, W: sz.W, H: sz.H}
}

func (r Rect) Min() Point {
	return Point{X: r.X, Y: r.Y}
}

func (r Rect) Max() Point {
	return Point{X: r.X + r.W, Y: r.Y + r.H}
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Overlaps is the AABB intersection test. Touching edges overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

// Inset shrinks (or grows, for negative d) r by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

// Clamp limits v to [lo, hi]. The bounds may be given in either order.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// EaseOutCubic maps t in [0, 1] onto a decelerating curve.
func EaseOutCubic(t float64) float64 {
	t = Clamp(t, 0, 1) - 1
	return t*t*t + 1
}
