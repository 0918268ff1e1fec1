// Package geometry provides the planar shapes used to rasterize brush strokes.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64
	Y float64
}

// PixelCenter returns the center of pixel p.
func PixelCenter(p image.Point) Point2D {
	return Point2D{X: float64(p.X) + 0.5, Y: float64(p.Y) + 0.5}
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Length returns the distance from the origin.
func (p Point2D) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Quad is a convex quadrilateral, vertices in drawing order.
type Quad [4]Point2D

// Square returns the axis-aligned square of half-side half around c.
func Square(c Point2D, half float64) Quad {
	return Quad{
		{c.X - half, c.Y - half},
		{c.X + half, c.Y - half},
		{c.X + half, c.Y + half},
		{c.X - half, c.Y + half},
	}
}

// Band returns the rectangle of half-width half whose center line runs from
// a to b. It reports false when a and b coincide.
func Band(a, b Point2D, half float64) (Quad, bool) {
	d := b.Sub(a)
	l := d.Length()
	if l == 0 {
		return Quad{}, false
	}
	n := Point2D{X: -d.Y, Y: d.X}.Scale(half / l)
	return Quad{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}, true
}
