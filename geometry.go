package ipv

import "math"

// Point is a pixel coordinate in image space, x growing rightward and y
// growing downward.
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Distance returns the euclidean distance between two points.
func Distance(p, q Point) float64 {
	return math.Hypot(float64(q.X-p.X), float64(q.Y-p.Y))
}

// BearingDegrees returns the direction of the vector pointing from one
// point to another as degrees in [0,360). Directions follow image
// coordinates, so they grow clockwise from the positive x axis.
func BearingDegrees(from, to Point) float64 {
	deg := math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X)) * 180 / math.Pi

	if deg < 0 {
		deg += 360
	}

	return deg
}
