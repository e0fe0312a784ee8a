package ipv

import (
	"math"
	"testing"
)

// TestDistance checks euclidean distances against known values.
func TestDistance(t *testing.T) {

	tests := []struct {
		p, q Point
		want float64
	}{
		{Pt(0, 0), Pt(3, 4), 5},
		{Pt(3, 4), Pt(0, 0), 5},
		{Pt(10, 10), Pt(10, 10), 0},
		{Pt(-3, 0), Pt(3, 0), 6},
	}

	for _, tc := range tests {

		got := Distance(tc.p, tc.q)

		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Distance(%v, %v) = %g, expected %g", tc.p, tc.q, got, tc.want)
		}
	}
}

// TestBearingDegrees checks the eight principal directions in image
// coordinates, where angles grow clockwise from the positive x axis.
func TestBearingDegrees(t *testing.T) {

	from := Pt(0, 0)

	tests := []struct {
		to   Point
		want float64
	}{
		{Pt(1, 0), 0},
		{Pt(1, 1), 45},
		{Pt(0, 1), 90},
		{Pt(-1, 1), 135},
		{Pt(-1, 0), 180},
		{Pt(-1, -1), 225},
		{Pt(0, -1), 270},
		{Pt(1, -1), 315},
	}

	for _, tc := range tests {

		got := BearingDegrees(from, tc.to)

		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("BearingDegrees(%v, %v) = %g, expected %g",
				from, tc.to, got, tc.want)
		}
	}
}

// TestBearingRange checks the output stays in [0,360) for every
// direction, including negative vector components.
func TestBearingRange(t *testing.T) {

	from := Pt(0, 0)

	for dx := -5; dx <= 5; dx++ {
		for dy := -5; dy <= 5; dy++ {

			if dx == 0 && dy == 0 {
				continue
			}

			got := BearingDegrees(from, Pt(dx, dy))

			if got < 0 || got >= 360 {
				t.Errorf("BearingDegrees to (%d,%d) = %g, outside [0,360)",
					dx, dy, got)
			}
		}
	}
}
