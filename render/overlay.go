// Package render draws localization results onto images for visual
// inspection: landmark markers, derived-measurement outlines, cast vote
// arcs and vote map heatmaps.
package render

import (
	"fmt"
	"image"
	"image/color"

	ipv "github.com/rorybennett/go-ipv"
	"github.com/rorybennett/go-ipv/localizer"
	"gocv.io/x/gocv"
)

// Landmarks draws the ground truth and detected landmark positions onto
// the image. Ground truth points render as green circles, detected points
// as filled circles in per-landmark colors with a P<n> label.
func Landmarks(img *gocv.Mat, truth, detected []ipv.Point, font Font,
	markerRadius, lineThickness int) {

	for _, p := range truth {
		gocv.Circle(img, image.Pt(p.X, p.Y), markerRadius, Green, lineThickness)
	}

	for n, p := range detected {

		clr := LandmarkColor(n)
		gocv.Circle(img, image.Pt(p.X, p.Y), markerRadius, clr, -1)

		text := fmt.Sprintf("P%d", n+1)
		gocv.PutTextWithParams(img, text,
			image.Pt(p.X+font.OffsetX, p.Y+font.OffsetY),
			font.Face, font.Scale, clr, font.Thickness,
			font.LineType, false)
	}
}

// Outline connects the landmarks in order: a closed quadrilateral for
// four points, a single segment for two. The outlined shape carries the
// derived width and height measurements.
func Outline(img *gocv.Mat, points []ipv.Point, clr color.RGBA, lineThickness int) {

	if len(points) < 2 {
		return
	}

	if len(points) == 2 {
		gocv.Line(img, image.Pt(points[0].X, points[0].Y),
			image.Pt(points[1].X, points[1].Y), clr, lineThickness)
		return
	}

	for i, p := range points {
		q := points[(i+1)%len(points)]
		gocv.Line(img, image.Pt(p.X, p.Y), image.Pt(q.X, q.Y), clr, lineThickness)
	}
}

// VoteArcs draws each cast vote's arc one pixel wide, the same diagnostic
// overlay the accumulator builds from, so sparse or misdirected voting is
// visible at a glance.
func VoteArcs(img *gocv.Mat, votes []localizer.Vote, clr color.RGBA) {

	for _, v := range votes {
		gocv.Ellipse(img, image.Pt(v.Sample.X, v.Sample.Y),
			image.Pt(v.Radius, v.Radius), 0, v.ArcStart, v.ArcEnd, clr, 1)
	}
}
