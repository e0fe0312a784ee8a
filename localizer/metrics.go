package localizer

import (
	"fmt"
	"math"

	clipper "github.com/ctessum/go.clipper"
	ipv "github.com/rorybennett/go-ipv"
	"gonum.org/v1/gonum/stat"
)

// clipScale converts pixel coordinates to clipper's integer space with
// sub-pixel precision preserved.
const clipScale = 256

// Metrics scores one image's detected landmarks against ground truth.
// The derived measurements depend on the landmark count: four landmarks
// ordered top, right, bottom, left yield width, height and quad overlap;
// two landmarks yield a single separation.
type Metrics struct {
	// Errors is the euclidean error per landmark, in landmark order
	Errors []float64
	// MeanError is the mean of Errors
	MeanError float64
	// WidthDiff is |ground truth width - detected width| where width is
	// the separation of the two lateral landmarks. Four landmarks only.
	WidthDiff float64
	// HeightDiff is the same for the two axial landmarks. Four landmarks
	// only.
	HeightDiff float64
	// SeparationDiff is |ground truth separation - detected separation|
	// between the two landmarks. Two landmarks only.
	SeparationDiff float64
	// QuadIoU is the intersection over union of the quadrilaterals spanned
	// by the ground truth and detected landmarks. Four landmarks only.
	QuadIoU float64
}

// Score computes the error metrics between detected landmarks and ground
// truth. Both slices must be the same length, 2 or 4, in matching
// landmark order.
func Score(detected, truth []ipv.Point) (*Metrics, error) {

	if len(detected) != len(truth) {
		return nil, fmt.Errorf("scoring %d detected points against %d ground truth points",
			len(detected), len(truth))
	}

	if len(truth) != 2 && len(truth) != 4 {
		return nil, fmt.Errorf("scoring %d landmarks, want 2 or 4", len(truth))
	}

	m := &Metrics{
		Errors: make([]float64, len(truth)),
	}

	for i := range truth {
		m.Errors[i] = ipv.Distance(detected[i], truth[i])
	}

	m.MeanError = stat.Mean(m.Errors, nil)

	if len(truth) == 2 {
		m.SeparationDiff = math.Abs(ipv.Distance(truth[0], truth[1]) -
			ipv.Distance(detected[0], detected[1]))
		return m, nil
	}

	// landmarks 1 and 3 are the lateral pair, 0 and 2 the axial pair
	m.WidthDiff = math.Abs(ipv.Distance(truth[1], truth[3]) -
		ipv.Distance(detected[1], detected[3]))
	m.HeightDiff = math.Abs(ipv.Distance(truth[0], truth[2]) -
		ipv.Distance(detected[0], detected[2]))
	m.QuadIoU = quadIoU(detected, truth)

	return m, nil
}

// quadIoU returns the intersection over union of the two quadrilaterals,
// clipped with the polygon clipper the raster pipeline already uses.
func quadIoU(a, b []ipv.Point) float64 {

	pa := toClipperPath(a)
	pb := toClipperPath(b)

	areaA := polygonArea(pa)
	areaB := polygonArea(pb)

	if areaA == 0 && areaB == 0 {
		return 0
	}

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(pa, clipper.PtSubject, true)
	c.AddPath(pb, clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection,
		clipper.PftEvenOdd, clipper.PftEvenOdd)

	if !ok {
		return 0
	}

	var inter float64

	for _, path := range solution {
		inter += polygonArea(path)
	}

	union := areaA + areaB - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

// toClipperPath converts pixel points to a closed clipper path in the
// scaled integer space.
func toClipperPath(pts []ipv.Point) clipper.Path {

	var path clipper.Path

	for _, pt := range pts {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(pt.X * clipScale),
			Y: clipper.CInt(pt.Y * clipScale),
		})
	}

	return path
}

// polygonArea returns the unsigned shoelace area of a clipper path, in
// square pixels.
func polygonArea(path clipper.Path) float64 {

	if len(path) < 3 {
		return 0
	}

	var sum float64

	for i, p := range path {
		q := path[(i+1)%len(path)]
		sum += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}

	return math.Abs(sum) / 2 / (clipScale * clipScale)
}
