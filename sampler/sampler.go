// Package sampler implements the training-time half of the engine: walking
// a fixed-step grid over annotated images, labeling every grid point
// against each landmark through the interval tables, and extracting the
// matching multi-scale patch views.
package sampler

import (
	"fmt"

	ipv "github.com/rorybennett/go-ipv"
	"gocv.io/x/gocv"
)

// ROI restricts sampling to a disc on the image.
type ROI struct {
	// Center of the disc
	Center ipv.Point
	// Radius of the disc in pixels
	Radius int
}

// BalancePredicate decides whether a grid point's records are kept, given
// the distance class tallies accumulated so far and the point's labels. A
// nil predicate keeps everything.
type BalancePredicate func(counts [][]int, labels []Label) bool

// InnerClassBalance keeps a grid point only while, for every landmark, the
// tally of the point's distance class has not overtaken the tally of the
// innermost class. Ring area grows with radius, so without a cap the far
// classes swamp the near ones; this holds each class near the natural
// frequency of the smallest ring. Points labeled with the innermost class
// are always kept.
func InnerClassBalance(counts [][]int, labels []Label) bool {

	for i, l := range labels {

		if l.Distance == 0 {
			continue
		}

		if counts[i][l.Distance] > counts[i][0] {
			return false
		}
	}

	return true
}

// Params configures a Sampler.
type Params struct {
	// DistanceTable classifies landmark distances
	DistanceTable *ipv.Table
	// AngleTable classifies landmark bearings
	AngleTable *ipv.Table
	// Scales are the patch crop extents, canonical size first
	Scales []int
	// Step is the grid spacing in pixels
	Step int
	// ROI optionally restricts the grid to a disc. Nil samples the full
	// image extent.
	ROI *ROI
	// Balance optionally filters grid points by class balance
	Balance BalancePredicate
}

// DefaultParams returns the stock sampling configuration: the default
// distance and angle tables, the default patch scales and a grid step of
// 10 pixels, with no ROI and no balance predicate.
func DefaultParams() Params {
	return Params{
		DistanceTable: ipv.DefaultDistanceTable(),
		AngleTable:    ipv.DefaultAngleTable(),
		Scales:        DefaultScales(),
		Step:          10,
	}
}

// Sampler walks a fixed-step grid over an image and emits one labeled
// Record per (grid point, scale) to a RecordSink. Grid points may fall
// outside the image; the extractor zero-fills the missing pixels.
//
// A Sampler is not safe for concurrent use. To sample images in parallel,
// run one Sampler per goroutine and merge the class tallies afterward
// with MergeClassCounts.
type Sampler struct {
	p         Params
	extractor *Extractor
	// counts tallies emitted distance classes per landmark, allocated on
	// the first Sample call
	counts [][]int
	// images is the ordinal of the image being sampled, used in record ids
	images int
}

// NewSampler validates params and returns a Sampler.
func NewSampler(p Params) (*Sampler, error) {

	if p.DistanceTable == nil || p.AngleTable == nil {
		return nil, &ipv.ConfigurationError{
			Field:  "tables",
			Reason: "distance and angle tables are required",
		}
	}

	if p.Step < 1 {
		return nil, &ipv.ConfigurationError{
			Field:  "step",
			Reason: fmt.Sprintf("grid step is %d, want >= 1", p.Step),
		}
	}

	if p.ROI != nil && p.ROI.Radius < 1 {
		return nil, &ipv.ConfigurationError{
			Field:  "roi",
			Reason: fmt.Sprintf("radius is %d, want >= 1", p.ROI.Radius),
		}
	}

	ex, err := NewExtractor(p.Scales)

	if err != nil {
		return nil, err
	}

	s := &Sampler{
		p:         p,
		extractor: ex,
	}

	return s, nil
}

// Extractor returns the patch extractor the sampler was built with.
func (s *Sampler) Extractor() *Extractor {
	return s.extractor
}

// Sample walks the grid over img, labels every grid point against each
// landmark, and writes K records per kept point to sink, where K is the
// number of scales. A label falling outside the configured tables aborts
// the walk with a LabelingError; no further records are written.
func (s *Sampler) Sample(img gocv.Mat, imageID string, landmarks []ipv.Point, sink RecordSink) error {

	if img.Empty() {
		return fmt.Errorf("sample %s: image is empty", imageID)
	}

	if len(landmarks) == 0 {
		return fmt.Errorf("sample %s: no landmarks", imageID)
	}

	if s.counts == nil {
		s.counts = make([][]int, len(landmarks))

		for i := range s.counts {
			s.counts[i] = make([]int, s.p.DistanceTable.Len())
		}
	}

	if len(s.counts) != len(landmarks) {
		return fmt.Errorf("sample %s: %d landmarks, sampler has tallied %d",
			imageID, len(landmarks), len(s.counts))
	}

	s.images++

	if s.p.ROI != nil {

		cx := s.p.ROI.Center.X
		cy := s.p.ROI.Center.Y
		r := s.p.ROI.Radius

		for x := cx - r - 1; x < cx+r+1; x += s.p.Step {
			for y := cy - r - 1; y < cy+r+1; y += s.p.Step {

				// disc around (cx, cy)
				if (cx-x)*(cx-x)+(cy-y)*(cy-y) > r*r {
					continue
				}

				if err := s.samplePoint(img, imageID, landmarks, ipv.Pt(x, y), sink); err != nil {
					return err
				}
			}
		}

		return nil
	}

	for x := 0; x < img.Cols(); x += s.p.Step {
		for y := 0; y < img.Rows(); y += s.p.Step {

			if err := s.samplePoint(img, imageID, landmarks, ipv.Pt(x, y), sink); err != nil {
				return err
			}
		}
	}

	return nil
}

// samplePoint labels one grid point, extracts its patch views and writes
// the per-scale records.
func (s *Sampler) samplePoint(img gocv.Mat, imageID string, landmarks []ipv.Point,
	c ipv.Point, sink RecordSink) error {

	labels := make([]Label, len(landmarks))

	for i, lm := range landmarks {

		d, err := s.p.DistanceTable.Classify(ipv.Distance(lm, c))

		if err != nil {
			return fmt.Errorf("labeling %s at (%d,%d): %w", imageID, c.X, c.Y, err)
		}

		a, err := s.p.AngleTable.Classify(ipv.BearingDegrees(lm, c))

		if err != nil {
			return fmt.Errorf("labeling %s at (%d,%d): %w", imageID, c.X, c.Y, err)
		}

		labels[i] = Label{Distance: d, Angle: a}
	}

	if s.p.Balance != nil && !s.p.Balance(s.counts, labels) {
		return nil
	}

	patch, err := s.extractor.Extract(img, c)

	if err != nil {
		return err
	}

	defer patch.Free()

	id := fmt.Sprintf("%d_%d_%d", s.images, c.X, c.Y)

	for si, scale := range s.extractor.scales {

		rec := &Record{
			ID:         id,
			ScaleIndex: si,
			Scale:      scale,
			Patch:      patch.View(si),
			ImageID:    imageID,
			Sample:     c,
			Labels:     labels,
		}

		if err := sink.Write(rec); err != nil {
			return fmt.Errorf("writing record %s: %w", id, err)
		}
	}

	for i, l := range labels {
		s.counts[i][l.Distance]++
	}

	return nil
}

// ClassCounts returns a copy of the per-landmark distance class tallies
// accumulated across Sample calls, or nil before the first call.
func (s *Sampler) ClassCounts() [][]int {

	if s.counts == nil {
		return nil
	}

	out := make([][]int, len(s.counts))

	for i, row := range s.counts {
		out[i] = append([]int(nil), row...)
	}

	return out
}

// MergeClassCounts sums tallies produced by samplers run in parallel.
// Empty arguments are skipped; all others must share one shape.
func MergeClassCounts(tallies ...[][]int) [][]int {

	var out [][]int

	for _, t := range tallies {

		if len(t) == 0 {
			continue
		}

		if out == nil {
			out = make([][]int, len(t))

			for i := range out {
				out[i] = make([]int, len(t[i]))
			}
		}

		for i, row := range t {
			for j, n := range row {
				out[i][j] += n
			}
		}
	}

	return out
}
