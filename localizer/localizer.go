// Package localizer implements the inference-time half of the engine:
// accumulating confidence-gated classifier predictions as annular arc
// votes into per-landmark maps, smoothing them, and reading each peak as
// the detected landmark position.
package localizer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sort"

	ipv "github.com/rorybennett/go-ipv"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// WeightMode selects how much each rasterized arc adds to a vote map.
type WeightMode int

const (
	// WeightUnit adds 1 per arc pixel
	WeightUnit WeightMode = iota
	// WeightScore adds the voted class's raw score truncated to the 8-bit
	// scratch map range, so confident predictions count for more
	WeightScore
)

// Params configures a Localizer. TransverseParams and SagittalParams
// return the stock configurations for the two scan planes.
type Params struct {
	// DistanceTable classifies landmark distances and sizes the distance
	// heads
	DistanceTable *ipv.Table
	// AngleTable classifies landmark bearings and sizes the angle heads
	AngleTable *ipv.Table
	// NumLandmarks is the number of landmarks localized per image
	NumLandmarks int
	// ExcludedInnerClasses drops votes whose winning distance class is
	// among this many nearest classes. Near predictions rasterize
	// degenerate small-radius arcs.
	ExcludedInnerClasses int
	// ExcludedOuterClasses drops votes whose winning distance class is
	// among this many farthest classes. Far predictions rasterize huge
	// annuli that carry little position information.
	ExcludedOuterClasses int
	// VoteWeight selects unit or score-weighted arcs
	VoteWeight WeightMode
	// VotedRanks is how many of the top distance ranks rasterize an arc
	// per cast vote, 1 or 3. Zero takes the default of 1.
	VotedRanks int
	// SmoothingSigma is the Gaussian sigma applied to each vote map
	// before peak extraction. Zero takes the default of 5.
	SmoothingSigma float64
}

// TransverseParams returns the stock configuration for transverse plane
// scans carrying four landmarks ordered top, right, bottom, left.
func TransverseParams() Params {
	return Params{
		DistanceTable:        ipv.DefaultDistanceTable(),
		AngleTable:           ipv.DefaultAngleTable(),
		NumLandmarks:         4,
		ExcludedInnerClasses: 1,
		ExcludedOuterClasses: 6,
		VoteWeight:           WeightScore,
		VotedRanks:           1,
		SmoothingSigma:       5,
	}
}

// SagittalParams returns the stock configuration for sagittal plane scans
// carrying two landmarks.
func SagittalParams() Params {
	p := TransverseParams()
	p.NumLandmarks = 2
	return p
}

// Vote records one rasterized arc, kept for diagnostics and overlay
// rendering.
type Vote struct {
	// Landmark is the index of the vote map the arc was added to
	Landmark int
	// Sample is the arc center
	Sample ipv.Point
	// Rank is the distance rank that produced the arc, 0 for the winner
	Rank int
	// DistanceClass and AngleClass are the voted classes, AngleClass
	// already remapped to point from the sample toward the landmark
	DistanceClass int
	AngleClass    int
	// Radius and Thickness describe the annulus in pixels
	Radius    int
	Thickness int
	// ArcStart and ArcEnd bound the angular span in degrees
	ArcStart float64
	ArcEnd   float64
	// Weight is the value the arc added per pixel
	Weight uint8
}

// state tracks the localizer lifecycle.
type state int

const (
	stateAccumulating state = iota
	stateSmoothing
	stateDone
)

// Localizer reconstructs landmark positions for a single image from a
// stream of classifier head scores. It consumes samples in the order the
// sampler produced them, rasterizes gated predictions into per-landmark
// vote maps, and on Localize smooths each map and reads its peak.
//
// One Localizer serves one image and is not safe for concurrent use;
// separate images localize in parallel on separate instances.
type Localizer struct {
	p      Params
	width  int
	height int
	// diag bounds arc radii: annuli entirely past it cannot touch the
	// accumulator
	diag  float64
	state state
	// maps holds one 64-bit float accumulator per landmark
	maps []gocv.Mat
	// prevWin remembers the previous sample's winning distance class per
	// landmark, -1 before the first evaluation
	prevWin []int
	// trans counts winning distance class transitions between adjacent
	// samples per landmark
	trans    []*mat.Dense
	votes    []Vote
	samples  int
	smoothed []gocv.Mat
	points   []ipv.Point
	failed   error
	closed   bool
}

// NewLocalizer validates params and allocates the vote maps for an image
// of the given size. The caller must Close the localizer to release them.
func NewLocalizer(p Params, width, height int) (*Localizer, error) {

	if p.DistanceTable == nil || p.AngleTable == nil {
		return nil, &ipv.ConfigurationError{
			Field:  "tables",
			Reason: "distance and angle tables are required",
		}
	}

	if p.NumLandmarks < 1 {
		return nil, &ipv.ConfigurationError{
			Field:  "numLandmarks",
			Reason: fmt.Sprintf("%d landmarks, want >= 1", p.NumLandmarks),
		}
	}

	if width < 1 || height < 1 {
		return nil, &ipv.ConfigurationError{
			Field:  "size",
			Reason: fmt.Sprintf("accumulator size %dx%d", width, height),
		}
	}

	if p.ExcludedInnerClasses < 0 || p.ExcludedOuterClasses < 0 {
		return nil, &ipv.ConfigurationError{
			Field:  "excludedClasses",
			Reason: "exclusion counts cannot be negative",
		}
	}

	if p.ExcludedInnerClasses+p.ExcludedOuterClasses >= p.DistanceTable.Len() {
		return nil, &ipv.ConfigurationError{
			Field: "excludedClasses",
			Reason: fmt.Sprintf("%d inner + %d outer excludes every one of %d distance classes",
				p.ExcludedInnerClasses, p.ExcludedOuterClasses, p.DistanceTable.Len()),
		}
	}

	switch p.VotedRanks {
	case 0:
		p.VotedRanks = 1
	case 1, 3:
	default:
		return nil, &ipv.ConfigurationError{
			Field:  "votedRanks",
			Reason: fmt.Sprintf("%d ranks, want 1 or 3", p.VotedRanks),
		}
	}

	if p.SmoothingSigma == 0 {
		p.SmoothingSigma = 5
	}

	if p.SmoothingSigma < 0 {
		return nil, &ipv.ConfigurationError{
			Field:  "smoothingSigma",
			Reason: fmt.Sprintf("sigma is %g, want > 0", p.SmoothingSigma),
		}
	}

	l := &Localizer{
		p:       p,
		width:   width,
		height:  height,
		diag:    math.Ceil(math.Hypot(float64(width), float64(height))) + 1,
		maps:    make([]gocv.Mat, p.NumLandmarks),
		prevWin: make([]int, p.NumLandmarks),
		trans:   make([]*mat.Dense, p.NumLandmarks),
	}

	for n := 0; n < p.NumLandmarks; n++ {
		l.maps[n] = gocv.Zeros(height, width, gocv.MatTypeCV64F)
		l.prevWin[n] = -1
		l.trans[n] = mat.NewDense(p.DistanceTable.Len(), p.DistanceTable.Len(), nil)
	}

	return l, nil
}

// Accumulate evaluates one sample's classifier output. heads holds the
// 2·N score vectors ordered (distance head, angle head) per landmark.
// Malformed output fails the whole image: the error is returned, sticks,
// and Localize reports it too.
func (l *Localizer) Accumulate(sample ipv.Point, heads []ipv.HeadScores) error {

	if l.failed != nil {
		return l.failed
	}

	if l.state != stateAccumulating {
		return fmt.Errorf("localizer already finalized")
	}

	if len(heads) != 2*l.p.NumLandmarks {
		return l.fail(&ipv.InferenceError{
			Head:   -1,
			Reason: fmt.Sprintf("%d head vectors, want %d", len(heads), 2*l.p.NumLandmarks),
		})
	}

	for h, scores := range heads {

		want := l.p.DistanceTable.Len()

		if h%2 == 1 {
			want = l.p.AngleTable.Len()
		}

		if len(scores) != want {
			return l.fail(&ipv.InferenceError{
				Head:   h,
				Reason: fmt.Sprintf("score vector length %d, want %d", len(scores), want),
			})
		}

		for _, v := range scores {
			if math.IsNaN(float64(v)) {
				return l.fail(&ipv.InferenceError{Head: h, Reason: "NaN score"})
			}
		}
	}

	for n := 0; n < l.p.NumLandmarks; n++ {

		distHead := heads[2*n]
		angHead := heads[2*n+1]

		distTop := distHead.Top(3)
		angTop := angHead.Top(3)
		win := distTop[0]

		// transition bookkeeping happens on every evaluation, gated or not
		if l.prevWin[n] >= 0 {
			l.trans[n].Set(l.prevWin[n], win, l.trans[n].At(l.prevWin[n], win)+1)
		}

		l.prevWin[n] = win

		if !contiguous(distTop) || !contiguous(angTop) {
			continue
		}

		if win < l.p.ExcludedInnerClasses {
			continue
		}

		if win >= l.p.DistanceTable.Len()-l.p.ExcludedOuterClasses {
			continue
		}

		l.castVote(n, sample, distHead, distTop, angTop[0])
	}

	l.samples++

	return nil
}

// fail records the first fatal error for this image.
func (l *Localizer) fail(err error) error {
	l.failed = err
	return err
}

// contiguous reports whether the indices form an unbroken run in any
// order.
func contiguous(indices []int) bool {

	s := append([]int(nil), indices...)
	sort.Ints(s)

	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1]+1 {
			return false
		}
	}

	return true
}

// castVote rasterizes the arcs of one gated prediction into landmark n's
// vote map. Each voted distance rank contributes an annulus spanning its
// interval, all sharing the winning angle class's span pointed back
// toward the landmark.
func (l *Localizer) castVote(n int, sample ipv.Point, distHead ipv.HeadScores,
	distTop []int, angClass int) {

	angLen := l.p.AngleTable.Len()
	remapped := (angClass + angLen/2) % angLen
	arc := l.p.AngleTable.Interval(remapped)

	temp := gocv.Zeros(l.height, l.width, gocv.MatTypeCV8UC1)
	defer temp.Close()

	ranks := l.p.VotedRanks

	if ranks > len(distTop) {
		ranks = len(distTop)
	}

	drawn := false

	for r := 0; r < ranks; r++ {

		iv := l.p.DistanceTable.Interval(distTop[r])

		inner := iv.Low
		outer := iv.High

		// the open-ended last bin rasterizes as if it stopped at the
		// accumulator diagonal; pixels past it do not exist
		if outer > l.diag {
			outer = l.diag
		}

		if inner >= outer {
			continue
		}

		weight := uint8(1)

		if l.p.VoteWeight == WeightScore {
			weight = clampWeight(distHead[distTop[r]])
		}

		if weight == 0 {
			continue
		}

		radius := int(inner + (outer-inner)/2)
		thickness := int(outer - inner)

		if thickness < 1 {
			thickness = 1
		}

		gocv.Ellipse(&temp, image.Pt(sample.X, sample.Y),
			image.Pt(radius, radius), 0, arc.Low, arc.High,
			color.RGBA{B: weight}, thickness)

		l.votes = append(l.votes, Vote{
			Landmark:      n,
			Sample:        sample,
			Rank:          r,
			DistanceClass: distTop[r],
			AngleClass:    remapped,
			Radius:        radius,
			Thickness:     thickness,
			ArcStart:      arc.Low,
			ArcEnd:        arc.High,
			Weight:        weight,
		})

		drawn = true
	}

	if !drawn {
		return
	}

	gocv.Accumulate(temp, &l.maps[n])
}

// clampWeight truncates a raw score into the 8-bit scratch map range.
func clampWeight(v float32) uint8 {

	if v <= 0 {
		return 0
	}

	if v >= 255 {
		return 255
	}

	return uint8(v)
}

// Localize smooths every vote map and reads each peak as that landmark's
// detected position, finalizing the localizer. Accumulate is rejected
// afterward; repeated calls return the same points. An accumulation
// failure surfaces here as well.
func (l *Localizer) Localize() ([]ipv.Point, error) {

	if l.failed != nil {
		return nil, l.failed
	}

	if l.state == stateDone {
		return append([]ipv.Point(nil), l.points...), nil
	}

	l.state = stateSmoothing
	l.smoothed = make([]gocv.Mat, l.p.NumLandmarks)
	l.points = make([]ipv.Point, l.p.NumLandmarks)

	for n := range l.maps {

		sm := gocv.NewMat()
		gocv.GaussianBlur(l.maps[n], &sm, image.Pt(0, 0),
			l.p.SmoothingSigma, l.p.SmoothingSigma, gocv.BorderDefault)
		l.smoothed[n] = sm

		_, _, _, maxLoc := gocv.MinMaxLoc(sm)
		l.points[n] = ipv.Pt(maxLoc.X, maxLoc.Y)
	}

	l.state = stateDone

	return append([]ipv.Point(nil), l.points...), nil
}

// Detected returns the localized points, or nil before Localize.
func (l *Localizer) Detected() []ipv.Point {
	return append([]ipv.Point(nil), l.points...)
}

// Samples returns how many samples have been evaluated.
func (l *Localizer) Samples() int {
	return l.samples
}

// Votes returns the arcs rasterized so far, in cast order.
func (l *Localizer) Votes() []Vote {
	return append([]Vote(nil), l.votes...)
}

// VoteMap returns landmark n's raw accumulator. It stays owned by the
// localizer and is valid until Close.
func (l *Localizer) VoteMap(n int) gocv.Mat {
	return l.maps[n]
}

// SmoothedMap returns landmark n's smoothed accumulator. Only available
// once Localize has run.
func (l *Localizer) SmoothedMap(n int) (gocv.Mat, error) {

	if l.state != stateDone {
		return gocv.Mat{}, fmt.Errorf("no smoothed maps before Localize")
	}

	return l.smoothed[n], nil
}

// WriteSummary prints the localizer configuration, vote tallies and
// transition tables in readable form.
func (l *Localizer) WriteSummary(w io.Writer) {

	fmt.Fprintf(w, "Localizer: %d landmarks, %dx%d accumulators\n",
		l.p.NumLandmarks, l.width, l.height)
	fmt.Fprintf(w, "Distance classes: %d, angle classes: %d\n",
		l.p.DistanceTable.Len(), l.p.AngleTable.Len())
	fmt.Fprintf(w, "Samples evaluated: %d, arcs cast: %d\n",
		l.samples, len(l.votes))

	for n := 0; n < l.p.NumLandmarks; n++ {
		fmt.Fprintf(w, "Landmark %d stability: %.3f\n", n+1, l.Stability(n))
		fmt.Fprintf(w, "%v\n", mat.Formatted(l.trans[n], mat.Prefix(""), mat.Squeeze()))
	}
}

// Close releases the vote maps and smoothed maps.
func (l *Localizer) Close() error {

	if l.closed {
		return nil
	}

	l.closed = true

	var errs []error

	for i := range l.maps {
		errs = append(errs, l.maps[i].Close())
	}

	for i := range l.smoothed {
		errs = append(errs, l.smoothed[i].Close())
	}

	return errors.Join(errs...)
}
