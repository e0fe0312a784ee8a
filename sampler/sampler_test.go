package sampler

import (
	"errors"
	"testing"

	ipv "github.com/rorybennett/go-ipv"
	"gocv.io/x/gocv"
)

// memorySink collects record metadata, dropping the patch views.
type memorySink struct {
	ids     []string
	scales  []int
	samples []ipv.Point
	labels  [][]Label
}

func (m *memorySink) Write(rec *Record) error {
	m.ids = append(m.ids, rec.ID)
	m.scales = append(m.scales, rec.ScaleIndex)
	m.samples = append(m.samples, rec.Sample)
	m.labels = append(m.labels, append([]Label(nil), rec.Labels...))
	return nil
}

// testTables returns a small distance and angle table pair.
func testTables(t *testing.T) (*ipv.Table, *ipv.Table) {

	t.Helper()

	dist, err := ipv.NewTable("distance", []ipv.Interval{
		{Low: 0, High: 5}, {Low: 5, High: 1e9},
	})

	if err != nil {
		t.Fatalf("building distance table: %v", err)
	}

	ang, err := ipv.NewTable("angle", []ipv.Interval{
		{Low: 0, High: 90}, {Low: 90, High: 180},
		{Low: 180, High: 270}, {Low: 270, High: 360},
	})

	if err != nil {
		t.Fatalf("building angle table: %v", err)
	}

	return dist, ang
}

// newTestSampler builds a sampler over the given tables.
func newTestSampler(t *testing.T, p Params) *Sampler {

	t.Helper()

	s, err := NewSampler(p)

	if err != nil {
		t.Fatalf("NewSampler failed: %v", err)
	}

	return s
}

// TestSamplerValidation rejects broken configurations.
func TestSamplerValidation(t *testing.T) {

	dist, ang := testTables(t)

	var cfgErr *ipv.ConfigurationError

	bad := []Params{
		{AngleTable: ang, Scales: []int{4}, Step: 5},
		{DistanceTable: dist, AngleTable: ang, Scales: []int{4}, Step: 0},
		{DistanceTable: dist, AngleTable: ang, Scales: nil, Step: 5},
		{DistanceTable: dist, AngleTable: ang, Scales: []int{4}, Step: 5,
			ROI: &ROI{Center: ipv.Pt(0, 0), Radius: 0}},
	}

	for i, p := range bad {
		if _, err := NewSampler(p); !errors.As(err, &cfgErr) {
			t.Errorf("params %d: expected ConfigurationError, got %v", i, err)
		}
	}
}

// TestSampleGrid checks the record count and per-scale fan out over a
// full extent walk.
func TestSampleGrid(t *testing.T) {

	dist, ang := testTables(t)

	img := gocv.Zeros(20, 20, gocv.MatTypeCV8UC1)
	defer img.Close()

	s := newTestSampler(t, Params{
		DistanceTable: dist,
		AngleTable:    ang,
		Scales:        []int{4, 8},
		Step:          5,
	})

	sink := &memorySink{}

	if err := s.Sample(img, "frame", []ipv.Point{ipv.Pt(10, 10)}, sink); err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	// 4x4 grid points, two scales each
	if len(sink.ids) != 32 {
		t.Fatalf("got %d records, expected 32", len(sink.ids))
	}

	// consecutive records of one grid point share id and labels but step
	// through the scale indices
	for i := 0; i < len(sink.ids); i += 2 {

		if sink.ids[i] != sink.ids[i+1] {
			t.Errorf("records %d,%d ids differ: %s vs %s",
				i, i+1, sink.ids[i], sink.ids[i+1])
		}

		if sink.scales[i] != 0 || sink.scales[i+1] != 1 {
			t.Errorf("records %d,%d scale indices = %d,%d, expected 0,1",
				i, i+1, sink.scales[i], sink.scales[i+1])
		}

		if sink.labels[i][0] != sink.labels[i+1][0] {
			t.Errorf("records %d,%d labels differ", i, i+1)
		}
	}
}

// TestSampleLabels checks the discretized labels for known geometry.
func TestSampleLabels(t *testing.T) {

	dist, ang := testTables(t)

	img := gocv.Zeros(20, 20, gocv.MatTypeCV8UC1)
	defer img.Close()

	s := newTestSampler(t, Params{
		DistanceTable: dist,
		AngleTable:    ang,
		Scales:        []int{4},
		Step:          2,
	})

	landmark := ipv.Pt(10, 10)
	sink := &memorySink{}

	if err := s.Sample(img, "frame", []ipv.Point{landmark}, sink); err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	for i, c := range sink.samples {

		if c == (ipv.Pt(10, 18)) {

			// distance 8, bearing 90 looking down from the landmark
			if sink.labels[i][0].Distance != 1 {
				t.Errorf("distance class = %d, expected 1", sink.labels[i][0].Distance)
			}

			if sink.labels[i][0].Angle != 1 {
				t.Errorf("angle class = %d, expected 1", sink.labels[i][0].Angle)
			}
		}

		if c == (ipv.Pt(6, 10)) {

			// distance 4, bearing 180
			if sink.labels[i][0].Distance != 0 {
				t.Errorf("distance class = %d, expected 0", sink.labels[i][0].Distance)
			}

			if sink.labels[i][0].Angle != 2 {
				t.Errorf("angle class = %d, expected 2", sink.labels[i][0].Angle)
			}
		}
	}
}

// TestSampleROI restricts the walk to a disc and checks membership.
func TestSampleROI(t *testing.T) {

	dist, ang := testTables(t)

	img := gocv.Zeros(20, 20, gocv.MatTypeCV8UC1)
	defer img.Close()

	roi := &ROI{Center: ipv.Pt(10, 10), Radius: 5}

	s := newTestSampler(t, Params{
		DistanceTable: dist,
		AngleTable:    ang,
		Scales:        []int{4},
		Step:          5,
		ROI:           roi,
	})

	sink := &memorySink{}

	if err := s.Sample(img, "frame", []ipv.Point{ipv.Pt(10, 10)}, sink); err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if len(sink.samples) == 0 {
		t.Fatal("no records emitted inside the ROI")
	}

	for _, c := range sink.samples {

		dx := c.X - roi.Center.X
		dy := c.Y - roi.Center.Y

		if dx*dx+dy*dy > roi.Radius*roi.Radius {
			t.Errorf("sample %v falls outside the ROI disc", c)
		}
	}
}

// TestSampleLabelingError checks an uncovered geometry aborts the walk.
func TestSampleLabelingError(t *testing.T) {

	// distance table too small for the image extent
	dist, err := ipv.NewTable("distance", []ipv.Interval{{Low: 0, High: 5}})

	if err != nil {
		t.Fatalf("building distance table: %v", err)
	}

	_, ang := testTables(t)

	img := gocv.Zeros(20, 20, gocv.MatTypeCV8UC1)
	defer img.Close()

	s := newTestSampler(t, Params{
		DistanceTable: dist,
		AngleTable:    ang,
		Scales:        []int{4},
		Step:          5,
	})

	sink := &memorySink{}
	err = s.Sample(img, "frame", []ipv.Point{ipv.Pt(10, 10)}, sink)

	var labelErr *ipv.LabelingError

	if !errors.As(err, &labelErr) {
		t.Fatalf("expected LabelingError, got %v", err)
	}
}

// TestBalancePredicate checks the sampler consults the predicate and the
// stock predicate caps classes against the innermost tally.
func TestBalancePredicate(t *testing.T) {

	dist, ang := testTables(t)

	img := gocv.Zeros(20, 20, gocv.MatTypeCV8UC1)
	defer img.Close()

	s := newTestSampler(t, Params{
		DistanceTable: dist,
		AngleTable:    ang,
		Scales:        []int{4},
		Step:          5,
		Balance: func(counts [][]int, labels []Label) bool {
			return false
		},
	})

	sink := &memorySink{}

	if err := s.Sample(img, "frame", []ipv.Point{ipv.Pt(10, 10)}, sink); err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if len(sink.ids) != 0 {
		t.Errorf("rejecting predicate still emitted %d records", len(sink.ids))
	}

	// the stock predicate keeps innermost class points and points whose
	// class has not overtaken the innermost tally
	counts := [][]int{{3, 5}}

	if !InnerClassBalance(counts, []Label{{Distance: 0}}) {
		t.Error("innermost class point rejected")
	}

	if InnerClassBalance(counts, []Label{{Distance: 1}}) {
		t.Error("overrepresented class point kept")
	}

	if !InnerClassBalance([][]int{{5, 3}}, []Label{{Distance: 1}}) {
		t.Error("underrepresented class point rejected")
	}
}

// TestClassCounts checks tally bookkeeping and merging.
func TestClassCounts(t *testing.T) {

	dist, ang := testTables(t)

	img := gocv.Zeros(20, 20, gocv.MatTypeCV8UC1)
	defer img.Close()

	s := newTestSampler(t, Params{
		DistanceTable: dist,
		AngleTable:    ang,
		Scales:        []int{4},
		Step:          5,
	})

	if s.ClassCounts() != nil {
		t.Error("expected nil tallies before the first Sample call")
	}

	sink := &memorySink{}

	if err := s.Sample(img, "frame", []ipv.Point{ipv.Pt(10, 10)}, sink); err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	counts := s.ClassCounts()

	total := 0

	for _, n := range counts[0] {
		total += n
	}

	// one tally per grid point
	if total != 16 {
		t.Errorf("tallies sum to %d, expected 16", total)
	}

	merged := MergeClassCounts(counts, counts, nil)

	for j := range merged[0] {
		if merged[0][j] != 2*counts[0][j] {
			t.Errorf("merged class %d = %d, expected %d",
				j, merged[0][j], 2*counts[0][j])
		}
	}
}

// TestDefaultParams checks the stock sampling configuration.
func TestDefaultParams(t *testing.T) {

	p := DefaultParams()

	if p.Step != 10 {
		t.Errorf("default step = %d, expected 10", p.Step)
	}

	if len(p.Scales) != 4 || p.Scales[0] != 64 {
		t.Errorf("default scales = %v, expected 64,128,256,512", p.Scales)
	}

	if _, err := NewSampler(p); err != nil {
		t.Errorf("default params rejected: %v", err)
	}
}
