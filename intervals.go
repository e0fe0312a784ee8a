package ipv

import (
	"fmt"
	"math"
)

// Interval is a half-open numeric range [Low, High).
type Interval struct {
	Low  float64
	High float64
}

// Contains reports whether v falls inside the interval.
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Low && v < iv.High
}

// Mid returns the interval midpoint.
func (iv Interval) Mid() float64 {
	return iv.Low + (iv.High-iv.Low)/2
}

// Width returns the span covered by the interval.
func (iv Interval) Width() float64 {
	return iv.High - iv.Low
}

// Table is an ordered, gap-free sequence of half-open intervals that
// discretizes a continuous value into a class index. The index of the
// interval containing a value is its class.
type Table struct {
	name      string
	intervals []Interval
}

// NewTable builds a table from consecutive intervals. The name appears in
// error diagnostics. Intervals must be non empty, sorted, and cover their
// domain with no gaps and no overlaps.
func NewTable(name string, intervals []Interval) (*Table, error) {

	if len(intervals) == 0 {
		return nil, &ConfigurationError{
			Field:  name,
			Reason: "table has no intervals",
		}
	}

	for i, iv := range intervals {

		if iv.Low >= iv.High {
			return nil, &ConfigurationError{
				Field:  name,
				Reason: fmt.Sprintf("interval %d is empty: [%g,%g)", i, iv.Low, iv.High),
			}
		}

		if i > 0 && intervals[i-1].High != iv.Low {
			return nil, &ConfigurationError{
				Field: name,
				Reason: fmt.Sprintf("interval %d starts at %g, previous ends at %g",
					i, iv.Low, intervals[i-1].High),
			}
		}
	}

	t := &Table{
		name:      name,
		intervals: append([]Interval(nil), intervals...),
	}

	return t, nil
}

// Name returns the diagnostic name the table was created with.
func (t *Table) Name() string {
	return t.name
}

// Len returns the number of classes in the table.
func (t *Table) Len() int {
	return len(t.intervals)
}

// Interval returns the interval backing class i.
func (t *Table) Interval(i int) Interval {
	return t.intervals[i]
}

// Classify returns the index of the interval containing v. A value outside
// every interval returns a LabelingError, which callers must treat as fatal
// for the current run.
func (t *Table) Classify(v float64) (int, error) {

	for i, iv := range t.intervals {
		if iv.Contains(v) {
			return i, nil
		}
	}

	return 0, &LabelingError{Table: t.name, Value: v}
}

// DefaultDistanceTable returns the stock distance discretization in
// pixels. Bins widen with distance since far predictions carry less
// spatial precision; the last bin is open-ended upward so no geometry
// ever falls past the table.
func DefaultDistanceTable() *Table {
	return &Table{
		name: "distance",
		intervals: []Interval{
			{0, 15}, {15, 25}, {25, 40}, {40, 60}, {60, 85}, {85, 115},
			{115, 150}, {150, 190}, {190, 235}, {235, 285}, {285, math.Inf(1)},
		},
	}
}

// DefaultAngleTable returns the stock bearing discretization: eight 45
// degree bins covering [0,360).
func DefaultAngleTable() *Table {
	return &Table{
		name: "angle",
		intervals: []Interval{
			{0, 45}, {45, 90}, {90, 135}, {135, 180},
			{180, 225}, {225, 270}, {270, 315}, {315, 360},
		},
	}
}
