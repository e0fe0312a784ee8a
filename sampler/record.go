package sampler

import (
	ipv "github.com/rorybennett/go-ipv"
	"gocv.io/x/gocv"
)

// Label pairs the discretized polar displacement classes from one grid
// point toward one landmark.
type Label struct {
	// Distance is the class index into the distance table
	Distance int
	// Angle is the class index into the angle table
	Angle int
}

// Record is one emitted training sample: a single-scale view of a grid
// point's patch plus the label set shared by every view of that point.
type Record struct {
	// ID identifies the grid point, formatted <image ordinal>_<x>_<y>
	ID string
	// ScaleIndex is the position of this view in the scale list
	ScaleIndex int
	// Scale is the crop extent in pixels before resampling
	Scale int
	// Patch is the canonical-size view. It is owned by the sampler and
	// only valid until Write returns; sinks must encode or copy it.
	Patch gocv.Mat
	// ImageID names the source image
	ImageID string
	// Sample is the grid coordinate the patch is centered on
	Sample ipv.Point
	// Labels holds one entry per landmark, in landmark order
	Labels []Label
}

// RecordSink consumes emitted sample records.
type RecordSink interface {
	Write(rec *Record) error
}

// SinkFunc adapts a function to the RecordSink interface, for sinks that
// feed records straight into a pipeline instead of persisting them.
type SinkFunc func(rec *Record) error

// Write implements RecordSink.
func (f SinkFunc) Write(rec *Record) error {
	return f(rec)
}
