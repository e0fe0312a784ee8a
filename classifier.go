package ipv

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Classifier scores one sample's multi-scale patch views. Predict receives
// the sample's grid coordinate and its canonical-size views ordered by
// scale, and returns 2·N head score vectors ordered (distance head, angle
// head) per landmark, each vector sized by that head's interval table.
//
// Model backed implementations ignore the coordinate; synthetic or replay
// implementations key their answers by it. Implementations need not be
// safe for concurrent use; run one instance per goroutine, or share them
// through a Pool.
type Classifier interface {
	Predict(sample Point, views []gocv.Mat) ([]HeadScores, error)
	// Close releases any resources held by the classifier.
	Close() error
}

// Oracle is a synthetic Classifier that answers from known ground truth:
// every head scores the true class highest, with a contiguous runner-up
// run, so its predictions always pass the localizer's consistency gate.
// It drives pipeline simulations and end to end tests without a trained
// model. Predict ignores the patch views.
type Oracle struct {
	// DistanceTable classifies true landmark distances
	DistanceTable *Table
	// AngleTable classifies true landmark bearings
	AngleTable *Table
	// Landmarks is the ground truth the oracle answers from, in landmark
	// order
	Landmarks []Point
}

// Predict returns head scores encoding each landmark's true distance and
// bearing class for the given sample coordinate.
func (o *Oracle) Predict(sample Point, views []gocv.Mat) ([]HeadScores, error) {

	if len(o.Landmarks) == 0 {
		return nil, fmt.Errorf("oracle has no landmarks")
	}

	heads := make([]HeadScores, 0, len(o.Landmarks)*2)

	for _, lm := range o.Landmarks {

		d, err := o.DistanceTable.Classify(Distance(lm, sample))

		if err != nil {
			return nil, fmt.Errorf("oracle distance: %w", err)
		}

		a, err := o.AngleTable.Classify(BearingDegrees(lm, sample))

		if err != nil {
			return nil, fmt.Errorf("oracle bearing: %w", err)
		}

		heads = append(heads,
			oracleScores(d, o.DistanceTable.Len()),
			oracleScores(a, o.AngleTable.Len()),
		)
	}

	return heads, nil
}

// Close implements Classifier. The oracle holds no resources.
func (o *Oracle) Close() error {
	return nil
}

// oracleScores builds a score vector whose top ranks are a contiguous run
// containing c, with c itself ranked first.
func oracleScores(c, n int) HeadScores {

	s := make(HeadScores, n)

	// pick an in-range run of up to three classes around c
	lo := c - 1

	if lo+3 > n {
		lo = n - 3
	}

	if lo < 0 {
		lo = 0
	}

	hi := lo + 3

	if hi > n {
		hi = n
	}

	v := float32(0.9)

	for i := lo; i < hi; i++ {

		if i == c {
			s[i] = 1.0
			continue
		}

		s[i] = v
		v -= 0.1
	}

	return s
}
