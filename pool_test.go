package ipv

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gocv.io/x/gocv"
)

// stubClassifier counts Close calls for pool lifecycle tests.
type stubClassifier struct {
	closed *int32
}

func (s *stubClassifier) Predict(sample Point, views []gocv.Mat) ([]HeadScores, error) {
	return nil, nil
}

func (s *stubClassifier) Close() error {
	atomic.AddInt32(s.closed, 1)
	return nil
}

// TestPoolLifecycle checks classifiers cycle through Get and Return and
// that Close closes every pooled instance.
func TestPoolLifecycle(t *testing.T) {

	var closed int32

	pool, err := NewPool(2, func() (Classifier, error) {
		return &stubClassifier{closed: &closed}, nil
	})

	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	a := pool.Get()
	b := pool.Get()

	if a == nil || b == nil {
		t.Fatal("Get returned nil classifier")
	}

	pool.Return(a)
	pool.Return(b)

	pool.Close()

	if got := atomic.LoadInt32(&closed); got != 2 {
		t.Errorf("%d classifiers closed, expected 2", got)
	}

	// Close again is a no-op
	pool.Close()
}

// TestPoolConstructorFailure checks a failing factory aborts pool
// creation and closes any classifiers already built.
func TestPoolConstructorFailure(t *testing.T) {

	var closed int32
	built := 0

	_, err := NewPool(3, func() (Classifier, error) {

		if built == 2 {
			return nil, fmt.Errorf("factory exhausted")
		}

		built++
		return &stubClassifier{closed: &closed}, nil
	})

	if err == nil {
		t.Fatal("expected error from failing factory")
	}

	if got := atomic.LoadInt32(&closed); got != 2 {
		t.Errorf("%d classifiers closed after failed construction, expected 2", got)
	}
}
