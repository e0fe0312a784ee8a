package ipv

import (
	"sync"
)

// NewClassifierFunc constructs one Classifier instance for a Pool.
type NewClassifierFunc func() (Classifier, error)

// Pool holds a fixed set of ready Classifier instances so a batch of
// images can be scored in parallel, one instance per in-flight image.
type Pool struct {
	// pool of classifiers
	classifiers chan Classifier
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a pool of size classifiers built by newFn.
func NewPool(size int, newFn NewClassifierFunc) (*Pool, error) {
	p := &Pool{
		classifiers: make(chan Classifier, size),
		size:        size,
	}

	for i := 0; i < size; i++ {
		c, err := newFn()

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(c)
	}

	return p, nil
}

// Get a classifier from the pool, blocking until one is available.
func (p *Pool) Get() Classifier {
	return <-p.classifiers
}

// Return a classifier to the pool.
func (p *Pool) Return(c Classifier) {
	select {
	case p.classifiers <- c:
	default:
		// pool is full or closed
	}
}

// Close the pool and all classifiers in it.
func (p *Pool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.classifiers)

		// close all classifiers
		for next := range p.classifiers {
			_ = next.Close()
		}
	})
}
