package sampler

import (
	"errors"
	"fmt"
	"image"

	ipv "github.com/rorybennett/go-ipv"
	"gocv.io/x/gocv"
)

// DefaultScales returns the stock patch extents in pixels, canonical size
// first. Larger extents capture coarser context around the same point.
func DefaultScales() []int {
	return []int{64, 128, 256, 512}
}

// MultiScalePatch holds one neighborhood of an image cropped at several
// extents, every view resampled to the canonical size and centered on the
// same sample coordinate.
type MultiScalePatch struct {
	center ipv.Point
	scales []int
	views  []gocv.Mat
}

// Center returns the sample coordinate the views are centered on.
func (p *MultiScalePatch) Center() ipv.Point {
	return p.center
}

// Scales returns the crop extents, canonical first.
func (p *MultiScalePatch) Scales() []int {
	return append([]int(nil), p.scales...)
}

// View returns the canonical-size view for scale index i.
func (p *MultiScalePatch) View(i int) gocv.Mat {
	return p.views[i]
}

// Views returns all views ordered by scale, ready to hand to a
// Classifier.
func (p *MultiScalePatch) Views() []gocv.Mat {
	return p.views
}

// Free releases the Mats backing the views.
func (p *MultiScalePatch) Free() error {

	var errs []error

	for i := range p.views {
		errs = append(errs, p.views[i].Close())
	}

	return errors.Join(errs...)
}

// Extractor crops multi-scale patch views around arbitrary image
// coordinates. Windows may extend past the image bounds; missing pixels
// are zero-filled, not clamped or mirrored, so grid points near or beyond
// an edge still produce full-size views.
type Extractor struct {
	scales []int
}

// NewExtractor validates the scale list and returns an extractor.
// scales[0] is the canonical patch size every larger crop is resampled to.
func NewExtractor(scales []int) (*Extractor, error) {

	if len(scales) == 0 {
		return nil, &ipv.ConfigurationError{
			Field:  "scales",
			Reason: "no patch scales configured",
		}
	}

	for i, s := range scales {
		if s < 1 {
			return nil, &ipv.ConfigurationError{
				Field:  "scales",
				Reason: fmt.Sprintf("scale %d is %d, want >= 1", i, s),
			}
		}
	}

	e := &Extractor{
		scales: append([]int(nil), scales...),
	}

	return e, nil
}

// Scales returns the configured crop extents, canonical first.
func (e *Extractor) Scales() []int {
	return append([]int(nil), e.scales...)
}

// Extract crops one view per scale centered on c and resamples each to
// the canonical size. The caller owns the returned patch and must Free
// it.
func (e *Extractor) Extract(img gocv.Mat, c ipv.Point) (*MultiScalePatch, error) {

	if img.Empty() {
		return nil, fmt.Errorf("extract at (%d,%d): source image is empty", c.X, c.Y)
	}

	canonical := e.scales[0]

	p := &MultiScalePatch{
		center: c,
		scales: e.Scales(),
		views:  make([]gocv.Mat, 0, len(e.scales)),
	}

	for _, s := range e.scales {

		window := gocv.Zeros(s, s, img.Type())

		// copy the in-bounds part of the window from the source image
		x0 := c.X - s/2
		y0 := c.Y - s/2
		src := image.Rect(x0, y0, x0+s, y0+s).
			Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

		if !src.Empty() {
			dst := src.Sub(image.Pt(x0, y0))

			srcRegion := img.Region(src)
			dstRegion := window.Region(dst)
			srcRegion.CopyTo(&dstRegion)

			srcRegion.Close()
			dstRegion.Close()
		}

		if s == canonical {
			p.views = append(p.views, window)
			continue
		}

		view := gocv.NewMat()
		gocv.Resize(window, &view, image.Pt(canonical, canonical),
			0, 0, gocv.InterpolationArea)
		window.Close()

		p.views = append(p.views, view)
	}

	return p, nil
}
