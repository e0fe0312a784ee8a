package sampler

import (
	"bytes"
	"errors"
	"testing"

	ipv "github.com/rorybennett/go-ipv"
	"gocv.io/x/gocv"
)

// gradientImage builds a small grayscale image whose pixel values encode
// their own coordinates, so copied regions are checkable exactly.
func gradientImage(rows, cols int) gocv.Mat {

	img := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.SetUCharAt(y, x, uint8(y*cols+x))
		}
	}

	return img
}

// TestExtractorValidation rejects empty and non positive scale lists.
func TestExtractorValidation(t *testing.T) {

	var cfgErr *ipv.ConfigurationError

	if _, err := NewExtractor(nil); !errors.As(err, &cfgErr) {
		t.Errorf("empty scales: expected ConfigurationError, got %v", err)
	}

	if _, err := NewExtractor([]int{64, 0}); !errors.As(err, &cfgErr) {
		t.Errorf("zero scale: expected ConfigurationError, got %v", err)
	}
}

// TestExtractZeroPadding extracts at a corner pixel and checks the
// out-of-bounds region is exactly zero while the in-bounds region
// matches the source.
func TestExtractZeroPadding(t *testing.T) {

	img := gradientImage(10, 10)
	defer img.Close()

	e, err := NewExtractor([]int{4})

	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	// window covers x,y in [-2,2)
	patch, err := e.Extract(img, ipv.Pt(0, 0))

	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	defer patch.Free()

	view := patch.View(0)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {

			got := view.GetUCharAt(y, x)

			// view (x,y) maps to source (x-2, y-2)
			if x < 2 || y < 2 {

				if got != 0 {
					t.Errorf("padding at (%d,%d) = %d, expected 0", x, y, got)
				}

				continue
			}

			want := img.GetUCharAt(y-2, x-2)

			if got != want {
				t.Errorf("pixel at (%d,%d) = %d, expected %d", x, y, got, want)
			}
		}
	}
}

// TestExtractDeterministic extracts the same patch twice and compares
// the view contents byte for byte.
func TestExtractDeterministic(t *testing.T) {

	img := gradientImage(20, 20)
	defer img.Close()

	e, err := NewExtractor([]int{4, 8})

	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	first, err := e.Extract(img, ipv.Pt(7, 11))

	if err != nil {
		t.Fatalf("first Extract failed: %v", err)
	}

	defer first.Free()

	second, err := e.Extract(img, ipv.Pt(7, 11))

	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}

	defer second.Free()

	for i := range first.Views() {

		a := first.View(i).ToBytes()
		b := second.View(i).ToBytes()

		if !bytes.Equal(a, b) {
			t.Errorf("scale %d views differ between identical extractions", i)
		}
	}
}

// TestExtractResample checks a larger scale resamples to the canonical
// size with values preserved, using a constant image.
func TestExtractResample(t *testing.T) {

	img := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV8UC1)
	defer img.Close()

	img.SetTo(gocv.NewScalar(100, 0, 0, 0))

	e, err := NewExtractor([]int{4, 8})

	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	patch, err := e.Extract(img, ipv.Pt(10, 10))

	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	defer patch.Free()

	for i := range patch.Views() {

		view := patch.View(i)

		if view.Rows() != 4 || view.Cols() != 4 {
			t.Fatalf("scale %d view is %dx%d, expected 4x4",
				i, view.Cols(), view.Rows())
		}

		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {

				if got := view.GetUCharAt(y, x); got != 100 {
					t.Errorf("scale %d pixel (%d,%d) = %d, expected 100",
						i, x, y, got)
				}
			}
		}
	}
}

// TestExtractFullyOutside extracts far past the image bounds and expects
// an all zero patch rather than an error.
func TestExtractFullyOutside(t *testing.T) {

	img := gradientImage(10, 10)
	defer img.Close()

	e, err := NewExtractor([]int{4})

	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	patch, err := e.Extract(img, ipv.Pt(-50, -50))

	if err != nil {
		t.Fatalf("Extract outside bounds failed: %v", err)
	}

	defer patch.Free()

	view := patch.View(0)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {

			if got := view.GetUCharAt(y, x); got != 0 {
				t.Errorf("pixel (%d,%d) = %d, expected 0", x, y, got)
			}
		}
	}
}
