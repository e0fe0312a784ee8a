/*
Example code showing the full pipeline end to end without a trained
model: synthetic scan images are sampled on a grid, an oracle classifier
answers every sample from the known ground truth, and the localizer
accumulates the votes back into detected points.

Images are processed in parallel, one pooled classifier and one
localizer per in-flight image, and the per-image results are written to
a single run directory afterward.

Usage:

	go run simulate.go -n 8 -j 4 -plane transverse -o results/
*/
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"path/filepath"
	"sync"
	"time"

	ipv "github.com/rorybennett/go-ipv"
	"github.com/rorybennett/go-ipv/localizer"
	"github.com/rorybennett/go-ipv/render"
	"github.com/rorybennett/go-ipv/sampler"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

const (
	// frame size of the synthetic scans
	frameSize = 700
	// sampling disc matching the annotation tool's inference region
	roiRadius = 300
)

// result carries one image's outputs back to the writer.
type result struct {
	name        string
	detected    []ipv.Point
	metrics     *localizer.Metrics
	transitions []*mat.Dense
	err         error
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	numImages := flag.Int("n", 8, "Number of synthetic images to process")
	workers := flag.Int("j", 4, "Number of images processed in parallel")
	plane := flag.String("plane", "transverse", "Scan plane, transverse or sagittal")
	step := flag.Int("s", 10, "Grid step in pixels")
	outDir := flag.String("o", "results/", "Output directory for result CSVs and overlays")

	flag.Parse()

	var p localizer.Params

	switch *plane {
	case "transverse":
		p = localizer.TransverseParams()
	case "sagittal":
		p = localizer.SagittalParams()
	default:
		log.Fatalf("Unknown scan plane %q\n", *plane)
	}

	// pool of oracles sharing the run's tables, claimed one per image
	pool, err := ipv.NewPool(*workers, func() (ipv.Classifier, error) {
		o := &ipv.Oracle{
			DistanceTable: p.DistanceTable,
			AngleTable:    p.AngleTable,
		}
		return o, nil
	})

	if err != nil {
		log.Fatalf("Error creating classifier pool: %v\n", err)
	}

	sink, err := localizer.NewResultSink(*outDir)

	if err != nil {
		log.Fatalf("Error creating result sink: %v\n", err)
	}

	start := time.Now()

	results := make(chan result, *numImages)

	var wg sync.WaitGroup

	for i := 0; i < *numImages; i++ {

		wg.Add(1)

		// pool.Get() blocks if no classifiers are available in the pool
		clf := pool.Get()

		go func(i int, clf ipv.Classifier) {
			defer wg.Done()
			results <- processImage(i, clf, p, *step, *outDir)
			pool.Return(clf)
		}(i, clf)
	}

	wg.Wait()
	close(results)
	pool.Close()

	failed := 0

	for r := range results {

		if r.err != nil {
			log.Printf("%s failed: %v\n", r.name, r.err)
			failed++
			continue
		}

		if err := sink.Write(r.name, r.detected, r.metrics); err != nil {
			log.Fatalf("Error writing results for %s: %v\n", r.name, err)
		}

		if err := sink.WriteTransitions(r.name, r.transitions); err != nil {
			log.Fatalf("Error writing transitions for %s: %v\n", r.name, err)
		}

		log.Printf("%s: mean error %.2f px\n", r.name, r.metrics.MeanError)
	}

	if err := sink.Close(); err != nil {
		log.Fatalf("Error closing result sink: %v\n", err)
	}

	log.Printf("Completed %d images (%d failed) in %s\n",
		*numImages, failed, time.Since(start).String())
}

// processImage runs sampling, classification and localization for one
// synthetic image and saves its overlay.
func processImage(i int, clf ipv.Classifier, p localizer.Params, step int,
	outDir string) result {

	name := fmt.Sprintf("frame_%03d", i)
	truth := syntheticLandmarks(i, p.NumLandmarks)

	img := syntheticScan(truth)
	defer img.Close()

	// the oracle answers from this image's ground truth
	clf.(*ipv.Oracle).Landmarks = truth

	loc, err := localizer.NewLocalizer(p, img.Cols(), img.Rows())

	if err != nil {
		return result{name: name, err: err}
	}

	defer loc.Close()

	sp := sampler.Params{
		DistanceTable: p.DistanceTable,
		AngleTable:    p.AngleTable,
		// the oracle never looks at the patch, one scale is enough
		Scales: []int{64},
		Step:   step,
		ROI: &sampler.ROI{
			Center: ipv.Pt(frameSize/2, frameSize/2),
			Radius: roiRadius,
		},
	}

	s, err := sampler.NewSampler(sp)

	if err != nil {
		return result{name: name, err: err}
	}

	// feed each grid point's scores straight into the localizer
	feed := sampler.SinkFunc(func(rec *sampler.Record) error {

		heads, err := clf.Predict(rec.Sample, []gocv.Mat{rec.Patch})

		if err != nil {
			return err
		}

		return loc.Accumulate(rec.Sample, heads)
	})

	if err := s.Sample(img, name, truth, feed); err != nil {
		return result{name: name, err: err}
	}

	detected, err := loc.Localize()

	if err != nil {
		return result{name: name, err: err}
	}

	metrics, err := localizer.Score(detected, truth)

	if err != nil {
		return result{name: name, err: err}
	}

	if err := saveOverlay(img, truth, detected,
		filepath.Join(outDir, name+"_overlay.png")); err != nil {
		return result{name: name, err: err}
	}

	r := result{
		name:        name,
		detected:    detected,
		metrics:     metrics,
		transitions: loc.Transitions(),
	}

	return r
}

// syntheticLandmarks places the landmarks on an ellipse around the frame
// center, jittered per image so runs differ.
func syntheticLandmarks(i, numLandmarks int) []ipv.Point {

	cx := frameSize / 2
	cy := frameSize / 2
	rx := 150 + (i*17)%60
	ry := 120 + (i*11)%60

	if numLandmarks == 2 {
		return []ipv.Point{
			ipv.Pt(cx, cy-ry),
			ipv.Pt(cx, cy+ry),
		}
	}

	// transverse order: top, right, bottom, left
	return []ipv.Point{
		ipv.Pt(cx, cy-ry),
		ipv.Pt(cx+rx, cy),
		ipv.Pt(cx, cy+ry),
		ipv.Pt(cx-rx, cy),
	}
}

// syntheticScan draws a soft blob through the landmarks so patches carry
// some texture.
func syntheticScan(landmarks []ipv.Point) gocv.Mat {

	img := gocv.Zeros(frameSize, frameSize, gocv.MatTypeCV8UC1)

	for i, p := range landmarks {
		q := landmarks[(i+1)%len(landmarks)]
		gocv.Line(&img, image.Pt(p.X, p.Y), image.Pt(q.X, q.Y),
			color.RGBA{B: 180}, 9)
	}

	gocv.GaussianBlur(img, &img, image.Pt(0, 0), 11, 11, gocv.BorderDefault)

	return img
}

// saveOverlay writes the annotated synthetic image.
func saveOverlay(img gocv.Mat, truth, detected []ipv.Point, file string) error {

	overlay := gocv.NewMat()
	defer overlay.Close()

	gocv.CvtColor(img, &overlay, gocv.ColorGrayToBGR)

	render.Outline(&overlay, detected, render.Yellow, 1)
	render.Landmarks(&overlay, truth, detected, render.DefaultFont(), 3, 2)

	if ok := gocv.IMWrite(file, overlay); !ok {
		return fmt.Errorf("writing %s", file)
	}

	return nil
}
