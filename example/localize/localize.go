/*
Example code showing how to localize landmarks from classifier scores
computed by an external model process.

The score file is a raw stream of per-sample head score vectors in the
order the dataset tool emitted the samples; the samples.csv from that run
supplies the matching sample coordinates. The tool accumulates the votes,
reads off the detected points, scores them against ground truth and
writes the result CSVs, an annotated overlay and one heatmap per
landmark.

Usage:

	go run localize.go -i scan.png -p scan.txt -c dataset/samples.csv \
		-b scan_scores.bin -plane transverse -o results/
*/
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ipv "github.com/rorybennett/go-ipv"
	"github.com/rorybennett/go-ipv/localizer"
	"github.com/rorybennett/go-ipv/render"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	imgFile := flag.String("i", "scan.png", "Scan image the scores were computed on")
	ptsFile := flag.String("p", "scan.txt", "Ground truth points file")
	csvFile := flag.String("c", "dataset/samples.csv", "samples.csv from the dataset run that produced the scores")
	scoresFile := flag.String("b", "scores.bin", "Raw classifier score stream")
	format := flag.String("f", "f16", "Score stream format, f16 or f32")
	plane := flag.String("plane", "transverse", "Scan plane, transverse or sagittal")
	outDir := flag.String("o", "results/", "Output directory for result CSVs and images")
	ttfFont := flag.String("ttf", "", "Optional TTF font for overlay labels")
	colormapped := flag.Bool("jet", false, "Save colormapped heatmaps instead of grayscale")

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

	var scoreFormat ipv.ScoreFormat

	switch *format {
	case "f16":
		scoreFormat = ipv.ScoreFloat16
	case "f32":
		scoreFormat = ipv.ScoreFloat32
	default:
		log.Fatalf("Unknown score format %q\n", *format)
	}

	img := gocv.IMRead(*imgFile, gocv.IMReadColor)

	if img.Empty() {
		log.Fatalf("Error reading image from: %s\n", *imgFile)
	}

	defer img.Close()

	truth, err := ipv.LoadLandmarks(*ptsFile)

	if err != nil {
		log.Fatalf("Error loading ground truth: %v\n", err)
	}

	if len(truth) != p.NumLandmarks {
		log.Fatalf("Ground truth has %d landmarks, %s plane wants %d\n",
			len(truth), *plane, p.NumLandmarks)
	}

	coords, err := sampleCoords(*csvFile)

	if err != nil {
		log.Fatalf("Error reading sample coordinates: %v\n", err)
	}

	f, err := os.Open(*scoresFile)

	if err != nil {
		log.Fatalf("Error opening score stream: %v\n", err)
	}

	defer f.Close()

	// two heads per landmark, sized by the tables
	var headSizes []int

	for n := 0; n < p.NumLandmarks; n++ {
		headSizes = append(headSizes, p.DistanceTable.Len(), p.AngleTable.Len())
	}

	sr, err := ipv.NewScoreReader(f, scoreFormat, headSizes)

	if err != nil {
		log.Fatalf("Error creating score reader: %v\n", err)
	}

	loc, err := localizer.NewLocalizer(p, img.Cols(), img.Rows())

	if err != nil {
		log.Fatalf("Error creating localizer: %v\n", err)
	}

	defer loc.Close()

	for _, c := range coords {

		heads, err := sr.Next()

		if errors.Is(err, io.EOF) {
			log.Fatalf("Score stream ended after %d of %d samples\n",
				loc.Samples(), len(coords))
		}

		if err != nil {
			log.Fatalf("Error decoding scores: %v\n", err)
		}

		if err := loc.Accumulate(c, heads); err != nil {
			log.Fatalf("Error accumulating sample (%d,%d): %v\n", c.X, c.Y, err)
		}
	}

	detected, err := loc.Localize()

	if err != nil {
		log.Fatalf("Error localizing: %v\n", err)
	}

	metrics, err := localizer.Score(detected, truth)

	if err != nil {
		log.Fatalf("Error scoring detection: %v\n", err)
	}

	name := strings.TrimSuffix(filepath.Base(*imgFile), filepath.Ext(*imgFile))

	sink, err := localizer.NewResultSink(*outDir)

	if err != nil {
		log.Fatalf("Error creating result sink: %v\n", err)
	}

	if err := sink.Write(name, detected, metrics); err != nil {
		log.Fatalf("Error writing results: %v\n", err)
	}

	if err := sink.WriteTransitions(name, loc.Transitions()); err != nil {
		log.Fatalf("Error writing transitions: %v\n", err)
	}

	if err := sink.Close(); err != nil {
		log.Fatalf("Error closing result sink: %v\n", err)
	}

	if err := saveOverlay(img, truth, detected, *ttfFont,
		filepath.Join(*outDir, name+"_overlay.png")); err != nil {
		log.Fatalf("Error saving overlay: %v\n", err)
	}

	if err := saveHeatmaps(loc, *colormapped, *outDir, name); err != nil {
		log.Fatalf("Error saving heatmaps: %v\n", err)
	}

	loc.WriteSummary(os.Stdout)
	log.Printf("Mean error: %.2f px\n", metrics.MeanError)
}

// sampleCoords reads the grid coordinates from a dataset samples.csv in
// emission order, one entry per grid point.
func sampleCoords(file string) ([]ipv.Point, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	r := csv.NewReader(f)

	rows, err := r.ReadAll()

	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s has no sample rows", file)
	}

	var coords []ipv.Point
	prevID := ""

	// skip the header; each grid point repeats once per scale, keyed by id
	for _, row := range rows[1:] {

		if len(row) < 5 {
			return nil, fmt.Errorf("%s: short row %v", file, row)
		}

		if row[0] == prevID {
			continue
		}

		prevID = row[0]

		x, err := strconv.Atoi(row[3])

		if err != nil {
			return nil, fmt.Errorf("%s: bad x in row %v: %w", file, row, err)
		}

		y, err := strconv.Atoi(row[4])

		if err != nil {
			return nil, fmt.Errorf("%s: bad y in row %v: %w", file, row, err)
		}

		coords = append(coords, ipv.Pt(x, y))
	}

	return coords, nil
}

// saveOverlay draws ground truth and detected landmarks over the scan
// and writes the annotated image.
func saveOverlay(img gocv.Mat, truth, detected []ipv.Point, ttfFont,
	file string) error {

	overlay := img.Clone()
	defer overlay.Close()

	render.Outline(&overlay, truth, render.Green, 1)
	render.Outline(&overlay, detected, render.Yellow, 1)
	render.Landmarks(&overlay, truth, detected, render.DefaultFont(), 3, 2)

	if ttfFont != "" {

		face, err := render.TTFFace(ttfFont, 16)

		if err != nil {
			return err
		}

		for n, p := range detected {
			text := fmt.Sprintf("P%d", n+1)

			if err := render.TTFLabel(&overlay, text,
				image.Pt(p.X+8, p.Y-8), face, render.LandmarkColor(n)); err != nil {
				return err
			}
		}
	}

	if ok := gocv.IMWrite(file, overlay); !ok {
		return fmt.Errorf("writing %s", file)
	}

	return nil
}

// saveHeatmaps writes one smoothed vote map image per landmark.
func saveHeatmaps(loc *localizer.Localizer, colormapped bool, dir,
	name string) error {

	for n := 0; n < len(loc.Detected()); n++ {

		sm, err := loc.SmoothedMap(n)

		if err != nil {
			return err
		}

		hm := render.Heatmap(sm, colormapped)
		file := filepath.Join(dir, fmt.Sprintf("%s_map%d.png", name, n+1))

		ok := gocv.IMWrite(file, hm)
		hm.Close()

		if !ok {
			return fmt.Errorf("writing %s", file)
		}
	}

	return nil
}
