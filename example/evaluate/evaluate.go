/*
Example code showing how to aggregate a localization run. It reads the
Results.csv a run directory holds, reports mean, best and worst errors
across the batch plus the per-landmark breakdown, and saves a line chart
of the per-image errors.

Usage:

	go run evaluate.go -d results/ -c results/errors.png
*/
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// runResults holds the parsed Results.csv columns.
type runResults struct {
	names []string
	// errs is one series per landmark
	errs  [][]float64
	means []float64
	// quadIoU is present for four landmark runs only
	quadIoU []float64
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	runDir := flag.String("d", "results/", "Run directory holding a Results.csv")
	chartFile := flag.String("c", "", "Chart output file, defaults to errors.png inside the run directory")

	flag.Parse()

	if *chartFile == "" {
		*chartFile = filepath.Join(*runDir, "errors.png")
	}

	res, err := readResults(filepath.Join(*runDir, "Results.csv"))

	if err != nil {
		log.Fatalf("Error reading results: %v\n", err)
	}

	log.Printf("Images: %d\n", len(res.names))
	log.Printf("Mean error: %.2f px\n", stat.Mean(res.means, nil))

	best, worst := 0, 0

	for i, m := range res.means {

		if m < res.means[best] {
			best = i
		}

		if m > res.means[worst] {
			worst = i
		}
	}

	log.Printf("Best: %s (%.2f px), worst: %s (%.2f px)\n",
		res.names[best], res.means[best], res.names[worst], res.means[worst])

	for n, series := range res.errs {
		log.Printf("Landmark %d mean error: %.2f px\n", n+1, stat.Mean(series, nil))
	}

	if len(res.quadIoU) > 0 {
		log.Printf("Mean quad IoU: %.3f\n", stat.Mean(res.quadIoU, nil))
	}

	if err := saveChart(res, *chartFile); err != nil {
		log.Fatalf("Error saving chart: %v\n", err)
	}

	log.Printf("Chart saved to %s\n", *chartFile)
}

// readResults parses a Results.csv, inferring the landmark count from
// the header's P<n>_error columns.
func readResults(file string) (*runResults, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()

	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s has no result rows", file)
	}

	header := rows[0]
	numLandmarks := 0

	for _, col := range header {
		if strings.HasSuffix(col, "_error") && strings.HasPrefix(col, "P") {
			numLandmarks++
		}
	}

	if numLandmarks == 0 {
		return nil, fmt.Errorf("%s has no P<n>_error columns", file)
	}

	iouCol := -1

	for i, col := range header {
		if col == "Quad_IoU" {
			iouCol = i
		}
	}

	res := &runResults{
		errs: make([][]float64, numLandmarks),
	}

	for _, row := range rows[1:] {

		if len(row) < numLandmarks+2 {
			return nil, fmt.Errorf("%s: short row %v", file, row)
		}

		res.names = append(res.names, row[0])

		for n := 0; n < numLandmarks; n++ {

			v, err := strconv.ParseFloat(row[1+n], 64)

			if err != nil {
				return nil, fmt.Errorf("%s: bad error in row %v: %w", file, row, err)
			}

			res.errs[n] = append(res.errs[n], v)
		}

		mean, err := strconv.ParseFloat(row[1+numLandmarks], 64)

		if err != nil {
			return nil, fmt.Errorf("%s: bad mean in row %v: %w", file, row, err)
		}

		res.means = append(res.means, mean)

		if iouCol >= 0 && iouCol < len(row) {

			iou, err := strconv.ParseFloat(row[iouCol], 64)

			if err != nil {
				return nil, fmt.Errorf("%s: bad IoU in row %v: %w", file, row, err)
			}

			res.quadIoU = append(res.quadIoU, iou)
		}
	}

	return res, nil
}

// seriesColors paints the per-landmark chart lines.
var seriesColors = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
}

// saveChart plots the per-image error series and writes the chart PNG.
func saveChart(res *runResults, file string) error {

	p := plot.New()
	p.Title.Text = "Localization error per image"
	p.X.Label.Text = "Image"
	p.Y.Label.Text = "Error (px)"

	meanPts := make(plotter.XYs, len(res.means))

	for i, m := range res.means {
		meanPts[i] = plotter.XY{X: float64(i), Y: m}
	}

	meanLine, err := plotter.NewLine(meanPts)

	if err != nil {
		return err
	}

	meanLine.Color = color.RGBA{A: 255}
	meanLine.Width = vg.Points(2)
	p.Add(meanLine)
	p.Legend.Add("mean", meanLine)

	for n, series := range res.errs {

		pts := make(plotter.XYs, len(series))

		for i, v := range series {
			pts[i] = plotter.XY{X: float64(i), Y: v}
		}

		line, err := plotter.NewLine(pts)

		if err != nil {
			return err
		}

		line.Color = seriesColors[n%len(seriesColors)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("P%d", n+1), line)
	}

	p.Legend.Top = true

	return p.Save(10*vg.Inch, 6*vg.Inch, file)
}
