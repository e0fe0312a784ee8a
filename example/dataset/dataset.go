/*
Example code showing how to sample annotated scan images into a training
set. For every image it walks the sampling grid, labels each grid point
against the ground truth landmarks and writes the multi-scale patch views
plus a samples.csv row per view.

Ground truth is read from a text file next to each image holding one
"x,y" line per landmark, in landmark order.

Usage:

	go run dataset.go -i scans/ -p points/ -o dataset/
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ipv "github.com/rorybennett/go-ipv"
	"github.com/rorybennett/go-ipv/sampler"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	imgPath := flag.String("i", "scans/", "Image file or directory of images to sample")
	ptsPath := flag.String("p", "points/", "Directory of ground truth point files, <image name>.txt")
	outDir := flag.String("o", "dataset/", "Output directory for patches and samples.csv")
	step := flag.Int("s", 10, "Grid step in pixels")
	scales := flag.String("scales", "", "Comma separated patch scales, canonical size first, blank for the defaults")
	roi := flag.String("roi", "", "Restrict sampling to a disc, format cx,cy,radius")
	balance := flag.Bool("balance", false, "Filter grid points using the inner class balance predicate")

	flag.Parse()

	p := sampler.DefaultParams()
	p.Step = *step

	if *scales != "" {
		var err error
		p.Scales, err = parseInts(*scales)

		if err != nil {
			log.Fatalf("Error parsing scales: %v\n", err)
		}
	}

	if *roi != "" {
		r, err := parseROI(*roi)

		if err != nil {
			log.Fatalf("Error parsing roi: %v\n", err)
		}

		p.ROI = r
	}

	if *balance {
		p.Balance = sampler.InnerClassBalance
	}

	s, err := sampler.NewSampler(p)

	if err != nil {
		log.Fatalf("Error creating sampler: %v\n", err)
	}

	sink, err := sampler.NewCSVSink(*outDir)

	if err != nil {
		log.Fatalf("Error creating sink: %v\n", err)
	}

	files, err := imageFiles(*imgPath)

	if err != nil {
		log.Fatalf("Error listing images: %v\n", err)
	}

	for _, file := range files {

		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		landmarks, err := ipv.LoadLandmarks(filepath.Join(*ptsPath, name+".txt"))

		if err != nil {
			log.Fatalf("Error loading ground truth for %s: %v\n", name, err)
		}

		img := gocv.IMRead(file, gocv.IMReadGrayScale)

		if img.Empty() {
			log.Fatalf("Error reading image from: %s\n", file)
		}

		if err := s.Sample(img, name, landmarks, sink); err != nil {
			log.Fatalf("Error sampling %s: %v\n", name, err)
		}

		img.Close()
		log.Printf("Sampled %s, %d landmarks\n", name, len(landmarks))
	}

	if err := sink.Close(); err != nil {
		log.Fatalf("Error closing sink: %v\n", err)
	}

	// report the distance class balance of the emitted records
	for n, row := range s.ClassCounts() {
		log.Printf("Landmark %d distance class counts: %v\n", n+1, row)
	}
}

// imageFiles returns path itself for a file, or the image files directly
// inside it for a directory.
func imageFiles(path string) ([]string, error) {

	info, err := os.Stat(path)

	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)

	if err != nil {
		return nil, err
	}

	var files []string

	for _, entry := range entries {

		if entry.IsDir() {
			continue
		}

		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", path)
	}

	return files, nil
}

// parseInts parses a comma separated integer list.
func parseInts(s string) ([]int, error) {

	var out []int

	for _, part := range strings.Split(s, ",") {

		v, err := strconv.Atoi(strings.TrimSpace(part))

		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// parseROI parses a cx,cy,radius triple.
func parseROI(s string) (*sampler.ROI, error) {

	vals, err := parseInts(s)

	if err != nil {
		return nil, err
	}

	if len(vals) != 3 {
		return nil, fmt.Errorf("roi %q, want cx,cy,radius", s)
	}

	r := &sampler.ROI{
		Center: ipv.Pt(vals[0], vals[1]),
		Radius: vals[2],
	}

	return r, nil
}
