package localizer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	ipv "github.com/rorybennett/go-ipv"
	"gonum.org/v1/gonum/mat"
)

// readCSV loads a written CSV back for checking.
func readCSV(t *testing.T, file string) [][]string {

	t.Helper()

	f, err := os.Open(file)

	if err != nil {
		t.Fatalf("opening %s: %v", file, err)
	}

	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()

	if err != nil {
		t.Fatalf("reading %s: %v", file, err)
	}

	return rows
}

// TestResultSink writes one four landmark result and checks the CSV
// shapes and key cells.
func TestResultSink(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "run")

	sink, err := NewResultSink(dir)

	if err != nil {
		t.Fatalf("NewResultSink failed: %v", err)
	}

	detected := []ipv.Point{
		ipv.Pt(50, 2), ipv.Pt(100, 50), ipv.Pt(50, 100), ipv.Pt(0, 50),
	}

	truth := []ipv.Point{
		ipv.Pt(50, 0), ipv.Pt(100, 50), ipv.Pt(50, 100), ipv.Pt(0, 50),
	}

	m, err := Score(detected, truth)

	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if err := sink.Write("frame_000", detected, m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	tables := []*mat.Dense{mat.NewDense(3, 3, nil)}
	tables[0].Set(1, 1, 4)

	if err := sink.WriteTransitions("frame_000", tables); err != nil {
		t.Fatalf("WriteTransitions failed: %v", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	results := readCSV(t, filepath.Join(dir, "Results.csv"))

	if len(results) != 2 {
		t.Fatalf("Results.csv has %d rows, expected 2", len(results))
	}

	// Name, 4 errors, mean, height, width, IoU
	if len(results[0]) != 9 || results[0][5] != "Mean_error" {
		t.Errorf("results header = %v", results[0])
	}

	if results[1][0] != "frame_000" || results[1][1] != "2.000" {
		t.Errorf("results row = %v", results[1])
	}

	points := readCSV(t, filepath.Join(dir, "DetectedPoints.csv"))

	if len(points) != 2 || len(points[1]) != 9 {
		t.Fatalf("DetectedPoints.csv shape unexpected: %v", points)
	}

	if points[1][1] != "50" || points[1][2] != "2" {
		t.Errorf("points row = %v", points[1])
	}

	if _, err := os.Stat(filepath.Join(dir, "frame_000_transitions.txt")); err != nil {
		t.Errorf("transitions file missing: %v", err)
	}
}

// TestResultSinkTwoLandmarks checks the narrower sagittal layout.
func TestResultSinkTwoLandmarks(t *testing.T) {

	dir := t.TempDir()

	sink, err := NewResultSink(dir)

	if err != nil {
		t.Fatalf("NewResultSink failed: %v", err)
	}

	detected := []ipv.Point{ipv.Pt(50, 15), ipv.Pt(50, 90)}
	truth := []ipv.Point{ipv.Pt(50, 10), ipv.Pt(50, 90)}

	m, err := Score(detected, truth)

	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if err := sink.Write("frame_000", detected, m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	results := readCSV(t, filepath.Join(dir, "Results.csv"))

	// Name, 2 errors, mean, separation
	if len(results[0]) != 5 || results[0][4] != "Separation_difference" {
		t.Errorf("results header = %v", results[0])
	}

	if results[1][4] != "5.000" {
		t.Errorf("separation cell = %q, expected 5.000", results[1][4])
	}
}
