package localizer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	ipv "github.com/rorybennett/go-ipv"
	"gonum.org/v1/gonum/mat"
)

// ResultSink writes per-image localization results to a run directory:
// Results.csv holds the error metrics, DetectedPoints.csv the detected
// coordinates, and one text file per image holds the transition tables.
// Column counts follow the landmark count of the first image written.
type ResultSink struct {
	dir string

	resultsFile *os.File
	results     *csv.Writer

	pointsFile *os.File
	points     *csv.Writer

	wroteHeader bool
}

// NewResultSink creates dir if needed and opens the result CSVs inside
// it.
func NewResultSink(dir string) (*ResultSink, error) {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating result directory: %w", err)
	}

	rf, err := os.Create(filepath.Join(dir, "Results.csv"))

	if err != nil {
		return nil, fmt.Errorf("creating Results.csv: %w", err)
	}

	pf, err := os.Create(filepath.Join(dir, "DetectedPoints.csv"))

	if err != nil {
		rf.Close()
		return nil, fmt.Errorf("creating DetectedPoints.csv: %w", err)
	}

	s := &ResultSink{
		dir:         dir,
		resultsFile: rf,
		results:     csv.NewWriter(rf),
		pointsFile:  pf,
		points:      csv.NewWriter(pf),
	}

	return s, nil
}

// Dir returns the run directory the sink writes into.
func (s *ResultSink) Dir() string {
	return s.dir
}

// Write appends one image's detected points and metrics to the CSVs.
func (s *ResultSink) Write(name string, detected []ipv.Point, m *Metrics) error {

	if len(detected) != len(m.Errors) {
		return fmt.Errorf("writing %s: %d points with %d errors",
			name, len(detected), len(m.Errors))
	}

	if !s.wroteHeader {
		if err := s.writeHeaders(len(detected)); err != nil {
			return err
		}
	}

	row := []string{name}

	for _, e := range m.Errors {
		row = append(row, formatFloat(e))
	}

	row = append(row, formatFloat(m.MeanError))

	if len(detected) == 4 {
		row = append(row, formatFloat(m.HeightDiff), formatFloat(m.WidthDiff),
			formatFloat(m.QuadIoU))
	} else {
		row = append(row, formatFloat(m.SeparationDiff))
	}

	if err := s.results.Write(row); err != nil {
		return fmt.Errorf("writing results row for %s: %w", name, err)
	}

	pointsRow := []string{name}

	for _, p := range detected {
		pointsRow = append(pointsRow, strconv.Itoa(p.X), strconv.Itoa(p.Y))
	}

	if err := s.points.Write(pointsRow); err != nil {
		return fmt.Errorf("writing points row for %s: %w", name, err)
	}

	return nil
}

// WriteTransitions dumps each landmark's transition table for one image
// to <name>_transitions.txt in the run directory.
func (s *ResultSink) WriteTransitions(name string, tables []*mat.Dense) error {

	f, err := os.Create(filepath.Join(s.dir, name+"_transitions.txt"))

	if err != nil {
		return fmt.Errorf("creating transitions file for %s: %w", name, err)
	}

	defer f.Close()

	for n, table := range tables {
		fmt.Fprintf(f, "Landmark %d\n", n+1)
		fmt.Fprintf(f, "%v\n\n", mat.Formatted(table, mat.Prefix(""), mat.Squeeze()))
	}

	return nil
}

// writeHeaders emits the CSV headers for n landmarks.
func (s *ResultSink) writeHeaders(n int) error {

	header := []string{"Name"}

	for i := 1; i <= n; i++ {
		header = append(header, fmt.Sprintf("P%d_error", i))
	}

	header = append(header, "Mean_error")

	if n == 4 {
		header = append(header, "H_difference", "W_difference", "Quad_IoU")
	} else {
		header = append(header, "Separation_difference")
	}

	if err := s.results.Write(header); err != nil {
		return fmt.Errorf("writing results header: %w", err)
	}

	pointsHeader := []string{"Name"}

	for i := 1; i <= n; i++ {
		pointsHeader = append(pointsHeader,
			fmt.Sprintf("P%d_x", i), fmt.Sprintf("P%d_y", i))
	}

	if err := s.points.Write(pointsHeader); err != nil {
		return fmt.Errorf("writing points header: %w", err)
	}

	s.wroteHeader = true
	return nil
}

// formatFloat renders metric values compactly for CSV cells.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Close flushes and closes both CSVs.
func (s *ResultSink) Close() error {

	s.results.Flush()
	s.points.Flush()

	if err := s.results.Error(); err != nil {
		s.resultsFile.Close()
		s.pointsFile.Close()
		return fmt.Errorf("flushing Results.csv: %w", err)
	}

	if err := s.points.Error(); err != nil {
		s.resultsFile.Close()
		s.pointsFile.Close()
		return fmt.Errorf("flushing DetectedPoints.csv: %w", err)
	}

	if err := s.resultsFile.Close(); err != nil {
		s.pointsFile.Close()
		return err
	}

	return s.pointsFile.Close()
}
