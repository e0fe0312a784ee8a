package sampler

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gocv.io/x/gocv"
)

// CSVSink writes records to a training set directory: one PNG per patch
// view plus a samples.csv row per record referencing it. The CSV starts
// with a header row sized to the first record's landmark count.
type CSVSink struct {
	dir         string
	f           *os.File
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVSink creates dir if needed and opens samples.csv inside it.
func NewCSVSink(dir string) (*CSVSink, error) {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating sink directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "samples.csv"))

	if err != nil {
		return nil, fmt.Errorf("creating samples.csv: %w", err)
	}

	s := &CSVSink{
		dir: dir,
		f:   f,
		w:   csv.NewWriter(f),
	}

	return s, nil
}

// Write saves the record's patch as PNG and appends its CSV row. Patch
// files are named <id>_<scale index +1>.png so all views of one grid
// point sort together.
func (s *CSVSink) Write(rec *Record) error {

	if !s.wroteHeader {
		if err := s.writeHeader(len(rec.Labels)); err != nil {
			return err
		}
	}

	name := fmt.Sprintf("%s_%d.png", rec.ID, rec.ScaleIndex+1)

	if ok := gocv.IMWrite(filepath.Join(s.dir, name), rec.Patch); !ok {
		return fmt.Errorf("writing patch %s", name)
	}

	row := []string{
		rec.ID,
		name,
		rec.ImageID,
		strconv.Itoa(rec.Sample.X),
		strconv.Itoa(rec.Sample.Y),
	}

	for _, l := range rec.Labels {
		row = append(row, strconv.Itoa(l.Distance), strconv.Itoa(l.Angle))
	}

	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("writing csv row for %s: %w", rec.ID, err)
	}

	return nil
}

// writeHeader emits the column header for n landmarks.
func (s *CSVSink) writeHeader(n int) error {

	header := []string{"id", "patch", "image", "x", "y"}

	for i := 1; i <= n; i++ {
		header = append(header,
			fmt.Sprintf("p%d_distance", i),
			fmt.Sprintf("p%d_angle", i))
	}

	if err := s.w.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	s.wroteHeader = true
	return nil
}

// Close flushes the CSV and closes the file.
func (s *CSVSink) Close() error {

	s.w.Flush()

	if err := s.w.Error(); err != nil {
		s.f.Close()
		return fmt.Errorf("flushing samples.csv: %w", err)
	}

	return s.f.Close()
}
