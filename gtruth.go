package ipv

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// LoadLandmarks reads ground truth landmark coordinates from a text file
// holding one "x,y" pair per line, ordered by landmark index. Blank lines
// and lines starting with # are skipped. Fractional coordinates are
// rounded to the nearest pixel.
func LoadLandmarks(file string) ([]Point, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	var points []Point
	lineNum := 0

	for scanner.Scan() {

		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")

		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: %q, want x,y", lineNum, line)
		}

		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)

		if err != nil {
			return nil, fmt.Errorf("line %d: bad x coordinate: %w", lineNum, err)
		}

		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)

		if err != nil {
			return nil, fmt.Errorf("line %d: bad y coordinate: %w", lineNum, err)
		}

		points = append(points, Point{
			X: int(math.Round(x)),
			Y: int(math.Round(y)),
		})
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no landmarks in %s", file)
	}

	return points, nil
}
