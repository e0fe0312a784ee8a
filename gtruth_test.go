package ipv

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTempPoints writes a ground truth file for loading tests.
func writeTempPoints(t *testing.T, content string) string {

	t.Helper()

	file := filepath.Join(t.TempDir(), "points.txt")

	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("writing points file: %v", err)
	}

	return file
}

// TestLoadLandmarks checks parsing, comment skipping and rounding.
func TestLoadLandmarks(t *testing.T) {

	file := writeTempPoints(t, `# transverse plane, top right bottom left
350, 120

460,350
349.6, 580.4
240 , 350
`)

	points, err := LoadLandmarks(file)

	if err != nil {
		t.Fatalf("LoadLandmarks failed: %v", err)
	}

	want := []Point{Pt(350, 120), Pt(460, 350), Pt(350, 580), Pt(240, 350)}

	if len(points) != len(want) {
		t.Fatalf("got %d points, expected %d", len(points), len(want))
	}

	for i := range want {
		if points[i] != want[i] {
			t.Errorf("point %d = %v, expected %v", i, points[i], want[i])
		}
	}
}

// TestLoadLandmarksErrors checks malformed files are rejected.
func TestLoadLandmarksErrors(t *testing.T) {

	tests := []struct {
		name    string
		content string
	}{
		{"missing y", "350\n"},
		{"extra field", "1,2,3\n"},
		{"bad number", "abc,350\n"},
		{"no points", "# only a comment\n"},
	}

	for _, tc := range tests {

		file := writeTempPoints(t, tc.content)

		if _, err := LoadLandmarks(file); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	if _, err := LoadLandmarks(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("missing file: expected error")
	}
}
