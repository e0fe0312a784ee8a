package render

import "image/color"

var (
	// landmarkColors paints each detected landmark's marker and label,
	// indexed by landmark order
	landmarkColors = []color.RGBA{
		{R: 255, G: 56, B: 56, A: 255},  // #FF3838
		{R: 255, G: 178, B: 29, A: 255}, // #FFB21D
		{R: 0, G: 194, B: 255, A: 255},  // #00C2FF
		{R: 132, G: 56, B: 255, A: 255}, // #8438FF
	}

	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// LandmarkColor returns the marker color for landmark n.
func LandmarkColor(n int) color.RGBA {
	return landmarkColors[n%len(landmarkColors)]
}
