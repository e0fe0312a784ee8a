package render

import (
	"gocv.io/x/gocv"
)

// Heatmap converts a vote map accumulator into an 8-bit image for
// saving, stretching the accumulated range to full contrast. With
// colormapped set the result is a false-color jet rendering, otherwise
// grayscale. The caller owns the returned Mat.
func Heatmap(voteMap gocv.Mat, colormapped bool) gocv.Mat {

	norm := gocv.NewMat()
	gocv.Normalize(voteMap, &norm, 255, 0, gocv.NormMinMax)

	img := gocv.NewMat()
	norm.ConvertTo(&img, gocv.MatTypeCV8U)
	norm.Close()

	if !colormapped {
		return img
	}

	colored := gocv.NewMat()
	gocv.ApplyColorMap(img, &colored, gocv.ColormapJet)
	img.Close()

	return colored
}
