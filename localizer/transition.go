package localizer

import (
	"gonum.org/v1/gonum/mat"
)

// Transition returns a copy of landmark n's prediction-transition table.
// Cell (i, j) counts how often the winning distance class moved from i on
// one sample to j on the next. Neighboring grid samples sit a few pixels
// apart, so a stable classifier concentrates mass on and next to the
// diagonal.
func (l *Localizer) Transition(n int) *mat.Dense {
	return mat.DenseCopyOf(l.trans[n])
}

// Transitions returns copies of every landmark's transition table, in
// landmark order.
func (l *Localizer) Transitions() []*mat.Dense {

	out := make([]*mat.Dense, len(l.trans))

	for n := range l.trans {
		out[n] = mat.DenseCopyOf(l.trans[n])
	}

	return out
}

// Stability reports the share of landmark n's transitions that stayed on
// or next to the diagonal, in [0,1]. It returns 0 before any transition
// has been recorded.
func (l *Localizer) Stability(n int) float64 {

	rows, cols := l.trans[n].Dims()

	var total, near float64

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {

			v := l.trans[n].At(i, j)
			total += v

			if j >= i-1 && j <= i+1 {
				near += v
			}
		}
	}

	if total == 0 {
		return 0
	}

	return near / total
}
