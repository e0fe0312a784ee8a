package ipv

// HeadScores is one classifier head's raw score vector, index-aligned with
// the classes of the interval table that head predicts.
type HeadScores []float32

// Top returns the indices of the k highest scoring classes in descending
// score order. A vector shorter than k returns all its indices. Ties keep
// the lower index first.
func (s HeadScores) Top(k int) []int {

	if k > len(s) {
		k = len(s)
	}

	top := make([]int, k)
	used := make([]bool, len(s))

	for j := 0; j < k; j++ {

		best := -1

		for i, v := range s {

			if used[i] {
				continue
			}

			if best == -1 || v > s[best] {
				best = i
			}
		}

		top[j] = best
		used[best] = true
	}

	return top
}
