package logits

import (
	"math"
	"slices"
	"sort"

	"golang.org/x/exp/constraints"
)

// Each stage below returns a fresh vector and leaves its input untouched.

// ScaleTemperature divides every score by temp. temp must be positive.
func ScaleTemperature(scores []float32, temp float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = float64(s) / temp
	}
	return out
}

// PenaltyFor returns the divisor applied to the token at position j of a
// penalty window of length m. Position 0 is the oldest token. Penalties grow
// linearly from just above base to base+0.1 for the most recent token.
func PenaltyFor(base float64, j, m int) float64 {
	return base + 0.1*float64(j+1)/float64(m)
}

// ApplyRepetitionPenalty divides the score of each of the last window tokens
// of prior by its position-dependent penalty. A token that occurs several
// times in the window is penalized once per occurrence. Ids outside scores
// are skipped. A non-positive base or window disables the stage.
func ApplyRepetitionPenalty(scores []float64, prior []int, base float64, window int) []float64 {
	out := slices.Clone(scores)
	if base <= 0 || window <= 0 || len(prior) == 0 {
		return out
	}
	m := min(window, len(prior))
	recent := prior[len(prior)-m:]
	for j, id := range recent {
		if id < 0 || id >= len(out) {
			continue
		}
		out[id] /= PenaltyFor(base, j, m)
	}
	return out
}

// Softmax converts scores into probabilities. The maximum is subtracted before
// exponentiation. If the exponentials sum to zero (or the input holds nothing
// but -Inf or NaN) the result is uniform.
func Softmax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	maxv := scores[0]
	for _, s := range scores[1:] {
		if s > maxv {
			maxv = s
		}
	}
	var sum float64
	if !math.IsInf(maxv, -1) {
		for i, s := range scores {
			e := math.Exp(s - maxv)
			out[i] = e
			sum += e
		}
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		return fill(out, 1/float64(len(out)))
	}
	inv := 1 / sum
	for i := range out {
		out[i] *= inv
	}
	return out
}

// TopK keeps the k largest probabilities, zeroes the rest and renormalizes.
// Ties go to the lower id. If the kept entries sum to zero each gets 1/k.
// k outside (0, len(probs)) returns an unfiltered copy.
func TopK(probs []float64, k int) []float64 {
	if k <= 0 || k >= len(probs) {
		return slices.Clone(probs)
	}
	keep := topIndices(probs, k)
	out := make([]float64, len(probs))
	var sum float64
	for _, i := range keep {
		out[i] = probs[i]
		sum += probs[i]
	}
	if !(sum > 0) {
		for _, i := range keep {
			out[i] = 1 / float64(k)
		}
		return out
	}
	for _, i := range keep {
		out[i] /= sum
	}
	return out
}

// topIndices returns the indices of the k largest values ordered from largest
// to smallest. The shortlist is kept sorted by insertion; k is small.
func topIndices(x []float64, k int) []int {
	idx := make([]int, 0, k+1)
	val := make([]float64, 0, k+1)
	for i, v := range x {
		pos := len(val)
		for pos > 0 && val[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}
		idx = append(idx, 0)
		val = append(val, 0)
		copy(idx[pos+1:], idx[pos:])
		copy(val[pos+1:], val[pos:])
		idx[pos] = i
		val[pos] = v
		if len(val) > k {
			idx = idx[:k]
			val = val[:k]
		}
	}
	return idx
}

// TopP keeps the smallest set of most probable entries whose cumulative
// probability reaches p, always at least one, zeroes the rest and
// renormalizes. Entries are ordered by descending probability with ties kept
// in id order. p outside (0, 1) returns an unfiltered copy.
func TopP(probs []float64, p float64) []float64 {
	if !(p > 0 && p < 1) || len(probs) == 0 {
		return slices.Clone(probs)
	}
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case probs[a] > probs[b]:
			return -1
		case probs[a] < probs[b]:
			return 1
		default:
			return 0
		}
	})

	cut := len(order)
	var c float64
	for i, id := range order {
		c += probs[id]
		if c >= p {
			cut = i + 1
			break
		}
	}
	nucleus := order[:cut]

	out := make([]float64, len(probs))
	var sum float64
	for _, id := range nucleus {
		out[id] = probs[id]
		sum += probs[id]
	}
	if !(sum > 0) {
		for _, id := range nucleus {
			out[id] = 1 / float64(cut)
		}
		return out
	}
	for _, id := range nucleus {
		out[id] /= sum
	}
	return out
}

// Draw walks probs in id order and returns the first id with positive
// probability at which the running sum reaches r. It reports false when
// rounding leaves the total short of r.
func Draw(probs []float64, r float64) (int, bool) {
	var c float64
	for i, p := range probs {
		if !(p > 0) {
			continue
		}
		c += p
		if c >= r {
			return i, true
		}
	}
	return 0, false
}

// DrawCDF selects an id by binary search over the cumulative distribution of
// probs, normalized so that its last entry is exactly 1. It reports false when
// probs carries no positive mass.
func DrawCDF(probs []float64, r float64) (int, bool) {
	if len(probs) == 0 {
		return 0, false
	}
	cdf := make([]float64, len(probs))
	var c float64
	for i, p := range probs {
		if p > 0 {
			c += p
		}
		cdf[i] = c
	}
	if !(c > 0) || math.IsInf(c, 0) {
		return 0, false
	}
	for i := range cdf {
		cdf[i] /= c
	}
	cdf[len(cdf)-1] = 1
	i := sort.SearchFloat64s(cdf, min(max(r, 0), 1))
	for i < len(probs) && !(probs[i] > 0) {
		i++
	}
	if i >= len(probs) {
		return 0, false
	}
	return i, true
}

// Argmax returns the index of the maximum value, preferring the lowest index
// on ties. NaN entries never win. If the slice is empty it panics.
func Argmax[T constraints.Float](x []T) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV || (math.IsNaN(float64(bestV)) && !math.IsNaN(float64(x[i]))) {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

func fill(x []float64, v float64) []float64 {
	for i := range x {
		x[i] = v
	}
	return x
}
