// Package sampler produces the commit indices visited by a history walk.
//
// Commits are indexed newest-first, so low indices are recent history. Recent
// commits are visited one by one; older history is visited with growing
// strides so the number of dependency installs stays bounded.
package sampler

import "iter"

// Band thresholds, divided by the density factor.
const (
	denseLimit  = 100
	middleLimit = 1000
	sparseLimit = 10000
)

// Strides per band.
const (
	denseStride  = 1
	middleStride = 20
	sparseStride = 200
	// tailStride applies beyond sparseLimit/factor.
	tailStride = 2000
)

// legacyFirstIndex is the first value emitted when the factor is zero.
const legacyFirstIndex = 1

// Sample returns the increasing sequence of commit indices to visit for a
// history of numberHashes commits.
//
// With factor > 0 the sequence starts at 0 and stops once it reaches
// numberHashes-1. With factor <= 0 the first value is 1 and every following
// index is visited. Each call returns an independent sequence.
func Sample(numberHashes int, factor float64) iter.Seq[int] {
	return func(yield func(int) bool) {
		if numberHashes <= 0 {
			return
		}

		if factor <= 0 {
			sampleLegacy(numberHashes, yield)

			return
		}

		last := numberHashes - 1

		if !yield(0) {
			return
		}

		for idx := 0; idx < last; {
			idx = Next(idx, numberHashes, factor)

			if !yield(idx) {
				return
			}
		}
	}
}

// Next returns the index following idx. The result is always greater than idx
// and never greater than numberHashes-1 while idx < numberHashes-1.
func Next(idx, numberHashes int, factor float64) int {
	last := numberHashes - 1
	stride := Stride(idx, factor)

	next := idx + stride
	if stride > denseStride && next > numberHashes-2 {
		next = numberHashes - 2
		if next <= idx {
			next = last
		}
	}

	return min(next, last)
}

// Stride returns the step size used at idx for the given factor.
func Stride(idx int, factor float64) int {
	pos := float64(idx)

	switch {
	case pos < denseLimit/factor:
		return denseStride
	case pos < middleLimit/factor:
		return middleStride
	case pos < sparseLimit/factor:
		return sparseStride
	default:
		return tailStride
	}
}

func sampleLegacy(numberHashes int, yield func(int) bool) {
	if !yield(legacyFirstIndex) {
		return
	}

	for idx := legacyFirstIndex + 1; idx < numberHashes; idx++ {
		if !yield(idx) {
			return
		}
	}
}
