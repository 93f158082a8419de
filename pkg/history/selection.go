// Package history measures a repository at selected points of its commit
// history, one commit at a time.
package history

import (
	"fmt"
	"iter"
	"slices"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/sampler"
)

type selectionKind int

const (
	selectSampled selectionKind = iota
	selectRange
	selectList
)

// Selection chooses which commit indices a walk visits. Index 0 is HEAD.
// Exactly one of range, list or sampled applies.
type Selection struct {
	kind    selectionKind
	from    int
	to      int
	indices []int
	factor  float64
}

// Range selects every index in [from, to].
func Range(from, to int) Selection {
	return Selection{kind: selectRange, from: from, to: to}
}

// List selects the given indices, visited in ascending order without repeats.
func List(indices ...int) Selection {
	sorted := slices.Clone(indices)
	slices.Sort(sorted)

	return Selection{kind: selectList, indices: slices.Compact(sorted)}
}

// Sampled selects the commit sampler's output for factor.
func Sampled(factor float64) Selection {
	return Selection{kind: selectSampled, factor: factor}
}

// Indices yields the selected indices that fall inside [0, numberHashes).
func (s Selection) Indices(numberHashes int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for idx := range s.candidates(numberHashes) {
			if idx < 0 || idx >= numberHashes {
				continue
			}

			if !yield(idx) {
				return
			}
		}
	}
}

func (s Selection) candidates(numberHashes int) iter.Seq[int] {
	switch s.kind {
	case selectRange:
		return func(yield func(int) bool) {
			for idx := max(s.from, 0); idx <= s.to && idx < numberHashes; idx++ {
				if !yield(idx) {
					return
				}
			}
		}
	case selectList:
		return slices.Values(s.indices)
	default:
		return sampler.Sample(numberHashes, s.factor)
	}
}

// String describes the selection for logs.
func (s Selection) String() string {
	switch s.kind {
	case selectRange:
		return fmt.Sprintf("range[%d..%d]", s.from, s.to)
	case selectList:
		return fmt.Sprintf("list%v", s.indices)
	default:
		return fmt.Sprintf("sampled(factor=%g)", s.factor)
	}
}
