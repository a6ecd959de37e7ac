// Package editdist computes edit distances between code point sequences.
//
// Two metrics are provided. Bounded is the plain Damerau-Levenshtein count
// with an early-exit cutoff, cheap enough to run against every candidate the
// fragment index over-generates. Extended is the weighted variant used for
// final ranking: edit costs depend on where in the word the edit happens
// (typos near the start of a word are rarer, so they cost more) and on how far
// apart the two keys sit on the keyboard.
//
// The algorithm follows the banded three-row dynamic programming scheme from
// "An extension of Ukkonen's enhanced dynamic programming ASM algorithm" by
// Berghel and Roach, restricted to a diagonal band of width max_distance.
package editdist

import (
	"math"

	"github.com/bastiangx/spellserve/pkg/keyboard"
)

// Bounded returns the unweighted Damerau-Levenshtein distance between a and
// b, or any value greater than maxDistance when the true distance exceeds it.
func Bounded(a, b []rune, maxDistance int) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(b)-len(a) > maxDistance {
		return len(b) - len(a)
	}
	if len(a) == 0 {
		return len(b)
	}

	width := len(a) + 1
	prev2 := make([]int, width)
	prev := make([]int, width)
	cur := make([]int, width)

	for j := 0; j <= len(a); j++ {
		prev[j] = j
	}

	const inf = math.MaxInt32
	for i := 1; i <= len(b); i++ {
		for j := range cur {
			cur[j] = inf
		}
		cur[0] = i

		from := max(1, i-maxDistance-1)
		to := min(len(a), i+maxDistance+1)

		rowMin := inf
		for j := from; j <= to; j++ {
			cost := 1
			if a[j-1] == b[i-1] {
				cost = 0
			}
			v := min(cur[j-1]+1, min(prev[j]+1, prev[j-1]+cost))
			if i > 1 && j > 1 && a[j-1] == b[i-2] && a[j-2] == b[i-1] {
				v = min(v, prev2[j-2]+1)
			}
			cur[j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > maxDistance {
			return rowMin
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(a)]
}

// Extended computes the weighted edit distance. It keeps its three DP rows
// across calls, so a single instance must not be shared between goroutines.
type Extended struct {
	current  []float64
	previous []float64
	transpos []float64

	layout *keyboard.Layout
}

// NewExtended returns a weighted distance calculator using the key geometry
// of the given layout. A nil layout falls back to the english layout, which
// uses the plain QWERTY key geometry.
func NewExtended(layout *keyboard.Layout) *Extended {
	if layout == nil {
		layout = keyboard.ByName("english")
	}
	return &Extended{layout: layout}
}

// positionCost weighs edits by position: 1.0 at the first character, falling
// linearly to 0 at the last.
func positionCost(index, length int) float64 {
	den := length - 1
	if den < 1 {
		den = 1
	}
	num := index
	if num > length-1 {
		num = length - 1
	}
	c := 1 - float64(num)/float64(den)
	if c < 0 {
		return 0
	}
	return c
}

// keyboardCost only rewards substitutions between keys that are nearly
// adjacent; anything below 0.9 proximity is treated as unrelated.
func (e *Extended) keyboardCost(a, b rune) float64 {
	p := e.layout.Proximity(a, b)
	if p > 0.9 {
		return p
	}
	return 0
}

func (e *Extended) insertCost(index, length int) float64 {
	return 0.85 + 0.4*positionCost(index, length)
}

func (e *Extended) deleteCost(index, length int) float64 {
	return 0.75 + 0.4*positionCost(index, length)
}

func (e *Extended) replaceCost(index, length int, a, b rune) float64 {
	return 0.75 + 0.35*positionCost(index, length) - 0.25*e.keyboardCost(a, b)
}

func (e *Extended) transposeCost(index, length int) float64 {
	return 0.75 + 0.25*positionCost(index, length)
}

func (e *Extended) grow(width int) {
	if cap(e.current) >= width {
		e.current = e.current[:width]
		e.previous = e.previous[:width]
		e.transpos = e.transpos[:width]
		return
	}
	e.current = make([]float64, width*2)[:width]
	e.previous = make([]float64, width*2)[:width]
	e.transpos = make([]float64, width*2)[:width]
}

// Distance returns the weighted edit distance between the code point
// sequences a and b. When their length difference already exceeds
// maxDistance the difference is returned without further work.
func (e *Extended) Distance(a, b []rune, maxDistance int) float64 {
	if len(a) == 0 {
		return float64(len(b))
	}
	if len(b) == 0 {
		return float64(len(a))
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(b)-len(a) > maxDistance {
		return float64(len(b) - len(a))
	}

	e.grow(len(a) + 1)

	e.previous[0] = 0
	for j := 1; j <= len(a); j++ {
		e.previous[j] = float64(j) * e.insertCost(j-1, len(a))
	}

	var lastB rune
	for i := 1; i <= len(b); i++ {
		for j := range e.current {
			e.current[j] = math.Inf(1)
		}
		bCh := b[i-1]
		e.current[0] = float64(i) * e.insertCost(i-1, len(b))

		from := 1
		if i > maxDistance+1 {
			from = i - maxDistance - 1
		}
		to := min(i+maxDistance+1, len(a))

		var lastA rune
		for j := from; j <= to; j++ {
			aCh := a[j-1]

			v := e.current[j-1] + e.insertCost(j-1, len(a))
			if d := e.previous[j] + e.deleteCost(j-1, len(a)); d < v {
				v = d
			}
			r := e.previous[j-1]
			if aCh != bCh {
				r += e.replaceCost(j-1, len(a), aCh, bCh)
			}
			if r < v {
				v = r
			}
			if aCh != bCh && aCh == lastB && bCh == lastA && j >= 2 {
				if t := e.transpos[j-2] + e.transposeCost(j-1, len(a)); t < v {
					v = t
				}
			}
			e.current[j] = v
			lastA = aCh
		}
		lastB = bCh

		e.transpos, e.previous, e.current = e.previous, e.current, e.transpos
	}
	return e.previous[len(a)]
}
