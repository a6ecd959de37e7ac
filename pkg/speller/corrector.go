// Package speller turns the spelling table into actual corrections.
//
// Three engines cooperate. The candidate corrector ranks single-word
// candidates from the fragment index by weighted edit distance. The sequence
// corrector chooses a correction per token of a multi-token query with
// bigram-aware dynamic programming. The splitter re-segments the query,
// splitting tokens apart and merging neighbours, scoring segmentations the
// same way. The Speller facade runs the last two and answers with whichever
// scored higher.
package speller

import (
	"container/heap"
	"errors"
	"math"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/spellserve/pkg/editdist"
	"github.com/bastiangx/spellserve/pkg/keyboard"
	"github.com/bastiangx/spellserve/pkg/spelling"
	"github.com/bastiangx/spellserve/pkg/store"
	"github.com/bastiangx/spellserve/pkg/textutil"
	"github.com/bastiangx/spellserve/pkg/translit"
)

// Per-token candidate list bound used by the sequence corrector.
const limitCorrections = 5

// corrector generates and ranks candidates for one word.
type corrector struct {
	table       *spelling.Table
	layout      *keyboard.Layout
	translit    *translit.Table
	ext         *editdist.Extended
	maxDistance int
	prefix      string
}

func newCorrector(table *spelling.Table, layout *keyboard.Layout, tr *translit.Table, maxDistance int, prefix string) *corrector {
	return &corrector{
		table:       table,
		layout:      layout,
		translit:    tr,
		ext:         editdist.NewExtended(layout),
		maxDistance: maxDistance,
		prefix:      prefix,
	}
}

// candidate pairs a term with its ranking score, lower is better.
type candidate struct {
	term  string
	score float64
}

// candHeap is a max-heap on score so the worst candidate is always on top,
// ready to be dropped when the heap overflows.
type candHeap []candidate

func (h candHeap) Len() int           { return len(h) }
func (h candHeap) Less(i, j int) bool { return h[i].score > h[j].score }
func (h candHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func normFreq(freq uint64) float64 {
	return math.Log2(1 + float64(freq))
}

// topByDistance returns up to top candidates from the fragment index in
// ascending weighted-distance order. With useFreq the weighted distance is
// divided by the log frequency, favouring common words. Corrupt data aborts;
// any other per-candidate failure just drops that candidate.
func (c *corrector) topByDistance(word string, top int, useFreq, skipExact bool) ([]string, error) {
	if len(textutil.Runes(word)) <= 1 || top <= 0 {
		return nil, nil
	}
	terms, err := c.table.OpenTermList(word, c.maxDistance, c.prefix)
	if err != nil {
		return nil, err
	}

	wordRunes := textutil.Runes(word)
	h := make(candHeap, 0, top+1)
	heap.Init(&h)

	for terms.Next() {
		term := terms.Term()
		termRunes := textutil.Runes(term)

		diff := len(termRunes) - len(wordRunes)
		if diff < 0 {
			diff = -diff
		}
		if diff > c.maxDistance {
			continue
		}

		distance := editdist.Bounded(termRunes, wordRunes, c.maxDistance)
		if distance > c.maxDistance {
			continue
		}
		if distance == 0 && skipExact {
			continue
		}

		score := c.ext.Distance(termRunes, wordRunes, distance)
		if useFreq {
			freq, err := c.table.WordFrequency(term, c.prefix)
			if err != nil {
				if errors.Is(err, store.ErrCorrupt) {
					return nil, err
				}
				log.Warnf("dropping candidate %q: %v", term, err)
				continue
			}
			score /= normFreq(freq)
		}

		heap.Push(&h, candidate{term: term, score: score})
		if h.Len() > top {
			heap.Pop(&h)
		}
	}
	if err := terms.Err(); err != nil {
		if errors.Is(err, store.ErrCorrupt) {
			return nil, err
		}
		log.Warnf("candidate list ended early for %q: %v", word, err)
	}

	// Drain the max-heap back to front for ascending order.
	result := make([]string, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(candidate).term
	}
	return result, nil
}

// hasFrequency reports whether w exists in the vocabulary. Lookup errors
// count as absent.
func (c *corrector) hasFrequency(w string) bool {
	freq, err := c.table.WordFrequency(w, c.prefix)
	return err == nil && freq > 0
}

// topCorrections ranks index candidates and then appends the layout-swap and
// transliteration variants that exist in the vocabulary, which catch typing
// errors no edit distance will.
func (c *corrector) topCorrections(word string, top int, useFreq, skipExact bool) ([]string, error) {
	result, err := c.topByDistance(word, top, useFreq, skipExact)
	if err != nil {
		return nil, err
	}

	if swapped := c.layout.ConvertFromLayout(word); swapped != "" && c.hasFrequency(swapped) {
		result = append(result, swapped)
	}
	if swapped := c.layout.ConvertToLayout(word); swapped != "" && c.hasFrequency(swapped) {
		result = append(result, swapped)
	}
	if c.translit != nil {
		for _, variant := range c.translit.Transliterations(word) {
			if c.hasFrequency(variant) {
				result = append(result, variant)
			}
		}
	}
	return result, nil
}
