// Package spelling implements the on-disk spelling vocabulary: unigram and
// bigram frequencies grouped by prefix, plus two interchangeable fragment
// indexes that find candidate words within a bounded edit distance.
//
// The fragment indexes over-generate on purpose: a candidate list is a cheap
// union of per-fragment posting lists, and the corrector filters it by real
// edit distance afterwards. Two variants are provided. The n-gram index cuts
// every word into positional trigrams with placeholder bookends; the FastSS
// index stores the k-deletion neighbourhood of each word as (word, error
// mask) pairs under a shared prefix key. Which one a table uses is fixed at
// construction and baked into the stored data.
package spelling

import (
	"container/heap"
	"sort"
)

// TermList is a forward-only lazy sequence of candidate words. Terms arrive
// in ascending order without duplicates. After Next returns false, Err
// reports what stopped the iteration, if anything.
type TermList interface {
	// Next advances to the next term; false at the end of the sequence.
	Next() bool

	// Term returns the current term. Only valid after a true Next.
	Term() string

	// ApproxSize estimates how many terms the list holds. Only used to
	// balance the OR-merge tree, so rough ordering is enough.
	ApproxSize() int

	// Err returns the error that terminated iteration early, or nil.
	Err() error
}

// emptyTermList is the sentinel for "no candidates".
type emptyTermList struct{}

func (emptyTermList) Next() bool      { return false }
func (emptyTermList) Term() string    { return "" }
func (emptyTermList) ApproxSize() int { return 0 }
func (emptyTermList) Err() error      { return nil }

// EmptyTermList yields no terms.
var EmptyTermList TermList = emptyTermList{}

// sliceTermList iterates a realized word list. The words are sorted at
// construction so the list can take part in OR-merges.
type sliceTermList struct {
	words []string
	index int
}

func newSliceTermList(words []string) *sliceTermList {
	sort.Strings(words)
	return &sliceTermList{words: words, index: -1}
}

func (l *sliceTermList) Next() bool {
	for l.index+1 < len(l.words) {
		l.index++
		// Skip duplicates so the merge contract holds.
		if l.index == 0 || l.words[l.index] != l.words[l.index-1] {
			return true
		}
	}
	l.index = len(l.words)
	return false
}

func (l *sliceTermList) Term() string    { return l.words[l.index] }
func (l *sliceTermList) ApproxSize() int { return len(l.words) }
func (l *sliceTermList) Err() error      { return nil }

// orTermList merges two ascending term lists, deduplicating terms common to
// both sides.
type orTermList struct {
	left, right TermList
	leftOK      bool
	rightOK     bool
	started     bool
	cur         string
	err         error
}

func newOrTermList(left, right TermList) *orTermList {
	return &orTermList{left: left, right: right}
}

func (o *orTermList) Next() bool {
	if o.err != nil {
		return false
	}
	if !o.started {
		o.started = true
		o.leftOK = o.left.Next()
		o.rightOK = o.right.Next()
	}

	if err := o.left.Err(); err != nil {
		o.err = err
		return false
	}
	if err := o.right.Err(); err != nil {
		o.err = err
		return false
	}

	switch {
	case o.leftOK && o.rightOK:
		lt, rt := o.left.Term(), o.right.Term()
		switch {
		case lt < rt:
			o.cur = lt
			o.leftOK = o.left.Next()
		case lt > rt:
			o.cur = rt
			o.rightOK = o.right.Next()
		default:
			o.cur = lt
			o.leftOK = o.left.Next()
			o.rightOK = o.right.Next()
		}
	case o.leftOK:
		o.cur = o.left.Term()
		o.leftOK = o.left.Next()
	case o.rightOK:
		o.cur = o.right.Term()
		o.rightOK = o.right.Next()
	default:
		return false
	}
	return true
}

func (o *orTermList) Term() string    { return o.cur }
func (o *orTermList) ApproxSize() int { return o.left.ApproxSize() + o.right.ApproxSize() }
func (o *orTermList) Err() error      { return o.err }

// termListHeap orders term lists by approximate size, smallest first.
type termListHeap []TermList

func (h termListHeap) Len() int            { return len(h) }
func (h termListHeap) Less(i, j int) bool  { return h[i].ApproxSize() < h[j].ApproxSize() }
func (h termListHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *termListHeap) Push(x any)         { *h = append(*h, x.(TermList)) }
func (h *termListHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// buildOrTree combines per-fragment lists into one balanced OR-merge tree by
// repeatedly pairing the two smallest lists, the way an optimal Huffman code
// is built. Balancing by size keeps the total comparison work low.
func buildOrTree(lists []TermList) TermList {
	if len(lists) == 0 {
		return EmptyTermList
	}
	h := termListHeap(lists)
	heap.Init(&h)
	for h.Len() > 1 {
		a := heap.Pop(&h).(TermList)
		b := heap.Pop(&h).(TermList)
		heap.Push(&h, newOrTermList(b, a))
	}
	return h[0]
}
