package speller

import (
	"sort"
)

// The sequence corrector chooses one candidate per query token, scoring
// choices with bigram frequencies across a gap of up to maxGap tokens. The
// search is a memoized recursion over (position, recent choices); each memo
// entry keeps not just the best continuation but a diversity-ranked list of
// up to resultCount of them, so N-best output is a byproduct of the same
// pass. Continuations live in a flat arena chained by index, never by
// pointer.

const maxGap = 1

const seqNone = -1

// seqKey identifies a DP state: the token position plus the candidate
// picked for each of the maxGap+1 preceding tokens (seqNone when absent).
type seqKey struct {
	wordIndex int
	tail      [maxGap + 1]int
}

// seqValue is one continuation in the arena.
type seqValue struct {
	freq      float64
	next      int // arena index of the continuation, seqNone at the end
	wordIndex int
	candIndex int
}

// seqRange marks a memo entry's continuations inside the arena.
type seqRange struct {
	first int
	last  int
}

type sequenceCorrector struct {
	corr        *corrector
	resultCount int

	corrections [][]string
	assignment  []int

	memo     map[seqKey]seqRange
	arena    []seqValue
	pairMemo map[[4]int]float64
}

func newSequenceCorrector(corr *corrector, resultCount int) *sequenceCorrector {
	if resultCount < 1 {
		resultCount = 1
	}
	return &sequenceCorrector{corr: corr, resultCount: resultCount}
}

// collectCorrections builds the per-token candidate lists. Index zero always
// holds the original token, so "no change" is representable.
func (s *sequenceCorrector) collectCorrections(words []string) error {
	s.corrections = make([][]string, len(words))
	for i, word := range words {
		cands := []string{word}
		extra, err := s.corr.topCorrections(word, limitCorrections, false, true)
		if err != nil {
			return err
		}
		seen := map[string]bool{word: true}
		for _, cand := range extra {
			if !seen[cand] {
				seen[cand] = true
				cands = append(cands, cand)
			}
		}
		s.corrections[i] = cands
	}
	return nil
}

// wordScore is the unigram score of the current assignment at index.
func (s *sequenceCorrector) wordScore(index int) float64 {
	word := s.corrections[index][s.assignment[index]]
	freq, err := s.corr.table.WordFrequency(word, s.corr.prefix)
	if err != nil {
		return 0
	}
	return normFreq(freq)
}

// pairScore is the bigram score between the assigned candidates at first and
// second, memoized on the four indexes that identify the pair.
func (s *sequenceCorrector) pairScore(first, second int) float64 {
	key := [4]int{first, s.assignment[first], second, s.assignment[second]}
	if score, ok := s.pairMemo[key]; ok {
		return score
	}

	a := s.corrections[first][s.assignment[first]]
	b := s.corrections[second][s.assignment[second]]

	var score float64
	pairFreq, err := s.corr.table.WordPairFrequency(a, b, s.corr.prefix)
	if err == nil {
		freqA, errA := s.corr.table.WordFrequency(a, s.corr.prefix)
		freqB, errB := s.corr.table.WordFrequency(b, s.corr.prefix)
		if errA == nil && errB == nil {
			score = float64(1+pairFreq) * normFreq(freqA+freqB)
		}
	}
	s.pairMemo[key] = score
	return score
}

// pathDistance counts positions where two continuation chains picked
// different candidates.
func (s *sequenceCorrector) pathDistance(a, b seqValue) int {
	distance := 0
	for a.next != seqNone && b.next != seqNone {
		if a.candIndex != b.candIndex {
			distance++
		}
		a = s.arena[a.next]
		b = s.arena[b.next]
	}
	return distance
}

// diversitySelect keeps the best-scoring continuation, then repeatedly adds
// the one most unlike everything already kept. The candidates arrive sorted
// by score descending.
func (s *sequenceCorrector) diversitySelect(sorted []seqValue) seqRange {
	first := len(s.arena)
	s.arena = append(s.arena, sorted[0])

	excluded := make([]bool, len(sorted))
	excluded[0] = true
	distance := make([]int, len(sorted))

	for picked := 1; picked < min(len(sorted), s.resultCount); picked++ {
		last := s.arena[len(s.arena)-1]

		best := seqNone
		for k := range sorted {
			if excluded[k] {
				continue
			}
			distance[k] += s.pathDistance(last, sorted[k])
			if best == seqNone || distance[k] > distance[best] {
				best = k
			}
		}
		if best == seqNone {
			break
		}
		excluded[best] = true
		s.arena = append(s.arena, sorted[best])
	}
	return seqRange{first: first, last: len(s.arena)}
}

// solve fills the memo entry for the state at wordIndex with the current
// assignment tail and returns its key.
func (s *sequenceCorrector) solve(wordIndex int) seqKey {
	key := seqKey{wordIndex: wordIndex}
	for i := range key.tail {
		key.tail[i] = seqNone
	}
	for gap := 0; gap < min(wordIndex, maxGap+1); gap++ {
		key.tail[gap] = s.assignment[wordIndex-gap-1]
	}
	if _, done := s.memo[key]; done {
		return key
	}

	if wordIndex >= len(s.corrections) {
		first := len(s.arena)
		s.arena = append(s.arena, seqValue{next: seqNone})
		s.memo[key] = seqRange{first: first, last: len(s.arena)}
		return key
	}

	var collected []seqValue
	for c := range s.corrections[wordIndex] {
		s.assignment[wordIndex] = c

		score := 0.0
		for gap := 0; gap < min(wordIndex, maxGap+1); gap++ {
			score += s.pairScore(wordIndex-gap-1, wordIndex)
		}
		if len(s.corrections) == 1 {
			score += s.wordScore(wordIndex)
		}

		nextKey := s.solve(wordIndex + 1)
		nextRange := s.memo[nextKey]
		for v := nextRange.first; v < nextRange.last; v++ {
			collected = append(collected, seqValue{
				freq:      s.arena[v].freq + score,
				next:      v,
				wordIndex: wordIndex,
				candIndex: c,
			})
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].freq > collected[j].freq
	})
	s.memo[key] = s.diversitySelect(collected)
	return key
}

// scoredSequence is one ranked correction of a whole token sequence.
type scoredSequence struct {
	words []string
	freq  float64
	exact bool // every position kept the original token
}

// walk materializes the continuation chain starting at the arena value v.
func (s *sequenceCorrector) walk(v seqValue) scoredSequence {
	result := scoredSequence{freq: v.freq, exact: true}
	for v.next != seqNone {
		result.exact = result.exact && v.candIndex == 0
		result.words = append(result.words, s.corrections[v.wordIndex][v.candIndex])
		v = s.arena[v.next]
	}
	return result
}

// run computes the ranked corrections of words.
func (s *sequenceCorrector) run(words []string) ([]scoredSequence, error) {
	if err := s.collectCorrections(words); err != nil {
		return nil, err
	}
	s.assignment = make([]int, len(words))
	s.memo = make(map[seqKey]seqRange)
	s.pairMemo = make(map[[4]int]float64)
	s.arena = s.arena[:0]

	key := s.solve(0)
	r := s.memo[key]

	results := make([]scoredSequence, 0, r.last-r.first)
	for v := r.first; v < r.last; v++ {
		results = append(results, s.walk(s.arena[v]))
	}
	return results, nil
}

// best returns the top correction, or nothing when the best path keeps every
// token unchanged.
func (s *sequenceCorrector) best(words []string) ([]string, float64, error) {
	results, err := s.run(words)
	if err != nil || len(results) == 0 {
		return nil, 0, err
	}
	if results[0].exact {
		return nil, 0, nil
	}
	return results[0].words, results[0].freq, nil
}
