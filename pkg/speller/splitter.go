package speller

import (
	"sort"

	"github.com/bastiangx/spellserve/pkg/textutil"
)

// The splitter re-segments a token sequence at the character level: one
// token may split into up to maxSplitCount+1 pieces and up to maxMergeCount
// neighbouring tokens may merge, whenever the resulting segments exist in
// the vocabulary (directly, or through the corrector for segments that are
// not original token boundaries). A memoized DP over (position, previous
// segment) then picks the segmentation with the best bigram score, keeping a
// diversity-ranked list per state just like the sequence corrector.

const (
	maxSplitCount = 1
	maxMergeCount = 1

	// Corrections tried for a segment with no direct vocabulary hit.
	topSplitterCorrections = 3
)

const splitNone = -1

// segment is one admissible piece starting at some character position.
type segment struct {
	end  int // character position one past the segment
	word string
}

// splitKey identifies a DP state: current start plus the previous segment
// (by its start position and index), needed for bigram scoring.
type splitKey struct {
	start  int
	pStart int
	pIndex int
}

type splitValue struct {
	freq  float64
	next  int // arena index, splitNone terminates
	start int
	index int
}

type splitRange struct {
	first int
	last  int
}

// splitterData is the flattened view of the query: all tokens concatenated,
// with maps from character positions back to byte offsets and token starts.
type splitterData struct {
	wordCount int
	totalLen  int
	starts    []int
	lengths   []int
	byteAt    []int
	allWord   string
}

type splitter struct {
	corr        *corrector
	resultCount int

	data     splitterData
	segments [][]segment
	memo     map[splitKey]splitRange
	arena    []splitValue
}

func newSplitter(corr *corrector, resultCount int) *splitter {
	if resultCount < 1 {
		resultCount = 1
	}
	return &splitter{corr: corr, resultCount: resultCount}
}

// flatten concatenates the query tokens and records the position maps.
func (s *splitter) flatten(words []string) {
	s.data = splitterData{wordCount: len(words)}
	byteStart := 0
	charStart := 0
	for _, word := range words {
		length := 0
		for byteIndex := range word {
			s.data.byteAt = append(s.data.byteAt, byteStart+byteIndex)
			length++
		}
		s.data.starts = append(s.data.starts, charStart)
		s.data.lengths = append(s.data.lengths, length)
		s.data.totalLen += length
		s.data.allWord += word
		byteStart += len(word)
		charStart += length
	}
	s.data.byteAt = append(s.data.byteAt, byteStart)
}

// substring cuts [start, end) in character positions out of the
// concatenated query.
func (s *splitter) substring(start, end int) string {
	return s.data.allWord[s.data.byteAt[start]:s.data.byteAt[end]]
}

func (s *splitter) wordExists(start, end int) (string, bool) {
	word := s.substring(start, end)
	freq, err := s.corr.table.WordFrequency(word, s.corr.prefix)
	return word, err == nil && freq > 0
}

// findSegments runs the two enumeration passes: first every in-vocabulary
// re-segmentation reachable within the split and merge budgets, then
// corrector candidates for the stretches that stayed uncovered.
func (s *splitter) findSegments() error {
	total := s.data.totalLen
	s.segments = make([][]segment, total+1)

	begins := make([]bool, total+1)
	splits := make([]int, total+1)
	endAt := make([]int, total)

	for i := range splits {
		splits[i] = 1
	}
	for i := 0; i < s.data.wordCount; i++ {
		offset := s.data.starts[i]
		begins[offset] = true
		splits[offset] = 0
		for p := 0; p < s.data.lengths[i]; p++ {
			endAt[offset+p] = offset + s.data.lengths[i]
		}
	}

	for index := 0; index < s.data.wordCount; index++ {
		length := s.data.lengths[index]
		mergeLength := length
		for i := 1; i <= min(maxMergeCount, s.data.wordCount-index-1); i++ {
			mergeLength += s.data.lengths[index+i]
		}
		offset := s.data.starts[index]

		for start := 0; start < length; start++ {
			realStart := offset + start
			if !begins[realStart] {
				continue
			}
			split := splits[realStart]

			beginEnd := start + 1
			if split >= maxSplitCount {
				// Split budget exhausted: only whole-token or merged ends.
				beginEnd = max(length-1, beginEnd)
			}

			for end := beginEnd; end < mergeLength; end++ {
				realEnd := offset + end + 1
				word, ok := s.wordExists(realStart, realEnd)
				if !ok {
					continue
				}
				nextSplit := 1
				if end < length {
					nextSplit = 1 + split
				}
				if !begins[realEnd] {
					begins[realEnd] = true
					splits[realEnd] = nextSplit
				} else {
					splits[realEnd] = min(nextSplit, splits[realEnd])
				}
				s.segments[realStart] = append(s.segments[realStart], segment{end: realEnd, word: word})
			}
		}
	}

	// Uncovered stretches fall back to the corrector, and always keep the
	// verbatim text as a candidate so the DP can pass through.
	skipEnd := 0
	for i := 0; i < total; i++ {
		if !begins[i] {
			continue
		}
		if i == 0 || skipEnd < i {
			skipEnd = i
			for skipEnd < total && len(s.segments[skipEnd]) == 0 {
				skipEnd++
			}
		}
		end := min(skipEnd, endAt[i])
		if end == i {
			continue
		}

		word := s.substring(i, end)
		var candidates []string
		if s.corr.maxDistance > 0 {
			var err error
			candidates, err = s.corr.topByDistance(word, topSplitterCorrections, false, true)
			if err != nil {
				return err
			}
		}
		candidates = append(candidates, word)
		for _, cand := range candidates {
			s.segments[i] = append(s.segments[i], segment{end: end, word: cand})
		}
	}
	return nil
}

// pairScore scores the transition onto segment (start, index) from the
// previous segment, or its unigram score when there is none.
func (s *splitter) pairScore(start, index, pStart, pIndex int) float64 {
	word := s.segments[start][index].word

	if pStart == splitNone {
		freq, err := s.corr.table.WordFrequency(word, s.corr.prefix)
		if err != nil {
			return 0
		}
		return normFreq(freq)
	}

	prev := s.segments[pStart][pIndex].word
	pairFreq, err := s.corr.table.WordPairFrequency(prev, word, s.corr.prefix)
	if err != nil {
		return 0
	}
	freqA, errA := s.corr.table.WordFrequency(prev, s.corr.prefix)
	freqB, errB := s.corr.table.WordFrequency(word, s.corr.prefix)
	if errA != nil || errB != nil {
		return 0
	}
	return float64(1+pairFreq) * normFreq(freqA+freqB)
}

// pathDistance is the fraction of (start, index) steps in a not shared with
// b, weighting diversity by how much of the path differs.
func (s *splitter) pathDistance(a, b splitValue) float64 {
	type step struct{ start, index int }
	taken := make(map[step]bool)
	total := 0
	for a.next != splitNone {
		taken[step{a.start, a.index}] = true
		a = s.arena[a.next]
		total++
	}
	if total == 0 {
		return 0
	}
	match := 0
	for b.next != splitNone {
		if taken[step{b.start, b.index}] {
			match++
		}
		b = s.arena[b.next]
	}
	return float64(total-match) / float64(total)
}

func (s *splitter) diversitySelect(sorted []splitValue) splitRange {
	first := len(s.arena)
	s.arena = append(s.arena, sorted[0])

	excluded := make([]bool, len(sorted))
	excluded[0] = true
	distance := make([]float64, len(sorted))

	for picked := 1; picked < min(len(sorted), s.resultCount); picked++ {
		last := s.arena[len(s.arena)-1]

		best := splitNone
		for k := range sorted {
			if excluded[k] {
				continue
			}
			distance[k] += sorted[k].freq * s.pathDistance(last, sorted[k])
			if best == splitNone || distance[k] > distance[best] {
				best = k
			}
		}
		if best == splitNone {
			break
		}
		excluded[best] = true
		s.arena = append(s.arena, sorted[best])
	}
	return splitRange{first: first, last: len(s.arena)}
}

// solve fills the memo entry for the state and returns its key.
func (s *splitter) solve(start, pStart, pIndex int) splitKey {
	// Skip positions nothing starts at; the previous segment is then too
	// far back for bigram scoring.
	skipped := false
	for start < s.data.totalLen && len(s.segments[start]) == 0 {
		start++
		skipped = true
	}
	if skipped {
		pStart, pIndex = splitNone, splitNone
	}

	key := splitKey{start: start, pStart: pStart, pIndex: pIndex}
	if _, done := s.memo[key]; done {
		return key
	}

	if start >= s.data.totalLen {
		first := len(s.arena)
		s.arena = append(s.arena, splitValue{next: splitNone})
		s.memo[key] = splitRange{first: first, last: len(s.arena)}
		return key
	}

	var collected []splitValue
	for i := range s.segments[start] {
		end := s.segments[start][i].end

		nextKey := s.solve(end, start, i)
		nextRange := s.memo[nextKey]

		pairFreq := s.pairScore(start, i, pStart, pIndex)
		if pStart == splitNone && end < s.data.totalLen {
			// A leading unigram only counts when it is also the whole
			// query; otherwise the bigram chain carries the score.
			pairFreq = 0
		}

		for v := nextRange.first; v < nextRange.last; v++ {
			collected = append(collected, splitValue{
				freq:  s.arena[v].freq + pairFreq,
				next:  v,
				start: start,
				index: i,
			})
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].freq > collected[j].freq
	})
	s.memo[key] = s.diversitySelect(collected)
	return key
}

// walk materializes a segmentation from the arena chain.
func (s *splitter) walk(v splitValue) scoredSequence {
	result := scoredSequence{freq: v.freq}
	for v.next != splitNone {
		result.words = append(result.words, s.segments[v.start][v.index].word)
		v = s.arena[v.next]
	}
	return result
}

// run computes the ranked re-segmentations of words.
func (s *splitter) run(words []string) ([]scoredSequence, error) {
	s.flatten(words)
	if s.data.totalLen == 0 {
		return nil, nil
	}
	if err := s.findSegments(); err != nil {
		return nil, err
	}
	s.memo = make(map[splitKey]splitRange)
	s.arena = s.arena[:0]

	key := s.solve(0, splitNone, splitNone)
	r := s.memo[key]

	results := make([]scoredSequence, 0, r.last-r.first)
	for v := r.first; v < r.last; v++ {
		seq := s.walk(s.arena[v])
		seq.exact = equalWords(seq.words, words)
		results = append(results, seq)
	}
	return results, nil
}

// best returns the top re-segmentation, or nothing when it reproduces the
// query.
func (s *splitter) best(words []string) ([]string, float64, error) {
	results, err := s.run(words)
	if err != nil || len(results) == 0 {
		return nil, 0, err
	}
	if results[0].exact {
		return nil, 0, nil
	}
	return results[0].words, results[0].freq, nil
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// normalizeTokens lower-cases and NFC-normalizes query tokens once at the
// facade boundary.
func normalizeTokens(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = textutil.Normalize(w)
	}
	return out
}
