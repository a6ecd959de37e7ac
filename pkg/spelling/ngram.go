package spelling

import (
	"github.com/bastiangx/spellserve/pkg/textutil"
)

// N-gram fragment index. Every word of L code points contributes one
// fragment per trigram position s in [-1, L-2]: key 'N', a position byte
// (s+3, so the head fragment gets 2), the prefix group byte, and the three
// code points with '$' standing in before the start and past the end. Words
// short enough that a single edit can reach both ends (L <= 4) also get a
// "bookends" fragment at position byte 1 holding just the first and last
// characters.
//
// Lookup probes each query fragment at every position byte within
// max_distance of its own, so an insertion or deletion early in the word
// still lines fragments up.

const (
	ngramTag    = 'N'
	ngramSize   = 3
	placeholder = '$'

	// Position bytes hold s+ngramSize in a single byte; longer words are
	// not indexed at all rather than truncated.
	maxIndexableRunes = 250
)

type ngramIndex struct {
	tab *Table

	// fragment key -> toggled words. Two toggles of the same word cancel.
	deltas map[string]map[string]struct{}
}

func newNGramIndex(tab *Table) *ngramIndex {
	return &ngramIndex{tab: tab, deltas: make(map[string]map[string]struct{})}
}

// ngramFragmentKey builds the fragment key for the trigram of word starting at s.
func ngramFragmentKey(word []rune, s int, group uint8) string {
	end := len(word) - ngramSize + 1

	key := make([]byte, 0, 3+ngramSize*4)
	key = append(key, ngramTag, byte(s+ngramSize), group)

	if s >= 0 {
		key = textutil.AppendRune(key, word[s])
	} else {
		key = append(key, placeholder)
	}
	for i := 1; i < ngramSize-1; i++ {
		key = textutil.AppendRune(key, word[s+i])
	}
	if s < end {
		key = textutil.AppendRune(key, word[s+ngramSize-1])
	} else {
		key = append(key, placeholder)
	}
	return string(key)
}

// ngramBookendsKey builds the short-word fragment holding the first and last
// characters, at the reserved position byte 1.
func ngramBookendsKey(word []rune, group uint8) string {
	key := make([]byte, 0, 3+ngramSize*4)
	key = append(key, ngramTag, 1, group)
	for i := 0; i < ngramSize-2; i++ {
		key = append(key, placeholder)
	}
	key = textutil.AppendRune(key, word[0])
	key = textutil.AppendRune(key, word[len(word)-1])
	return string(key)
}

func (x *ngramIndex) toggleFragment(key, word string) {
	words, ok := x.deltas[key]
	if !ok {
		words = make(map[string]struct{})
		x.deltas[key] = words
	}
	if _, exists := words[word]; exists {
		delete(words, word)
	} else {
		words[word] = struct{}{}
	}
}

func (x *ngramIndex) toggleWord(word string, group uint8) error {
	runes := textutil.Runes(word)
	if len(runes) > maxIndexableRunes {
		return nil
	}
	end := len(runes) - ngramSize + 1

	seen := make(map[string]struct{}, len(runes)+2)
	for s := -1; s <= end; s++ {
		key := ngramFragmentKey(runes, s, group)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			x.toggleFragment(key, word)
		}
	}

	if len(runes) <= ngramSize+1 {
		key := ngramBookendsKey(runes, group)
		if _, dup := seen[key]; !dup {
			x.toggleFragment(key, word)
		}
	}
	return nil
}

// probe reads one fragment entry and appends its posting list.
func (x *ngramIndex) probe(key string, result []TermList) ([]TermList, error) {
	data, found, err := x.tab.store.Get([]byte(key))
	if err != nil {
		return result, err
	}
	if found {
		result = append(result, newPCTermList(data))
	}
	return result, nil
}

// probeNGrams probes every trigram of word at every position byte within
// maxDistance of its own position.
func (x *ngramIndex) probeNGrams(word []rune, group uint8, maxDistance int, result []TermList) ([]TermList, error) {
	end := len(word) - ngramSize + 1
	var err error
	for s := -1; s <= end; s++ {
		key := []byte(ngramFragmentKey(word, s, group))
		from := s - maxDistance
		if from < -1 {
			from = -1
		}
		for i := from; i <= s+maxDistance; i++ {
			key[1] = byte(ngramSize + i)
			if result, err = x.probe(string(key), result); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (x *ngramIndex) populateWord(word string, group uint8, maxDistance int) ([]TermList, error) {
	runes := textutil.Runes(word)
	if len(runes) > maxIndexableRunes {
		return nil, nil
	}

	result, err := x.probeNGrams(runes, group, maxDistance, nil)
	if err != nil {
		return nil, err
	}

	if len(runes) <= ngramSize+1 {
		if result, err = x.probe(ngramBookendsKey(runes, group), result); err != nil {
			return nil, err
		}
	}

	// Words at or below the n-gram size have too few trigrams for a
	// transposition to keep any of them intact, so probe the transposed
	// forms explicitly.
	if len(runes) <= ngramSize {
		for i := 0; i < len(runes)-1; i++ {
			runes[i], runes[i+1] = runes[i+1], runes[i]
			if result, err = x.probeNGrams(runes, group, maxDistance, result); err != nil {
				return nil, err
			}
			runes[i], runes[i+1] = runes[i+1], runes[i]
		}
	}
	return result, nil
}

func (x *ngramIndex) mergeFragmentChanges() error {
	for key, toggles := range x.deltas {
		if len(toggles) == 0 {
			continue
		}
		current, _, err := x.tab.store.Get([]byte(key))
		if err != nil {
			return err
		}
		merged, err := mergePC(current, toggles)
		if err != nil {
			return err
		}
		if len(merged) > 0 {
			x.tab.store.Put([]byte(key), merged)
		} else {
			x.tab.store.Delete([]byte(key))
		}
	}
	x.deltas = make(map[string]map[string]struct{})
	return nil
}

func (x *ngramIndex) cancel() {
	x.deltas = make(map[string]map[string]struct{})
}
