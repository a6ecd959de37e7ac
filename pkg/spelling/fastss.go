package spelling

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/bastiangx/spellserve/pkg/store"
	"github.com/bastiangx/spellserve/pkg/textutil"
)

// FastSS k-deletion index. Every word is registered once in a numbered word
// list, then each way of deleting up to fastssK of its first fastssLimit
// characters - encoded as an error mask bitfield - files a packed
// (word index, error mask) entry under the key made of the first
// fastssPrefixLen surviving characters. Lookup enumerates the query's own
// deletion masks and binary-searches the posting lists with a comparison
// that skips masked positions on both sides.

const (
	fastssTag       = 'I'
	fastssK         = 2
	fastssLimit     = 8
	fastssPrefixLen = 3

	// Word indexes are packed into the low 24 bits of a posting entry, the
	// error mask into the high 8.
	fastssIndexBits = 24
)

var (
	fastssWordKeyPrefix    = []byte("WI")
	fastssReverseKeyPrefix = []byte("WR")
	fastssCounterKey       = []byte("WIMAX")
)

type fastssIndex struct {
	tab *Table

	// posting key -> toggled packed entries.
	deltas map[string]map[uint32]struct{}

	// Words touched this batch: resolved indexes and newly allocated ones.
	indexes  map[string]uint32
	newWords map[uint32]string

	nextIndex   uint32
	indexLoaded bool

	// Word list lookups made while sorting and searching.
	runeCache map[uint32][]rune
}

func newFastSSIndex(tab *Table) *fastssIndex {
	return &fastssIndex{
		tab:       tab,
		deltas:    make(map[string]map[uint32]struct{}),
		indexes:   make(map[string]uint32),
		newWords:  make(map[uint32]string),
		runeCache: make(map[uint32][]rune),
	}
}

func packTerm(index uint32, mask uint8) uint32 {
	return index&((1<<fastssIndexBits)-1) | uint32(mask)<<fastssIndexBits
}

func unpackTerm(packed uint32) (index uint32, mask uint8) {
	return packed & ((1 << fastssIndexBits) - 1), uint8(packed >> fastssIndexBits)
}

// compareMasked orders two words under their error masks: masked positions
// are skipped on both sides and only characters at positions below limit
// compare.
func compareMasked(a, b []rune, maskA, maskB uint8, limit int) int {
	ai, bi := 0, 0
	aEnd := min(len(a), limit)
	bEnd := min(len(b), limit)

	for {
		for maskA&1 != 0 && ai < aEnd {
			maskA >>= 1
			ai++
		}
		for maskB&1 != 0 && bi < bEnd {
			maskB >>= 1
			bi++
		}

		switch {
		case ai == aEnd && bi == bEnd:
			return 0
		case ai == aEnd:
			return -1
		case bi == bEnd:
			return 1
		case a[ai] < b[bi]:
			return -1
		case a[ai] > b[bi]:
			return 1
		}
		ai++
		bi++
		maskA >>= 1
		maskB >>= 1
	}
}

// fastssPostingKey is the surviving-character prefix of word under mask, scoped by
// prefix group.
func fastssPostingKey(word []rune, mask uint8, group uint8) string {
	key := make([]byte, 0, 2+fastssPrefixLen*4)
	key = append(key, fastssTag, group)
	count := 0
	for i := 0; i < len(word) && count < fastssPrefixLen; i, mask = i+1, mask>>1 {
		if mask&1 == 0 {
			key = textutil.AppendRune(key, word[i])
			count++
		}
	}
	return string(key)
}

// wordIndexOf resolves word to its list index, allocating a fresh one for
// unseen words.
func (x *fastssIndex) wordIndexOf(word string) (uint32, error) {
	if idx, ok := x.indexes[word]; ok {
		return idx, nil
	}

	key := append(append([]byte(nil), fastssReverseKeyPrefix...), word...)
	data, found, err := x.tab.store.Get(key)
	if err != nil {
		return 0, err
	}
	if found {
		v, _, err := store.UnpackUint(data)
		if err != nil {
			return 0, fmt.Errorf("bad word index entry: %w", err)
		}
		idx := uint32(v)
		x.indexes[word] = idx
		return idx, nil
	}

	if !x.indexLoaded {
		data, found, err := x.tab.store.Get(fastssCounterKey)
		if err != nil {
			return 0, err
		}
		if found {
			v, _, err := store.UnpackUint(data)
			if err != nil {
				return 0, fmt.Errorf("bad word index counter: %w", err)
			}
			x.nextIndex = uint32(v)
		}
		x.indexLoaded = true
	}

	idx := x.nextIndex
	x.nextIndex++
	x.indexes[word] = idx
	x.newWords[idx] = word
	return idx, nil
}

// resolveRunes returns the code points of the word with the given list
// index.
func (x *fastssIndex) resolveRunes(index uint32) ([]rune, error) {
	if word, ok := x.newWords[index]; ok {
		return textutil.Runes(word), nil
	}
	if runes, ok := x.runeCache[index]; ok {
		return runes, nil
	}

	key := store.PackUintPreservingSort(append([]byte(nil), fastssWordKeyPrefix...), uint64(index))
	data, found, err := x.tab.store.Get(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("dangling word index %d: %w", index, store.ErrCorrupt)
	}
	runes := textutil.Runes(string(data))
	x.runeCache[index] = runes
	return runes, nil
}

func (x *fastssIndex) toggleEntry(key string, packed uint32) {
	entries, ok := x.deltas[key]
	if !ok {
		entries = make(map[uint32]struct{})
		x.deltas[key] = entries
	}
	if _, exists := entries[packed]; exists {
		delete(entries, packed)
	} else {
		entries[packed] = struct{}{}
	}
}

// forEachMask enumerates every error mask with up to k deleted positions in
// word's first limit characters, the empty mask included.
func forEachMask(word []rune, start, k int, mask uint8, fn func(mask uint8)) {
	fn(mask)
	if k == 0 {
		return
	}
	end := min(len(word), fastssLimit)
	for i := start; i < end; i++ {
		forEachMask(word, i+1, k-1, mask|1<<i, fn)
	}
}

func (x *fastssIndex) toggleWord(word string, group uint8) error {
	runes := textutil.Runes(word)
	index, err := x.wordIndexOf(word)
	if err != nil {
		return err
	}

	forEachMask(runes, 0, fastssK, 0, func(mask uint8) {
		x.toggleEntry(fastssPostingKey(runes, mask, group), packTerm(index, mask))
	})
	return nil
}

// searchBound binary-searches a posting list for the lower (or upper) bound
// of entries that compare equal to the query under its mask.
func (x *fastssIndex) searchBound(data []byte, query []rune, mask uint8, start int, lower bool) (int, error) {
	count := len(data)/4 - start
	for count > 0 {
		step := count / 2
		current := start + step

		packed := binary.LittleEndian.Uint32(data[current*4:])
		index, curMask := unpackTerm(packed)
		curRunes, err := x.resolveRunes(index)
		if err != nil {
			return 0, err
		}

		cmp := compareMasked(query, curRunes, mask, curMask, max(len(query), len(curRunes)))
		if cmp > 0 || (!lower && cmp == 0) {
			start = current + 1
			count -= step + 1
		} else {
			count = step
		}
	}
	return start, nil
}

func (x *fastssIndex) populateWord(word string, group uint8, maxDistance int) ([]TermList, error) {
	runes := textutil.Runes(word)
	k := min(maxDistance, fastssK)

	var result []TermList
	var masks []uint8
	forEachMask(runes, 0, k, 0, func(mask uint8) { masks = append(masks, mask) })

	for _, mask := range masks {
		data, found, err := x.tab.store.Get([]byte(fastssPostingKey(runes, mask, group)))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if len(data)%4 != 0 {
			return nil, fmt.Errorf("bad posting list size: %w", store.ErrCorrupt)
		}

		lower, err := x.searchBound(data, runes, mask, 0, true)
		if err != nil {
			return nil, err
		}
		upper, err := x.searchBound(data, runes, mask, lower, false)
		if err != nil {
			return nil, err
		}
		if upper == lower {
			continue
		}

		words := make([]string, 0, upper-lower)
		for i := lower; i < upper; i++ {
			index, _ := unpackTerm(binary.LittleEndian.Uint32(data[i*4:]))
			curRunes, err := x.resolveRunes(index)
			if err != nil {
				return nil, err
			}
			words = append(words, string(curRunes))
		}
		result = append(result, newSliceTermList(words))
	}
	return result, nil
}

func (x *fastssIndex) mergeFragmentChanges() error {
	// New words first, so posting-list sorting can resolve them from the
	// store buffer as well as from memory.
	for index, word := range x.newWords {
		key := store.PackUintPreservingSort(append([]byte(nil), fastssWordKeyPrefix...), uint64(index))
		x.tab.store.Put(key, []byte(word))

		rkey := append(append([]byte(nil), fastssReverseKeyPrefix...), word...)
		x.tab.store.Put(rkey, store.PackUint(nil, uint64(index)))
	}
	if len(x.newWords) > 0 {
		x.tab.store.Put(fastssCounterKey, store.PackUint(nil, uint64(x.nextIndex)))
	}

	for key, toggles := range x.deltas {
		if len(toggles) == 0 {
			continue
		}
		current, _, err := x.tab.store.Get([]byte(key))
		if err != nil {
			return err
		}
		if len(current)%4 != 0 {
			return fmt.Errorf("bad posting list size: %w", store.ErrCorrupt)
		}

		entries := make([]uint32, 0, len(current)/4+len(toggles))
		for i := 0; i+4 <= len(current); i += 4 {
			packed := binary.LittleEndian.Uint32(current[i:])
			if _, toggled := toggles[packed]; toggled {
				delete(toggles, packed)
				continue
			}
			entries = append(entries, packed)
		}
		for packed := range toggles {
			entries = append(entries, packed)
		}

		var sortErr error
		sort.Slice(entries, func(i, j int) bool {
			ai, am := unpackTerm(entries[i])
			bi, bm := unpackTerm(entries[j])
			ar, err := x.resolveRunes(ai)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			br, err := x.resolveRunes(bi)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			if c := compareMasked(ar, br, am, bm, max(len(ar), len(br))); c != 0 {
				return c < 0
			}
			// Entries that compare equal keep a fixed order, so the same
			// posting set always encodes to the same bytes.
			return entries[i] < entries[j]
		})
		if sortErr != nil {
			return sortErr
		}

		if len(entries) == 0 {
			x.tab.store.Delete([]byte(key))
			continue
		}
		value := make([]byte, len(entries)*4)
		for i, packed := range entries {
			binary.LittleEndian.PutUint32(value[i*4:], packed)
		}
		x.tab.store.Put([]byte(key), value)
	}

	x.deltas = make(map[string]map[uint32]struct{})
	x.indexes = make(map[string]uint32)
	x.newWords = make(map[uint32]string)
	x.nextIndex = 0
	x.indexLoaded = false
	return nil
}

func (x *fastssIndex) cancel() {
	x.deltas = make(map[string]map[uint32]struct{})
	x.indexes = make(map[string]uint32)
	x.newWords = make(map[uint32]string)
	x.runeCache = make(map[uint32][]rune)
	x.nextIndex = 0
	x.indexLoaded = false
}
