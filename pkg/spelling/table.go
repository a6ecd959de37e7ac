package spelling

import (
	"fmt"
	"hash/fnv"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/spellserve/pkg/store"
	"github.com/bastiangx/spellserve/pkg/textutil"
)

// Key tags inside the backing store.
const (
	wordTag     = 'W' // 'W' group word          -> varint(freq) ++ payload
	wordPairTag = 'M' // 'M' group h(a) h(b)     -> varint(freq)
	prefixTag   = 'S' // 'S' prefix              -> varint(group)
)

var (
	groupMaxKey   = []byte("GROUPMAX")
	groupStackKey = []byte("GROUPSTACK")
)

// PrefixDisabled is the reserved group id meaning "no spelling data".
const PrefixDisabled = 0xFF

// IndexVariant selects the fragment index layout of a table.
type IndexVariant int

const (
	// IndexNGram is the positional trigram index.
	IndexNGram IndexVariant = iota
	// IndexFastSS is the k-deletion neighbourhood index.
	IndexFastSS
)

// fragmentIndex is the capability set a fragment index variant provides.
type fragmentIndex interface {
	toggleWord(word string, group uint8) error
	populateWord(word string, group uint8, maxDistance int) ([]TermList, error)
	mergeFragmentChanges() error
	cancel()
}

// Table stores word and word-pair frequencies plus the fragment index, all
// keyed by prefix group. Mutations buffer in memory and apply atomically on
// Flush; a single writer owns the table, readers share committed revisions.
type Table struct {
	store store.Store
	index fragmentIndex

	wordFreqChanges map[string]uint64 // prefixed word -> freq, 0 = tombstone
	pairFreqChanges map[string]uint64 // packed pair key -> freq
	prefixChanges   map[string]uint8  // prefix -> group, PrefixDisabled = drop
	wordValues      map[string][]byte // prefixed word -> opaque payload

	groupStack []uint8 // free-list of released group ids, reused LIFO
	groupMax   uint8   // next unallocated id; 0 while unloaded
}

// NewTable opens a spelling table over st with the given fragment index
// variant. The variant must match the one the data was written with.
func NewTable(st store.Store, variant IndexVariant) *Table {
	t := &Table{
		store:           st,
		wordFreqChanges: make(map[string]uint64),
		pairFreqChanges: make(map[string]uint64),
		prefixChanges:   make(map[string]uint8),
		wordValues:      make(map[string][]byte),
	}
	switch variant {
	case IndexFastSS:
		t.index = newFastSSIndex(t)
	default:
		t.index = newNGramIndex(t)
	}
	return t
}

// spellingGroup resolves a prefix to its group id, honouring buffered prefix
// changes. The empty prefix is always group 0; an unknown prefix is
// disabled.
func (t *Table) spellingGroup(prefix string) (uint8, error) {
	if prefix == "" {
		return 0, nil
	}
	if group, ok := t.prefixChanges[prefix]; ok {
		return group, nil
	}

	key := append([]byte{prefixTag}, prefix...)
	data, found, err := t.store.Get(key)
	if err != nil {
		return PrefixDisabled, err
	}
	if !found {
		return PrefixDisabled, nil
	}
	group, _, err := store.UnpackUint(data)
	if err != nil || group >= PrefixDisabled {
		return PrefixDisabled, fmt.Errorf("bad spelling prefix group: %w", store.ErrCorrupt)
	}
	return uint8(group), nil
}

func prefixedWord(group uint8, word string) string {
	return string([]byte{group}) + word
}

// entryFreq reads the committed frequency stored under tag+key.
func (t *Table) entryFreq(tag byte, key string) (uint64, error) {
	data, found, err := t.store.Get(append([]byte{tag}, key...))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	freq, _, err := store.UnpackUint(data)
	if err != nil || freq == 0 {
		return 0, fmt.Errorf("bad spelling word freq: %w", store.ErrCorrupt)
	}
	return freq, nil
}

func wordHash(word string) uint64 {
	h := fnv.New32a()
	h.Write([]byte(word))
	return uint64(h.Sum32())
}

// packPair builds the order-insensitive bigram key body: group byte followed
// by the two word hashes, smaller first. Collisions are tolerable because
// bigrams only re-rank candidates the unigram index already found.
func packPair(group uint8, first, second string) string {
	h1, h2 := wordHash(first), wordHash(second)
	if h1 > h2 {
		h1, h2 = h2, h1
	}
	key := append([]byte(nil), group)
	key = store.PackUint(key, h1)
	key = store.PackUint(key, h2)
	return string(key)
}

// AddWord records freqInc observations of word under prefix. Words shorter
// than two code points and disabled prefixes are ignored.
func (t *Table) AddWord(word string, freqInc uint64, prefix string) error {
	word = textutil.Normalize(word)
	if utf8.RuneCountInString(word) <= 1 {
		return nil
	}
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return err
	}
	if group == PrefixDisabled {
		return nil
	}

	key := prefixedWord(group, word)
	if buffered, ok := t.wordFreqChanges[key]; ok {
		if buffered != 0 {
			t.wordFreqChanges[key] = buffered + freqInc
			return nil
		}
		// Buffered as deleted: re-adding needs its fragments back.
		t.wordFreqChanges[key] = freqInc
		return t.index.toggleWord(word, group)
	}

	freq, err := t.entryFreq(wordTag, key)
	if err != nil {
		return err
	}
	if freq != 0 {
		t.wordFreqChanges[key] = freq + freqInc
		return nil
	}
	t.wordFreqChanges[key] = freqInc
	return t.index.toggleWord(word, group)
}

// RemoveWord subtracts freqDec observations of word, clamping at zero. A
// word reaching zero loses its fragment entries.
func (t *Table) RemoveWord(word string, freqDec uint64, prefix string) error {
	word = textutil.Normalize(word)
	if utf8.RuneCountInString(word) <= 1 {
		return nil
	}
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return err
	}
	if group == PrefixDisabled {
		return nil
	}

	key := prefixedWord(group, word)
	if buffered, ok := t.wordFreqChanges[key]; ok {
		if buffered == 0 {
			return nil
		}
		if freqDec < buffered {
			t.wordFreqChanges[key] = buffered - freqDec
			return nil
		}
		t.wordFreqChanges[key] = 0
		return t.index.toggleWord(word, group)
	}

	freq, err := t.entryFreq(wordTag, key)
	if err != nil {
		return err
	}
	if freq == 0 {
		return nil
	}
	if freqDec < freq {
		t.wordFreqChanges[key] = freq - freqDec
		return nil
	}
	t.wordFreqChanges[key] = 0
	return t.index.toggleWord(word, group)
}

// AddWordPair records freqInc observations of the pair (first, second).
// With one side empty it degenerates to AddWord.
func (t *Table) AddWordPair(first, second string, freqInc uint64, prefix string) error {
	first, second = textutil.Normalize(first), textutil.Normalize(second)
	if second == "" {
		return t.AddWord(first, freqInc, prefix)
	}
	if first == "" {
		return t.AddWord(second, freqInc, prefix)
	}
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return err
	}
	if group == PrefixDisabled {
		return nil
	}

	key := packPair(group, first, second)
	if buffered, ok := t.pairFreqChanges[key]; ok {
		t.pairFreqChanges[key] = buffered + freqInc
		return nil
	}
	freq, err := t.entryFreq(wordPairTag, key)
	if err != nil {
		return err
	}
	t.pairFreqChanges[key] = freq + freqInc
	return nil
}

// RemoveWordPair subtracts freqDec observations of the pair, clamping at
// zero.
func (t *Table) RemoveWordPair(first, second string, freqDec uint64, prefix string) error {
	first, second = textutil.Normalize(first), textutil.Normalize(second)
	if second == "" {
		return t.RemoveWord(first, freqDec, prefix)
	}
	if first == "" {
		return t.RemoveWord(second, freqDec, prefix)
	}
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return err
	}
	if group == PrefixDisabled {
		return nil
	}

	key := packPair(group, first, second)
	if buffered, ok := t.pairFreqChanges[key]; ok {
		t.pairFreqChanges[key] = buffered - min(freqDec, buffered)
		return nil
	}
	freq, err := t.entryFreq(wordPairTag, key)
	if err != nil {
		return err
	}
	t.pairFreqChanges[key] = freq - min(freqDec, freq)
	return nil
}

// WordFrequency returns the observed frequency of word under prefix,
// honouring buffered changes. Disabled prefixes report zero.
func (t *Table) WordFrequency(word, prefix string) (uint64, error) {
	word = textutil.Normalize(word)
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return 0, err
	}
	if group == PrefixDisabled {
		return 0, nil
	}

	key := prefixedWord(group, word)
	if buffered, ok := t.wordFreqChanges[key]; ok {
		return buffered, nil
	}
	return t.entryFreq(wordTag, key)
}

// WordPairFrequency returns the observed frequency of the pair, in either
// order.
func (t *Table) WordPairFrequency(first, second, prefix string) (uint64, error) {
	first, second = textutil.Normalize(first), textutil.Normalize(second)
	if second == "" {
		return t.WordFrequency(first, prefix)
	}
	if first == "" {
		return t.WordFrequency(second, prefix)
	}
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return 0, err
	}
	if group == PrefixDisabled {
		return 0, nil
	}

	key := packPair(group, first, second)
	if buffered, ok := t.pairFreqChanges[key]; ok {
		return buffered, nil
	}
	return t.entryFreq(wordPairTag, key)
}

// SetWordValue attaches an opaque payload to word, stored after its
// frequency at the next flush.
func (t *Table) SetWordValue(word, prefix string, value []byte) error {
	word = textutil.Normalize(word)
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return err
	}
	if group == PrefixDisabled {
		return nil
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	t.wordValues[prefixedWord(group, word)] = buf
	return nil
}

// WordValue returns the opaque payload attached to word, nil when none.
func (t *Table) WordValue(word, prefix string) ([]byte, error) {
	word = textutil.Normalize(word)
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return nil, err
	}
	if group == PrefixDisabled {
		return nil, nil
	}

	key := prefixedWord(group, word)
	if value, ok := t.wordValues[key]; ok {
		return value, nil
	}
	data, found, err := t.store.Get(append([]byte{wordTag}, key...))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	freq, n, err := store.UnpackUint(data)
	if err != nil || freq == 0 {
		return nil, fmt.Errorf("bad spelling word freq: %w", store.ErrCorrupt)
	}
	if n == len(data) {
		return nil, nil
	}
	return data[n:], nil
}

// loadGroupData reads the free-list and the next-free id from the store.
func (t *Table) loadGroupData() error {
	if t.groupMax != 0 {
		return nil
	}

	t.groupStack = t.groupStack[:0]
	data, found, err := t.store.Get(groupStackKey)
	if err != nil {
		return err
	}
	if found {
		for len(data) > 0 {
			id, n, err := store.UnpackUint(data)
			if err != nil {
				return fmt.Errorf("bad spelling group stack: %w", err)
			}
			t.groupStack = append(t.groupStack, uint8(id))
			data = data[n:]
		}
	}

	t.groupMax = 1
	data, found, err = t.store.Get(groupMaxKey)
	if err != nil {
		return err
	}
	if found {
		id, _, err := store.UnpackUint(data)
		if err != nil || id == 0 {
			return fmt.Errorf("bad spelling group max: %w", store.ErrCorrupt)
		}
		t.groupMax = uint8(id)
	}
	return nil
}

// EnableSpelling turns spelling on for prefix. When groupPrefix already has
// a group the two share it; otherwise a group id is taken from the free list
// or freshly allocated.
func (t *Table) EnableSpelling(prefix, groupPrefix string) error {
	if prefix == "" {
		return fmt.Errorf("empty prefix: %w", store.ErrInvalidArgument)
	}

	// An empty group prefix never shares: group 0 is reserved for the
	// default vocabulary, so a fresh id gets allocated below.
	group := uint8(PrefixDisabled)
	if groupPrefix != "" {
		var err error
		group, err = t.spellingGroup(groupPrefix)
		if err != nil {
			return err
		}
	}
	current, err := t.spellingGroup(prefix)
	if err != nil {
		return err
	}
	if group == current && group != PrefixDisabled {
		return nil
	}

	if group == PrefixDisabled {
		if err := t.loadGroupData(); err != nil {
			return err
		}
		if len(t.groupStack) == 0 {
			if t.groupMax == PrefixDisabled {
				return fmt.Errorf("spelling prefix group ids exhausted: %w", store.ErrRange)
			}
			group = t.groupMax
			t.groupMax++
		} else {
			group = t.groupStack[len(t.groupStack)-1]
			t.groupStack = t.groupStack[:len(t.groupStack)-1]
		}
	}
	t.prefixChanges[prefix] = group
	log.Debugf("spelling enabled for prefix %q (group %d)", prefix, group)
	return nil
}

// DisableSpelling turns spelling off for prefix and returns its group id to
// the free list.
func (t *Table) DisableSpelling(prefix string) error {
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return err
	}
	if group == PrefixDisabled {
		return nil
	}

	t.prefixChanges[prefix] = PrefixDisabled
	if err := t.loadGroupData(); err != nil {
		return err
	}
	if group == t.groupMax-1 {
		t.groupMax--
	} else {
		t.groupStack = append(t.groupStack, group)
	}
	log.Debugf("spelling disabled for prefix %q (group %d released)", prefix, group)
	return nil
}

// IsSpellingEnabled reports whether prefix has spelling data.
func (t *Table) IsSpellingEnabled(prefix string) (bool, error) {
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return false, err
	}
	return group != PrefixDisabled, nil
}

// mergeWordChanges pushes buffered unigram frequencies and fragment deltas
// into the store buffer. Prefix metadata stays buffered: it only commits at
// Flush.
func (t *Table) mergeWordChanges() error {
	if err := t.index.mergeFragmentChanges(); err != nil {
		return err
	}

	for key, freq := range t.wordFreqChanges {
		storeKey := append([]byte{wordTag}, key...)
		if freq == 0 {
			t.store.Delete(storeKey)
			continue
		}
		value := store.PackUint(nil, freq)
		if payload, ok := t.wordValues[key]; ok {
			value = append(value, payload...)
			delete(t.wordValues, key)
		}
		t.store.Put(storeKey, value)
	}
	t.wordFreqChanges = make(map[string]uint64)
	return nil
}

// OpenTermList returns candidate words within roughly maxDistance edits of
// word. Pending unigram changes are merged into the store buffer first (but
// not committed), so just-added words are found. The caller must filter by
// real edit distance; the index over-generates.
func (t *Table) OpenTermList(word string, maxDistance int, prefix string) (TermList, error) {
	word = textutil.Normalize(word)
	if utf8.RuneCountInString(word) <= 1 {
		return nil, fmt.Errorf("term too short: %w", store.ErrInvalidArgument)
	}
	group, err := t.spellingGroup(prefix)
	if err != nil {
		return nil, err
	}
	if group == PrefixDisabled {
		return EmptyTermList, nil
	}

	if len(t.wordFreqChanges) > 0 {
		if err := t.mergeWordChanges(); err != nil {
			return nil, err
		}
	}

	lists, err := t.index.populateWord(word, group, maxDistance)
	if err != nil {
		return nil, err
	}
	return buildOrTree(lists), nil
}

// Modified reports whether the table or its store holds uncommitted writes.
func (t *Table) Modified() bool {
	return len(t.wordFreqChanges) > 0 || len(t.pairFreqChanges) > 0 ||
		len(t.prefixChanges) > 0 || t.store.Modified()
}

// Flush applies every buffered change - unigram deltas, bigram deltas,
// prefix changes, group metadata, in that order - and commits them as one
// revision.
func (t *Table) Flush() error {
	if err := t.mergeWordChanges(); err != nil {
		return err
	}

	for key, freq := range t.pairFreqChanges {
		storeKey := append([]byte{wordPairTag}, key...)
		if freq == 0 {
			t.store.Delete(storeKey)
		} else {
			t.store.Put(storeKey, store.PackUint(nil, freq))
		}
	}
	t.pairFreqChanges = make(map[string]uint64)

	for prefix, group := range t.prefixChanges {
		key := append([]byte{prefixTag}, prefix...)
		if group != PrefixDisabled {
			t.store.Put(key, store.PackUint(nil, uint64(group)))
		} else {
			t.store.Delete(key)
		}
	}
	t.prefixChanges = make(map[string]uint8)

	if t.groupMax != 0 {
		t.store.Put(groupMaxKey, store.PackUint(nil, uint64(t.groupMax)))
		var stack []byte
		for _, id := range t.groupStack {
			stack = store.PackUint(stack, uint64(id))
		}
		t.store.Put(groupStackKey, stack)
		t.groupStack = nil
		t.groupMax = 0
	}

	if err := t.store.Flush(); err != nil {
		return err
	}
	log.Debugf("spelling table flushed (revision %d)", t.store.Revision())
	return nil
}

// Cancel discards every buffered change: the table's own buffers and the
// writes already merged into the store's buffer. Committed data is untouched.
func (t *Table) Cancel() {
	t.wordFreqChanges = make(map[string]uint64)
	t.pairFreqChanges = make(map[string]uint64)
	t.prefixChanges = make(map[string]uint8)
	t.wordValues = make(map[string][]byte)
	t.groupStack = nil
	t.groupMax = 0
	t.index.cancel()
	t.store.Cancel()
}

// Revision exposes the committed store revision, used to key caches.
func (t *Table) Revision() uint64 {
	return t.store.Revision()
}
