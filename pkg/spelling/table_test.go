package spelling

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/spellserve/pkg/store"
)

// recordingStore wraps a MemStore and mirrors its committed state into a
// plain map so tests can compare whole-store snapshots.
type recordingStore struct {
	*store.MemStore
	pending   map[string][]byte
	committed map[string][]byte
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		MemStore:  store.NewMemStore(),
		pending:   make(map[string][]byte),
		committed: make(map[string][]byte),
	}
}

func (r *recordingStore) Put(key, value []byte) {
	r.MemStore.Put(key, value)
	r.pending[string(key)] = append([]byte(nil), value...)
}

func (r *recordingStore) Delete(key []byte) {
	r.MemStore.Delete(key)
	r.pending[string(key)] = nil
}

func (r *recordingStore) Flush() error {
	if err := r.MemStore.Flush(); err != nil {
		return err
	}
	for key, value := range r.pending {
		if value == nil {
			delete(r.committed, key)
		} else {
			r.committed[key] = value
		}
	}
	r.pending = make(map[string][]byte)
	return nil
}

func (r *recordingStore) Cancel() {
	r.MemStore.Cancel()
	r.pending = make(map[string][]byte)
}

func (r *recordingStore) snapshot() map[string]string {
	snap := make(map[string]string, len(r.committed))
	for k, v := range r.committed {
		snap[k] = string(v)
	}
	return snap
}

var variants = map[string]IndexVariant{
	"ngram":  IndexNGram,
	"fastss": IndexFastSS,
}

func TestAddFlushFrequency(t *testing.T) {
	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			table := NewTable(store.NewMemStore(), variant)

			require.NoError(t, table.AddWord("hello", 42, ""))

			// Buffered frequency is already visible.
			freq, err := table.WordFrequency("hello", "")
			require.NoError(t, err)
			assert.Equal(t, uint64(42), freq)

			require.NoError(t, table.Flush())
			freq, err = table.WordFrequency("hello", "")
			require.NoError(t, err)
			assert.Equal(t, uint64(42), freq)
		})
	}
}

func TestShortWordsNeverIndexed(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	require.NoError(t, table.AddWord("a", 10, ""))
	require.NoError(t, table.AddWord("", 10, ""))
	require.NoError(t, table.Flush())

	freq, err := table.WordFrequency("a", "")
	require.NoError(t, err)
	assert.Zero(t, freq)
	assert.False(t, table.Modified())
}

func TestAddRemoveClamps(t *testing.T) {
	tests := []struct {
		add, remove, want uint64
	}{
		{10, 4, 6},
		{10, 10, 0},
		{10, 25, 0},
	}
	for _, tt := range tests {
		table := NewTable(store.NewMemStore(), IndexNGram)
		require.NoError(t, table.AddWord("word", tt.add, ""))
		require.NoError(t, table.RemoveWord("word", tt.remove, ""))
		require.NoError(t, table.Flush())

		freq, err := table.WordFrequency("word", "")
		require.NoError(t, err)
		assert.Equal(t, tt.want, freq, "add %d remove %d", tt.add, tt.remove)
	}
}

func TestPairFrequencyOrderIndependent(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	require.NoError(t, table.AddWordPair("new", "york", 90, ""))
	require.NoError(t, table.Flush())

	forward, err := table.WordPairFrequency("new", "york", "")
	require.NoError(t, err)
	backward, err := table.WordPairFrequency("york", "new", "")
	require.NoError(t, err)

	assert.Equal(t, uint64(90), forward)
	assert.Equal(t, forward, backward)
}

func TestPairEmptySideDelegates(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	require.NoError(t, table.AddWordPair("word", "", 7, ""))
	freq, err := table.WordFrequency("word", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), freq)
}

func TestPrefixGroups(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	enabled, err := table.IsSpellingEnabled("author:")
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, table.EnableSpelling("author:", ""))
	enabled, err = table.IsSpellingEnabled("author:")
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, table.AddWord("tolstoy", 5, "author:"))
	require.NoError(t, table.Flush())

	// The prefixed vocabulary is independent of the default one.
	freq, err := table.WordFrequency("tolstoy", "author:")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), freq)
	freq, err = table.WordFrequency("tolstoy", "")
	require.NoError(t, err)
	assert.Zero(t, freq)

	// The empty prefix is always enabled.
	enabled, err = table.IsSpellingEnabled("")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestDisabledPrefixHidesWrites(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	require.NoError(t, table.EnableSpelling("author:", ""))
	require.NoError(t, table.AddWord("tolstoy", 5, "author:"))
	require.NoError(t, table.Flush())

	require.NoError(t, table.DisableSpelling("author:"))

	enabled, err := table.IsSpellingEnabled("author:")
	require.NoError(t, err)
	assert.False(t, enabled)

	freq, err := table.WordFrequency("tolstoy", "author:")
	require.NoError(t, err)
	assert.Zero(t, freq)

	terms, err := table.OpenTermList("tolstoi", 2, "author:")
	require.NoError(t, err)
	assert.False(t, terms.Next())
}

func TestGroupIDExhaustion(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	// Ids 1..254 are allocatable; 0xFF is the disabled sentinel.
	for i := 1; i <= 254; i++ {
		require.NoError(t, table.EnableSpelling(fmt.Sprintf("p%d:", i), ""))
	}
	err := table.EnableSpelling("overflow:", "")
	assert.ErrorIs(t, err, store.ErrRange)

	// Releasing one id makes room again, reused LIFO.
	require.NoError(t, table.DisableSpelling("p42:"))
	require.NoError(t, table.EnableSpelling("again:", ""))
	err = table.EnableSpelling("overflow:", "")
	assert.ErrorIs(t, err, store.ErrRange)
}

func TestGroupSharing(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	require.NoError(t, table.EnableSpelling("a:", ""))
	require.NoError(t, table.EnableSpelling("b:", "a:"))
	require.NoError(t, table.AddWord("shared", 3, "a:"))
	require.NoError(t, table.Flush())

	// b: shares a:'s group, so it sees the same vocabulary.
	freq, err := table.WordFrequency("shared", "b:")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), freq)
}

func TestToggleInvariant(t *testing.T) {
	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			st := newRecordingStore()
			table := NewTable(st, variant)

			require.NoError(t, table.AddWord("hello", 10, ""))
			require.NoError(t, table.Flush())
			after := st.snapshot()

			require.NoError(t, table.RemoveWord("hello", 10, ""))
			require.NoError(t, table.Flush())
			removed := st.snapshot()
			assert.NotEqual(t, after, removed, "removal must change the store")

			require.NoError(t, table.AddWord("hello", 10, ""))
			require.NoError(t, table.Flush())
			again := st.snapshot()

			assert.Equal(t, after, again, "add/remove/add must restore the original state")
		})
	}
}

func TestAddRemoveSameBatchLeavesNothing(t *testing.T) {
	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			st := newRecordingStore()
			table := NewTable(st, variant)
			require.NoError(t, table.Flush())
			empty := st.snapshot()

			require.NoError(t, table.AddWord("fleeting", 1, ""))
			require.NoError(t, table.RemoveWord("fleeting", 1, ""))
			require.NoError(t, table.Flush())

			snap := st.snapshot()
			// The word index bookkeeping of the FastSS variant may persist,
			// but no frequency entry and no posting may survive.
			for key := range snap {
				if _, ok := empty[key]; ok {
					continue
				}
				if strings.HasPrefix(key, "WI") || strings.HasPrefix(key, "WR") {
					continue
				}
				if key[0] == wordTag || key[0] == fastssTag || key[0] == ngramTag {
					t.Errorf("leftover entry %q", key)
				}
			}
			freq, err := table.WordFrequency("fleeting", "")
			require.NoError(t, err)
			assert.Zero(t, freq)
		})
	}
}

func collectTerms(t *testing.T, terms TermList) []string {
	t.Helper()
	var got []string
	for terms.Next() {
		got = append(got, terms.Term())
	}
	require.NoError(t, terms.Err())
	return got
}

func TestOpenTermListFindsNearbyWords(t *testing.T) {
	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			table := NewTable(store.NewMemStore(), variant)
			for _, word := range []string{"hello", "world", "help", "hollow"} {
				require.NoError(t, table.AddWord(word, 10, ""))
			}
			require.NoError(t, table.Flush())

			terms, err := table.OpenTermList("helo", 2, "")
			require.NoError(t, err)
			assert.Contains(t, collectTerms(t, terms), "hello")
		})
	}
}

func TestOpenTermListSeesBufferedWords(t *testing.T) {
	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			table := NewTable(store.NewMemStore(), variant)
			require.NoError(t, table.AddWord("fresh", 1, ""))

			// No flush: the term list must still observe the new word.
			terms, err := table.OpenTermList("fresh", 1, "")
			require.NoError(t, err)
			assert.Contains(t, collectTerms(t, terms), "fresh")
		})
	}
}

func TestOpenTermListShortWord(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)
	_, err := table.OpenTermList("a", 2, "")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestShortWordCandidates(t *testing.T) {
	// Transposed and substituted forms of very short words still need to be
	// reachable; this is what the bookends fragments are for.
	table := NewTable(store.NewMemStore(), IndexNGram)
	for _, word := range []string{"ab", "abc", "abcd"} {
		require.NoError(t, table.AddWord(word, 5, ""))
	}
	require.NoError(t, table.Flush())

	tests := []struct {
		query string
		want  string
	}{
		{"ba", "ab"},    // transposition of a two letter word
		{"acb", "abc"},  // transposition of the last two letters
		{"axc", "abc"},  // substitution in the middle
		{"acbd", "abcd"}, // transposition of the middle letters
	}
	for _, tt := range tests {
		terms, err := table.OpenTermList(tt.query, 2, "")
		require.NoError(t, err)
		assert.Contains(t, collectTerms(t, terms), tt.want, "query %q", tt.query)
	}
}

func TestWordValuePayload(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	require.NoError(t, table.AddWord("hello", 10, ""))
	require.NoError(t, table.SetWordValue("hello", "", []byte("payload")))
	require.NoError(t, table.Flush())

	value, err := table.WordValue("hello", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)

	// The frequency is unharmed by the payload.
	freq, err := table.WordFrequency("hello", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), freq)
}

func TestCancelDiscardsEverything(t *testing.T) {
	table := NewTable(store.NewMemStore(), IndexNGram)

	require.NoError(t, table.AddWord("hello", 10, ""))
	require.NoError(t, table.EnableSpelling("x:", ""))
	table.Cancel()

	assert.False(t, table.Modified())
	freq, err := table.WordFrequency("hello", "")
	require.NoError(t, err)
	assert.Zero(t, freq)

	enabled, err := table.IsSpellingEnabled("x:")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestCorruptFrequencyEntry(t *testing.T) {
	st := store.NewMemStore()
	table := NewTable(st, IndexNGram)

	// A frequency entry whose varint never terminates is corruption.
	st.Put([]byte{wordTag, 0, 'b', 'a', 'd'}, []byte{0x80})
	require.NoError(t, st.Flush())

	_, err := table.WordFrequency("bad", "")
	assert.True(t, errors.Is(err, store.ErrCorrupt))
}
