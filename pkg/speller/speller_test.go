package speller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/spellserve/pkg/spelling"
	"github.com/bastiangx/spellserve/pkg/store"
)

func buildTable(t *testing.T, variant spelling.IndexVariant, words map[string]uint64, pairs map[[2]string]uint64) *spelling.Table {
	t.Helper()
	table := spelling.NewTable(store.NewMemStore(), variant)
	for word, freq := range words {
		require.NoError(t, table.AddWord(word, freq, ""))
	}
	for pair, freq := range pairs {
		require.NoError(t, table.AddWordPair(pair[0], pair[1], freq, ""))
	}
	require.NoError(t, table.Flush())
	return table
}

func TestSingleMisspelling(t *testing.T) {
	for name, variant := range map[string]spelling.IndexVariant{
		"ngram":  spelling.IndexNGram,
		"fastss": spelling.IndexFastSS,
	} {
		t.Run(name, func(t *testing.T) {
			table := buildTable(t, variant, map[string]uint64{
				"hello": 100,
				"world": 100,
			}, nil)
			sp := New(table, Options{MaxDistance: 2, Language: "english"})

			got, err := sp.SuggestWord("helo", "")
			require.NoError(t, err)
			assert.Equal(t, "hello", got)
		})
	}
}

func TestBigramBeatsUnigram(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"new": 50, "york": 10, "newark": 80, "your": 100},
		map[[2]string]uint64{{"new", "york"}: 90},
	)
	sp := New(table, Options{MaxDistance: 2, Language: "english"})

	got, err := sp.Suggest([]string{"new", "yorl"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "york"}, got)
}

func TestSplit(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"power": 100, "house": 100, "powerhouse": 2},
		nil,
	)
	// Distance 0: no misspelling admitted, only re-segmentation.
	sp := New(table, Options{MaxDistance: 0, Language: "english"})

	got, err := sp.Suggest([]string{"powerhouse"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"power", "house"}, got)
}

func TestMerge(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"database": 100},
		nil,
	)
	sp := New(table, Options{MaxDistance: 2, Language: "english"})

	got, err := sp.Suggest([]string{"data", "base"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"database"}, got)
}

func TestLayoutSwap(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"хеллоу": 50},
		nil,
	)
	sp := New(table, Options{MaxDistance: 2, Language: "russian"})

	// Latin keys typed on a QWERTY keyboard while the russian layout was
	// meant: the layout swap recovers the stored word.
	got, err := sp.SuggestWord("[tkkje", "")
	require.NoError(t, err)
	assert.Equal(t, "хеллоу", got)
}

func TestDisabledPrefix(t *testing.T) {
	table := spelling.NewTable(store.NewMemStore(), spelling.IndexNGram)
	require.NoError(t, table.EnableSpelling("author:", ""))
	require.NoError(t, table.AddWord("austen", 50, "author:"))
	require.NoError(t, table.Flush())
	require.NoError(t, table.DisableSpelling("author:"))

	sp := New(table, Options{MaxDistance: 2, Language: "english"})
	got, err := sp.SuggestWord("austn", "author:")
	require.NoError(t, err)
	assert.Empty(t, got, "disabled prefix must return no suggestions")
}

func TestNoChangeOnCorrectInput(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"hello": 100, "world": 90},
		map[[2]string]uint64{{"hello", "world"}: 50},
	)
	sp := New(table, Options{MaxDistance: 2, Language: "english"})

	got, err := sp.Suggest([]string{"hello", "world"}, "")
	require.NoError(t, err)
	assert.Empty(t, got, "correct input needs no correction")
}

func TestFacadeIdempotent(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"new": 50, "york": 10, "newark": 80, "your": 100,
			"power": 100, "house": 100, "powerhouse": 2},
		map[[2]string]uint64{{"new", "york"}: 90},
	)
	sp := New(table, Options{MaxDistance: 2, Language: "english"})

	queries := [][]string{
		{"new", "yorl"},
		{"powerhouse"},
	}
	for _, query := range queries {
		first, err := sp.Suggest(query, "")
		require.NoError(t, err)
		require.NotEmpty(t, first, "query %v", query)

		second, err := sp.Suggest(first, "")
		require.NoError(t, err)
		assert.Empty(t, second, "correcting %v -> %v again must be a no-op", query, first)
	}
}

func TestExactWordIsItsOwnCandidate(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"hello": 100},
		nil,
	)
	corr := newCorrector(table, nil, nil, 2, "")

	// With skipExact off, a vocabulary word returns itself first.
	got, err := corr.topByDistance("hello", 5, false, false)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "hello", got[0])
}

func TestSuggestN(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"hello": 100, "help": 60, "hell": 40},
		nil,
	)
	sp := New(table, Options{MaxDistance: 2, Language: "english"})

	got, err := sp.SuggestN([]string{"helo"}, 3, "")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, []string{"hello"}, got[0], "best suggestion first")

	seen := make(map[string]bool)
	for _, words := range got {
		key := words[0]
		assert.False(t, seen[key], "duplicate suggestion %q", key)
		seen[key] = true
	}
	assert.LessOrEqual(t, len(got), 3)
}

func TestPhonetic(t *testing.T) {
	table := spelling.NewTable(store.NewMemStore(), spelling.IndexNGram)
	sp := New(table, Options{MaxDistance: 2, Language: "russian"})

	assert.Equal(t, "0MS", sp.Phonetic("thomas"))
	// Cyrillic input is transliterated before encoding.
	assert.Equal(t, "FN", sp.Phonetic("фон"))
}

func TestSuggestionCacheTracksRevision(t *testing.T) {
	table := buildTable(t, spelling.IndexNGram,
		map[string]uint64{"hello": 100},
		nil,
	)
	sp := New(table, Options{MaxDistance: 2, Language: "english", CacheSize: 16})

	got, err := sp.SuggestWord("helo", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	// A new much more frequent word lands after a flush; the cached result
	// for the old revision must not stick.
	require.NoError(t, table.AddWord("helot", 1000000, ""))
	require.NoError(t, table.Flush())

	got, err = sp.SuggestWord("helo", "")
	require.NoError(t, err)
	assert.Equal(t, "helot", got)
}
