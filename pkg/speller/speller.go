package speller

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bastiangx/spellserve/pkg/keyboard"
	"github.com/bastiangx/spellserve/pkg/phonetic"
	"github.com/bastiangx/spellserve/pkg/spelling"
	"github.com/bastiangx/spellserve/pkg/textutil"
	"github.com/bastiangx/spellserve/pkg/translit"
)

// Options configure a Speller.
type Options struct {
	// MaxDistance bounds the edit distance searched per word.
	MaxDistance int

	// Language selects the keyboard layout and transliteration tables.
	Language string

	// CacheSize is the number of query results kept; 0 disables caching.
	CacheSize int
}

// DefaultOptions are sensible for interactive use.
func DefaultOptions() Options {
	return Options{MaxDistance: 2, Language: "english", CacheSize: 512}
}

// Speller answers spelling queries against one table. It runs the sequence
// corrector and the splitter on every query and returns whichever path
// scored higher; results are cached per committed revision.
type Speller struct {
	table       *spelling.Table
	layout      *keyboard.Layout
	translit    *translit.Table
	keyer       *phonetic.Keyer
	maxDistance int

	cache *lru.Cache[string, []string]
}

// New builds a Speller over table.
func New(table *spelling.Table, opts Options) *Speller {
	s := &Speller{
		table:       table,
		layout:      keyboard.ByName(opts.Language),
		translit:    translit.ByName(opts.Language),
		maxDistance: opts.MaxDistance,
	}
	s.keyer = phonetic.NewKeyer(nil, s.translit)
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []string](opts.CacheSize)
		if err == nil {
			s.cache = cache
		} else {
			log.Warnf("suggestion cache disabled: %v", err)
		}
	}
	return s
}

// cacheKey folds everything a result depends on, including the committed
// revision so stale entries die on flush.
func (s *Speller) cacheKey(words []string, prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(0)
	for _, w := range words {
		b.WriteString(w)
		b.WriteByte(0)
	}
	b.WriteByte(byte(s.maxDistance))
	var rev [8]byte
	r := s.table.Revision()
	for i := range rev {
		rev[i] = byte(r >> (8 * i))
	}
	b.Write(rev[:])
	return b.String()
}

// Suggest corrects a token sequence. An empty result means "no change". A
// disabled prefix yields no suggestions and no error.
func (s *Speller) Suggest(words []string, prefix string) ([]string, error) {
	if len(words) == 0 {
		return nil, nil
	}
	enabled, err := s.table.IsSpellingEnabled(prefix)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}

	words = normalizeTokens(words)

	// Uncommitted writes are not reflected in the revision, so bypass the
	// cache while any are buffered.
	useCache := s.cache != nil && !s.table.Modified()
	key := s.cacheKey(words, prefix)
	if useCache {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	corr := newCorrector(s.table, s.layout, s.translit, s.maxDistance, prefix)

	seqWords, seqFreq, err := newSequenceCorrector(corr, 1).best(words)
	if err != nil {
		return nil, err
	}
	splitWords, splitFreq, err := newSplitter(corr, 1).best(words)
	if err != nil {
		return nil, err
	}

	result := seqWords
	if splitFreq > seqFreq {
		result = splitWords
	}
	if useCache && !s.table.Modified() {
		s.cache.Add(key, result)
	}
	return result, nil
}

// Phonetic returns the primary phonetic key of word, transliterating it to
// latin first when the language's table can. Empty when the word cannot be
// encoded.
func (s *Speller) Phonetic(word string) string {
	return s.keyer.Key(textutil.Normalize(word))
}

// SuggestWord corrects a single word, returning "" for "no change".
func (s *Speller) SuggestWord(word, prefix string) (string, error) {
	words, err := s.Suggest([]string{word}, prefix)
	if err != nil || len(words) == 0 {
		return "", err
	}
	return strings.Join(words, " "), nil
}

// SuggestN returns up to count corrections of the token sequence, best
// first, merged from the sequence-corrector and splitter N-best lists.
func (s *Speller) SuggestN(words []string, count int, prefix string) ([][]string, error) {
	if len(words) == 0 || count == 0 {
		return nil, nil
	}
	enabled, err := s.table.IsSpellingEnabled(prefix)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}

	words = normalizeTokens(words)
	corr := newCorrector(s.table, s.layout, s.translit, s.maxDistance, prefix)

	seqResults, err := newSequenceCorrector(corr, count).run(words)
	if err != nil {
		return nil, err
	}
	splitResults, err := newSplitter(corr, count).run(words)
	if err != nil {
		return nil, err
	}

	merged := make([]scoredSequence, 0, len(seqResults)+len(splitResults))
	for _, r := range append(seqResults, splitResults...) {
		if !r.exact {
			merged = append(merged, r)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].freq > merged[j].freq
	})

	var result [][]string
	seen := make(map[string]bool)
	for _, r := range merged {
		joined := strings.Join(r.words, " ")
		if seen[joined] {
			continue
		}
		seen[joined] = true
		result = append(result, r.words)
		if len(result) == count {
			break
		}
	}
	return result, nil
}
