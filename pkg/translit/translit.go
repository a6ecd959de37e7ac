// Package translit maps words between scripts.
//
// A transliteration table holds, per language, a forward map from source
// graphemes to one or more latin spellings and a reverse map built from it
// (plus explicit reverse-only entries). Tables are loaded from plain-text
// data files, see loader.go for the format. The corrector uses
// transliterations as extra correction candidates, so a russian query typed
// as "moskva" can still reach the cyrillic vocabulary entry.
package translit

import (
	"github.com/bastiangx/spellserve/pkg/textutil"
)

// MaxTransliterations caps the variant cartesian product per word.
const MaxTransliterations = 128

// Table is one language's transliteration mapping.
type Table struct {
	name string
	code string

	forward map[string][]string
	reverse map[string][]string
}

// NewTable returns an empty table for the given language.
func NewTable(name, code string) *Table {
	return &Table{
		name:    name,
		code:    code,
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
	}
}

// Name returns the table's language name.
func (t *Table) Name() string { return t.name }

// Code returns the table's language code.
func (t *Table) Code() string { return t.code }

// AddMapping registers a forward source → latin variant.
func (t *Table) AddMapping(source, variant string) {
	t.forward[source] = append(t.forward[source], variant)
}

// AddReverseMapping registers a reverse-only latin → source variant.
func (t *Table) AddReverseMapping(latin, source string) {
	t.reverse[latin] = append(t.reverse[latin], source)
}

// buildReverse mirrors every non-empty forward variant into the reverse map.
func (t *Table) buildReverse() {
	for source, variants := range t.forward {
		for _, v := range variants {
			if v != "" {
				t.reverse[v] = append(t.reverse[v], source)
			}
		}
	}
}

// isDefault reports whether ch may pass through a transliteration untouched.
func isDefault(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') ||
		ch == '.' || ch == ',' || ch == '!' || ch == '?'
}

// expand walks word through charMap, building the cartesian product of the
// per-grapheme variants. Greedy longest match: at each position the longest
// uninterrupted map hit wins. keepDefault lets unmapped default-set
// characters pass through; without it any unmapped character aborts.
// limitVariants restricts each grapheme to its first variant.
func (t *Table) expand(word string, charMap map[string][]string, keepDefault, limitVariants bool) []string {
	runes := textutil.LowerRunes(word)
	results := []string{""}

	for i := 0; i < len(runes); {
		var variants []string
		matched := 0
		part := make([]byte, 0, 8)
		for j := i; j < len(runes); j++ {
			part = textutil.AppendRune(part, runes[j])
			v, ok := charMap[string(part)]
			if !ok {
				break
			}
			variants = v
			matched = j - i + 1
		}

		if matched == 0 {
			if !keepDefault || !isDefault(runes[i]) {
				return nil
			}
			for k := range results {
				results[k] += string(runes[i])
			}
			i++
			continue
		}

		varCount := len(variants)
		if limitVariants && varCount > 1 {
			varCount = 1
		}

		size := len(results)
		for v := 1; v < varCount && len(results) < MaxTransliterations; v++ {
			for k := 0; k < size && len(results) < MaxTransliterations; k++ {
				results = append(results, results[k]+variants[v])
			}
		}
		for k := 0; k < size; k++ {
			results[k] += variants[0]
		}
		i += matched
	}

	out := results[:0]
	for _, r := range results {
		if r != string(runes) && r != word {
			out = append(out, r)
		}
	}
	return out
}

// Transliterate returns the primary transliteration of word, or "" when the
// word contains characters the table cannot map.
func (t *Table) Transliterate(word string) string {
	if word == "" {
		return ""
	}
	results := t.expand(word, t.forward, true, true)
	if len(results) == 0 {
		return ""
	}
	return results[0]
}

// Transliterations returns every distinct transliteration of word, forward
// and reverse, excluding the word itself.
func (t *Table) Transliterations(word string) []string {
	if word == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.expand(word, t.forward, true, false) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, r := range t.expand(word, t.reverse, false, false) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
