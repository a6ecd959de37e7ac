// Package textutil implements code point helpers shared by the spelling packages.
//
// All spelling algorithms operate on code points, never on raw bytes; words
// cross package boundaries as strings and are decoded once at the edge with
// Runes. Word normalization (NFC + lower case) happens here as well so that
// every package agrees on what "the same word" means.
package textutil

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Runes decodes a UTF-8 string into its code points.
func Runes(s string) []rune {
	return []rune(s)
}

// AppendRune appends the UTF-8 encoding of r to buf.
func AppendRune(buf []byte, r rune) []byte {
	return utf8.AppendRune(buf, r)
}

// ToLower lower-cases a single code point with an ASCII fast path.
func ToLower(r rune) rune {
	if r < utf8.RuneSelf {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}
	return unicode.ToLower(r)
}

// IsWhitespace reports whether r is a whitespace code point.
func IsWhitespace(r rune) bool {
	return unicode.IsSpace(r)
}

// Normalize puts a word into the canonical form used for all frequency
// lookups and index keys: NFC, lower case.
func Normalize(word string) string {
	word = norm.NFC.String(word)
	lowered := make([]byte, 0, len(word))
	for _, r := range word {
		lowered = AppendRune(lowered, ToLower(r))
	}
	return string(lowered)
}

// LowerRunes decodes a word and lower-cases every code point.
func LowerRunes(word string) []rune {
	runes := []rune(word)
	for i, r := range runes {
		runes[i] = ToLower(r)
	}
	return runes
}
