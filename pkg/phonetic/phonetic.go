// Package phonetic derives short ASCII keys that cluster words by
// approximate pronunciation.
//
// Two encoders are implemented: the classic Metaphone transducer and the
// Daitch-Mokotoff Soundex, which can emit several keys for one word when a
// letter group has more than one plausible sound. Keyer wraps an encoder with
// a transliteration step so that non-latin words are romanized before
// encoding.
package phonetic

import (
	"github.com/bastiangx/spellserve/pkg/translit"
)

// Encoder produces one or more phonetic keys for a word. An empty result
// means the word cannot be encoded (for example, it contains characters the
// encoder has no rule for).
type Encoder interface {
	Encode(word string) []string
}

// Keyer encodes words phonetically, transliterating them to latin first when
// a transliteration table is available.
type Keyer struct {
	encoder  Encoder
	translit *translit.Table
}

// NewKeyer builds a Keyer for the given language. The encoder defaults to
// Metaphone when nil.
func NewKeyer(encoder Encoder, table *translit.Table) *Keyer {
	if encoder == nil {
		encoder = NewMetaphone()
	}
	return &Keyer{encoder: encoder, translit: table}
}

// Key returns the primary phonetic key for word, or "" when the word cannot
// be encoded.
func (k *Keyer) Key(word string) string {
	if word == "" {
		return ""
	}
	input := word
	if k.translit != nil {
		if t := k.translit.Transliterate(word); t != "" {
			input = t
		}
	}
	keys := k.encoder.Encode(input)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
