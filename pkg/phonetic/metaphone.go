package phonetic

import "strings"

// Character class flags for the metaphone rule table.
type metaFlag byte

const (
	flagVowel metaFlag = 1 << iota
	flagSame           // F J L M N R: keep as-is
	flagVarSound       // C G P S T: sound depends on the following letter
	flagFrontVowel     // E I Y
	flagNoGHF          // letters after which GH is silent
)

// metaAlpha classifies 'A'..'Z'. Derived from the rule table in Gary A.
// Parker's metaphone (C Gazette, June/July 1991).
var metaAlpha = [26]metaFlag{
	'A' - 'A': flagVowel,
	'B' - 'A': flagNoGHF,
	'C' - 'A': flagVarSound,
	'D' - 'A': flagNoGHF,
	'E' - 'A': flagVowel | flagFrontVowel,
	'F' - 'A': flagSame,
	'G' - 'A': flagVarSound,
	'H' - 'A': flagNoGHF,
	'I' - 'A': flagVowel | flagFrontVowel,
	'J' - 'A': flagSame,
	'L' - 'A': flagSame,
	'M' - 'A': flagSame,
	'N' - 'A': flagSame,
	'O' - 'A': flagVowel,
	'P' - 'A': flagVarSound,
	'R' - 'A': flagSame,
	'S' - 'A': flagVarSound,
	'T' - 'A': flagVarSound,
	'U' - 'A': flagVowel,
	'Y' - 'A': flagFrontVowel,
}

// Metaphone is the classic table-driven phonetic transducer for english.
type Metaphone struct{}

// NewMetaphone returns a Metaphone encoder.
func NewMetaphone() *Metaphone {
	return &Metaphone{}
}

func metaAt(word string, i int) byte {
	if i < 0 || i >= len(word) {
		return 0
	}
	return word[i]
}

func metaIs(ch byte, flag metaFlag) bool {
	if ch < 'A' || ch > 'Z' {
		return false
	}
	return metaAlpha[ch-'A']&flag != 0
}

// Encode returns the metaphone key for word, or nil when the word contains
// characters outside A-Z after upper-casing.
func (m *Metaphone) Encode(word string) []string {
	w := strings.ToUpper(word)
	for i := 0; i < len(w); i++ {
		if w[i] < 'A' || w[i] > 'Z' {
			return nil
		}
	}
	if len(w) <= 1 {
		return []string{w}
	}

	// Leading silent consonants: PN, KN, GN, AE, WR drop the first letter;
	// WH becomes W; a leading X sounds like S.
	switch {
	case (w[0] == 'P' || w[0] == 'K' || w[0] == 'G') && w[1] == 'N',
		w[0] == 'A' && w[1] == 'E',
		w[0] == 'W' && w[1] == 'R':
		w = w[1:]
	case w[0] == 'W' && w[1] == 'H':
		w = "W" + w[2:]
	case w[0] == 'X':
		w = "S" + w[1:]
	}

	var key strings.Builder
	n := len(w)
	for i := 0; i < n; i++ {
		ch := metaAt(w, i)
		prev := metaAt(w, i-1)

		// Collapse duplicates except CC.
		if prev == ch && ch != 'C' {
			continue
		}

		if metaIs(ch, flagSame) || (i == 0 && metaIs(ch, flagVowel)) {
			key.WriteByte(ch)
			continue
		}

		next := metaAt(w, i+1)
		next2 := metaAt(w, i+2)

		switch ch {
		case 'B':
			// -MB at the end of a word is silent.
			if prev != 'M' || i+1 < n {
				key.WriteByte('B')
			}
		case 'C':
			// SCI/SCE/SCY: dropped. CIA/CH: X. CI/CE/CY: S. Otherwise K.
			if prev != 'S' || !metaIs(next, flagFrontVowel) {
				switch {
				case next == 'I' && next2 == 'A':
					key.WriteByte('X')
				case metaIs(next, flagFrontVowel):
					key.WriteByte('S')
				case next == 'H':
					if (i > 0 || metaIs(next2, flagVowel)) && prev != 'S' {
						key.WriteByte('X')
					} else {
						key.WriteByte('K')
					}
				default:
					key.WriteByte('K')
				}
			}
		case 'D':
			// DGE/DGI/DGY: J. Otherwise T.
			if next == 'G' && metaIs(next2, flagFrontVowel) {
				key.WriteByte('J')
			} else {
				key.WriteByte('T')
			}
		case 'G':
			if (next != 'G' || metaIs(next2, flagVowel)) &&
				(next != 'N' || (i+1 < n && (next2 != 'E' || metaAt(w, i+3) != 'D'))) &&
				(prev != 'D' || !metaIs(next, flagFrontVowel)) {
				if metaIs(next, flagFrontVowel) && next2 != 'G' {
					key.WriteByte('J')
				} else {
					key.WriteByte('K')
				}
			} else if next == 'H' && !metaIs(metaAt(w, i-3), flagNoGHF) && metaAt(w, i-4) != 'H' {
				key.WriteByte('F')
			}
		case 'H':
			// Keep H before a vowel unless it follows C G P S T.
			if !metaIs(prev, flagVarSound) && (!metaIs(prev, flagVowel) || metaIs(next, flagVowel)) {
				key.WriteByte('H')
			}
		case 'K':
			if prev != 'C' {
				key.WriteByte('K')
			}
		case 'P':
			if next == 'H' {
				key.WriteByte('F')
			} else {
				key.WriteByte('P')
			}
		case 'Q':
			key.WriteByte('K')
		case 'S':
			// SH, SIO, SIA: X.
			if next == 'H' || (next == 'I' && (next2 == 'O' || next2 == 'A')) {
				key.WriteByte('X')
			} else {
				key.WriteByte('S')
			}
		case 'T':
			// TIA/TIO: X. TH: theta. TCH: dropped.
			switch {
			case next == 'I' && (next2 == 'O' || next2 == 'A'):
				key.WriteByte('X')
			case next == 'H':
				key.WriteByte('0')
			case next != 'C' || next2 != 'H':
				key.WriteByte('T')
			}
		case 'V':
			key.WriteByte('F')
		case 'W', 'Y':
			if metaIs(next, flagVowel) {
				key.WriteByte(ch)
			}
		case 'X':
			if i > 0 {
				key.WriteString("KS")
			} else {
				key.WriteByte('S')
			}
		case 'Z':
			key.WriteByte('S')
		}
	}
	return []string{key.String()}
}
