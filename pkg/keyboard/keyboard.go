// Package keyboard models physical keyboard layouts for spelling correction.
//
// Two things live here: the geometry of the default (US QWERTY) keyboard,
// which gives every default character a row/column position used to score how
// close two keys are, and per-language layouts that map national characters
// onto the default key they share a physical key with. The latter is what lets
// the corrector recover words typed with the wrong layout active, such as
// "[tkkje" for a Russian word.
package keyboard

import (
	"math"
	"sync"

	"github.com/bastiangx/spellserve/pkg/textutil"
)

type keyPos struct {
	row float64
	col float64
}

// defaultKeyboard holds the QWERTY grid geometry shared by every layout.
type defaultKeyboard struct {
	positions map[rune]keyPos
	maxDist   float64
}

var (
	defaultOnce sync.Once
	defaultKeys *defaultKeyboard
)

// buildDefaultKeyboard lays out the US QWERTY grid. Row offsets follow the
// physical stagger of the keyboard, so horizontal neighbours on adjacent rows
// get realistic distances.
func buildDefaultKeyboard() *defaultKeyboard {
	kb := &defaultKeyboard{positions: make(map[rune]keyPos, 96)}

	rows := []struct {
		row    float64
		offset float64
		keys   string
	}{
		{0, 0, "`1234567890-="},
		{1, 1.4, "qwertyuiop[]\\"},
		{2, 1.7, "asdfghjkl;'"},
		{3, 2.0, "zxcvbnm,./|"},
	}
	for _, r := range rows {
		col := 0.0
		for _, ch := range r.keys {
			kb.positions[ch] = keyPos{row: r.row, col: col + r.offset}
			col++
		}
	}

	// Shifted variants sit on the same physical key.
	shifted := map[rune]rune{
		'~': '`', '!': '1', '@': '2', '#': '3', '$': '4', '%': '5',
		'^': '6', '&': '7', '*': '8', '(': '9', ')': '0', '_': '-', '+': '=',
		'Q': 'q', 'W': 'w', 'E': 'e', 'R': 'r', 'T': 't', 'Y': 'y',
		'U': 'u', 'I': 'i', 'O': 'o', 'P': 'p', '{': '[', '}': ']',
		'A': 'a', 'S': 's', 'D': 'd', 'F': 'f', 'G': 'g', 'H': 'h',
		'J': 'j', 'K': 'k', 'L': 'l', ':': ';', '"': '\'',
		'Z': 'z', 'X': 'x', 'C': 'c', 'V': 'v', 'B': 'b', 'N': 'n',
		'M': 'm', '<': ',', '>': '.', '?': '/',
	}
	for from, to := range shifted {
		kb.positions[from] = kb.positions[to]
	}

	for _, pos := range kb.positions {
		d := math.Sqrt(pos.row*pos.row + pos.col*pos.col)
		if d > kb.maxDist {
			kb.maxDist = d
		}
	}
	return kb
}

func getDefaultKeyboard() *defaultKeyboard {
	defaultOnce.Do(func() {
		defaultKeys = buildDefaultKeyboard()
	})
	return defaultKeys
}

func (kb *defaultKeyboard) isDefault(ch rune) bool {
	_, ok := kb.positions[ch]
	return ok
}

func (kb *defaultKeyboard) proximity(a, b rune) float64 {
	pa, ok := kb.positions[a]
	if !ok {
		return 0
	}
	pb, ok := kb.positions[b]
	if !ok {
		return 0
	}
	dr := pa.row - pb.row
	dc := pa.col - pb.col
	return 1 - math.Sqrt(dr*dr+dc*dc)/kb.maxDist
}

// Layout maps one language's characters onto the default keyboard.
type Layout struct {
	name string
	code string
	from map[rune]rune // layout char -> default char
	to   map[rune]rune // default char -> layout char
}

func newLayout(name, code string) *Layout {
	return &Layout{
		name: name,
		code: code,
		from: make(map[rune]rune),
		to:   make(map[rune]rune),
	}
}

// Name returns the layout's language name.
func (l *Layout) Name() string { return l.name }

// Code returns the layout's language code.
func (l *Layout) Code() string { return l.code }

func (l *Layout) addMapping(layoutChar, defaultChar rune) {
	l.from[layoutChar] = defaultChar
	l.to[defaultChar] = layoutChar
}

// convert rewrites word through charMap. Characters missing from both the map
// and the default set fail the whole conversion: a partial layout swap would
// leave foreign characters in the output, which can never be a real word.
func (l *Layout) convert(word string, charMap map[rune]rune) string {
	kb := getDefaultKeyboard()
	out := make([]byte, 0, len(word))
	for _, ch := range word {
		if mapped, ok := charMap[ch]; ok {
			ch = mapped
		} else if !kb.isDefault(ch) {
			return ""
		}
		out = textutil.AppendRune(out, ch)
	}
	return string(out)
}

// ConvertFromLayout maps a word typed in this layout back to the default
// layout. Returns "" when the word contains unmappable characters.
func (l *Layout) ConvertFromLayout(word string) string {
	return l.convert(word, l.from)
}

// ConvertToLayout maps a word of default-layout characters into this layout.
// Returns "" when the word contains unmappable characters.
func (l *Layout) ConvertToLayout(word string) string {
	return l.convert(word, l.to)
}

// Proximity scores how close the physical keys for a and b are, in [0, 1].
// Characters from the layout are first mapped to their default key. Unknown
// characters score 0.
func (l *Layout) Proximity(a, b rune) float64 {
	kb := getDefaultKeyboard()

	if mapped, ok := l.from[a]; ok {
		a = mapped
	} else if !kb.isDefault(a) {
		return 0
	}
	if mapped, ok := l.from[b]; ok {
		b = mapped
	} else if !kb.isDefault(b) {
		return 0
	}
	return kb.proximity(a, b)
}
