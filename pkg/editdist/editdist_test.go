package editdist

import (
	"testing"

	"github.com/bastiangx/spellserve/pkg/keyboard"
)

func runes(s string) []rune { return []rune(s) }

func TestBounded(t *testing.T) {
	tests := []struct {
		a, b string
		max  int
		want int
	}{
		{"", "", 2, 0},
		{"hello", "hello", 2, 0},
		{"hello", "helo", 2, 1},
		{"hello", "hlelo", 2, 1}, // transposition
		{"kitten", "sitting", 3, 3},
		{"abc", "abcd", 2, 1},
		{"abc", "", 3, 3},
		{"ca", "abc", 3, 3},
	}
	for _, tt := range tests {
		if got := Bounded(runes(tt.a), runes(tt.b), tt.max); got != tt.want {
			t.Errorf("Bounded(%q, %q, %d) = %d, want %d", tt.a, tt.b, tt.max, got, tt.want)
		}
		if got := Bounded(runes(tt.b), runes(tt.a), tt.max); got != tt.want {
			t.Errorf("Bounded(%q, %q, %d) = %d, want %d", tt.b, tt.a, tt.max, got, tt.want)
		}
	}
}

func TestBoundedCutoff(t *testing.T) {
	// Distances beyond max only need to report "too far".
	if got := Bounded(runes("aaaa"), runes("bbbb"), 1); got <= 1 {
		t.Errorf("Bounded over cutoff = %d, want > 1", got)
	}
	// Length difference alone can exceed the cutoff.
	if got := Bounded(runes("ab"), runes("abcdefgh"), 2); got != 6 {
		t.Errorf("Bounded length diff = %d, want 6", got)
	}
	if got := Bounded(runes("word"), runes("wodr"), 0); got == 0 {
		t.Error("max_distance 0 must only admit exact matches")
	}
}

func TestExtendedBasics(t *testing.T) {
	e := NewExtended(keyboard.ByName("english"))

	if got := e.Distance(runes("hello"), runes("hello"), 2); got != 0 {
		t.Errorf("identical distance = %v, want 0", got)
	}
	if got := e.Distance(runes("hello"), runes("helo"), 2); got <= 0 {
		t.Errorf("single deletion = %v, want > 0", got)
	}
	if got := e.Distance(nil, runes("abc"), 3); got != 3 {
		t.Errorf("empty vs abc = %v, want 3", got)
	}
}

func TestExtendedSymmetry(t *testing.T) {
	e := NewExtended(nil)
	pairs := [][2]string{
		{"word", "words"},
		{"hello", "helo"},
		{"abc", "abcd"},
	}
	for _, p := range pairs {
		d1 := e.Distance(runes(p[0]), runes(p[1]), 2)
		d2 := e.Distance(runes(p[1]), runes(p[0]), 2)
		if d1 != d2 {
			t.Errorf("Distance(%q, %q) = %v but reversed = %v", p[0], p[1], d1, d2)
		}
	}
}

func TestExtendedKeyboardAware(t *testing.T) {
	e := NewExtended(keyboard.ByName("english"))

	// q and w are adjacent keys, q and p are across the board: the
	// substitution q->w must be cheaper.
	near := e.Distance(runes("qord"), runes("word"), 2)
	far := e.Distance(runes("pord"), runes("word"), 2)
	if near >= far {
		t.Errorf("adjacent-key substitution %v not cheaper than distant %v", near, far)
	}
}

func TestExtendedPositionAware(t *testing.T) {
	e := NewExtended(nil)

	// The same edit is more expensive near the start of the word.
	early := e.Distance(runes("xorld"), runes("world"), 2)
	late := e.Distance(runes("worlx"), runes("world"), 2)
	if early <= late {
		t.Errorf("early edit %v not more expensive than late edit %v", early, late)
	}
}

func TestExtendedRowReuse(t *testing.T) {
	e := NewExtended(nil)
	// Interleave long and short inputs so the grow-by-doubling path and the
	// reuse path both run.
	long1 := e.Distance(runes("incomprehensibilities"), runes("incomprehensibility"), 3)
	short1 := e.Distance(runes("cat"), runes("bat"), 2)
	long2 := e.Distance(runes("incomprehensibilities"), runes("incomprehensibility"), 3)
	short2 := e.Distance(runes("cat"), runes("bat"), 2)
	if long1 != long2 || short1 != short2 {
		t.Error("distances changed across row reuse")
	}
}
