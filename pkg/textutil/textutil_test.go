package textutil

import "testing"

func TestToLower(t *testing.T) {
	tests := []struct {
		in, want rune
	}{
		{'A', 'a'},
		{'z', 'z'},
		{'5', '5'},
		{'Ж', 'ж'},
		{'Ä', 'ä'},
	}
	for _, tt := range tests {
		if got := ToLower(tt.in); got != tt.want {
			t.Errorf("ToLower(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello", "hello"},
		{"МОСКВА", "москва"},
		// Combining acute accent composes into the precomposed form.
		{"cafe\u0301", "café"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAppendRune(t *testing.T) {
	buf := AppendRune(nil, 'a')
	buf = AppendRune(buf, 'ж')
	if string(buf) != "aж" {
		t.Errorf("AppendRune chain = %q", buf)
	}
}

func TestIsWhitespace(t *testing.T) {
	for _, r := range " \t\n " {
		if !IsWhitespace(r) {
			t.Errorf("IsWhitespace(%q) = false", r)
		}
	}
	if IsWhitespace('x') {
		t.Error("IsWhitespace(x) = true")
	}
}
