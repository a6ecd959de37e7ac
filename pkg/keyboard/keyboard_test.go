package keyboard

import "testing"

func TestByName(t *testing.T) {
	if got := ByName("russian").Name(); got != "russian" {
		t.Errorf("ByName(russian).Name() = %q", got)
	}
	if got := ByName("ru").Name(); got != "russian" {
		t.Errorf("ByName(ru).Name() = %q", got)
	}
	// Unknown languages fall back to the mapping-free english layout.
	if got := ByName("klingon").Name(); got != "english" {
		t.Errorf("ByName(klingon).Name() = %q", got)
	}
}

func TestConvertLayoutRussian(t *testing.T) {
	ru := ByName("russian")

	if got := ru.ConvertFromLayout("хеллоу"); got != "[tkkje" {
		t.Errorf("ConvertFromLayout(хеллоу) = %q, want [tkkje", got)
	}
	if got := ru.ConvertToLayout("[tkkje"); got != "хеллоу" {
		t.Errorf("ConvertToLayout([tkkje) = %q, want хеллоу", got)
	}
}

func TestConvertLayoutRoundTrip(t *testing.T) {
	ru := ByName("russian")
	for _, word := range []string{"hello", "qwerty", "mjkl"} {
		there := ru.ConvertToLayout(word)
		if there == "" {
			t.Fatalf("ConvertToLayout(%q) failed", word)
		}
		back := ru.ConvertFromLayout(there)
		if back != word {
			t.Errorf("round trip %q -> %q -> %q", word, there, back)
		}
	}
}

func TestConvertLayoutRejectsForeign(t *testing.T) {
	ru := ByName("russian")
	// A greek character is neither in the russian maps nor on the default
	// keyboard: the conversion must fail outright rather than pass it
	// through.
	if got := ru.ConvertFromLayout("αbc"); got != "" {
		t.Errorf("ConvertFromLayout(αbc) = %q, want empty", got)
	}
	if got := ru.ConvertToLayout("αbc"); got != "" {
		t.Errorf("ConvertToLayout(αbc) = %q, want empty", got)
	}
}

func TestProximity(t *testing.T) {
	en := ByName("english")

	if got := en.Proximity('q', 'q'); got != 1 {
		t.Errorf("Proximity(q, q) = %v, want 1", got)
	}
	near := en.Proximity('q', 'w')
	far := en.Proximity('q', 'p')
	if near <= far {
		t.Errorf("Proximity(q, w) = %v not greater than Proximity(q, p) = %v", near, far)
	}
	if got := en.Proximity('q', 'α'); got != 0 {
		t.Errorf("Proximity with unknown char = %v, want 0", got)
	}

	// Layout characters map onto their physical key first.
	ru := ByName("russian")
	if got, want := ru.Proximity('й', 'ц'), en.Proximity('q', 'w'); got != want {
		t.Errorf("russian Proximity(й, ц) = %v, want %v", got, want)
	}
}
