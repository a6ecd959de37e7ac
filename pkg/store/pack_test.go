package store

import (
	"bytes"
	"errors"
	"testing"
)

func TestPackUintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 255, 300, 1 << 14, 1<<32 - 1, 1<<63 + 42}
	for _, v := range values {
		data := PackUint(nil, v)
		got, n, err := UnpackUint(data)
		if err != nil {
			t.Fatalf("UnpackUint(%d): %v", v, err)
		}
		if got != v || n != len(data) {
			t.Errorf("round trip %d -> %d (consumed %d of %d)", v, got, n, len(data))
		}
	}
}

func TestPackUintConcatenated(t *testing.T) {
	data := PackUint(nil, 5)
	data = PackUint(data, 1000)
	data = PackUint(data, 0)

	want := []uint64{5, 1000, 0}
	for _, w := range want {
		v, n, err := UnpackUint(data)
		if err != nil {
			t.Fatal(err)
		}
		if v != w {
			t.Errorf("got %d, want %d", v, w)
		}
		data = data[n:]
	}
	if len(data) != 0 {
		t.Errorf("%d trailing bytes", len(data))
	}
}

func TestUnpackUintCorrupt(t *testing.T) {
	// A continuation bit with no following byte is corruption.
	if _, _, err := UnpackUint([]byte{0x80}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("truncated varint error = %v, want ErrCorrupt", err)
	}
	if _, _, err := UnpackUint(nil); !errors.Is(err, ErrCorrupt) {
		t.Errorf("empty varint error = %v, want ErrCorrupt", err)
	}
}

func TestPackUintPreservingSort(t *testing.T) {
	values := []uint64{0, 1, 255, 256, 65535, 65536, 1 << 40}
	var prev []byte
	for _, v := range values {
		data := PackUintPreservingSort(nil, v)
		got, n, err := UnpackUintPreservingSort(data)
		if err != nil {
			t.Fatalf("UnpackUintPreservingSort(%d): %v", v, err)
		}
		if got != v || n != len(data) {
			t.Errorf("round trip %d -> %d", v, got)
		}
		if prev != nil && bytes.Compare(prev, data) >= 0 {
			t.Errorf("encoding of %d does not sort after its predecessor", v)
		}
		prev = data
	}
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()

	s.Put([]byte("key"), []byte("value"))
	if !s.Modified() {
		t.Error("Modified() = false with buffered write")
	}

	// Buffered writes are visible before Flush.
	v, found, err := s.Get([]byte("key"))
	if err != nil || !found || string(v) != "value" {
		t.Fatalf("Get buffered = %q, %v, %v", v, found, err)
	}

	rev := s.Revision()
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if s.Revision() != rev+1 {
		t.Errorf("revision %d, want %d", s.Revision(), rev+1)
	}
	if s.Modified() {
		t.Error("Modified() = true after Flush")
	}

	// Buffered deletes shadow committed values.
	s.Delete([]byte("key"))
	if _, found, _ := s.Get([]byte("key")); found {
		t.Error("deleted key still visible")
	}

	// Cancel restores the committed view.
	s.Cancel()
	if _, found, _ := s.Get([]byte("key")); !found {
		t.Error("Cancel did not restore the committed value")
	}
}
