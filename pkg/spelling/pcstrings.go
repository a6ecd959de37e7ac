package spelling

import (
	"fmt"
	"sort"

	"github.com/bastiangx/spellserve/pkg/store"
)

// Posting values in the n-gram index are prefix-compressed sorted word
// lists: per entry a varint(shared-prefix-length XOR magic), a
// varint(suffix-length), then the suffix bytes. The XOR makes an entry start
// look different from plain text, which catches most truncation corruption
// at decode time.

const pcMagic = 0x55

// pcWriter appends words, which must arrive in ascending order.
type pcWriter struct {
	buf  []byte
	last string
}

func (w *pcWriter) append(word string) {
	shared := 0
	for shared < len(w.last) && shared < len(word) && w.last[shared] == word[shared] {
		shared++
	}
	w.buf = store.PackUint(w.buf, uint64(shared)^pcMagic)
	w.buf = store.PackUint(w.buf, uint64(len(word)-shared))
	w.buf = append(w.buf, word[shared:]...)
	w.last = word
}

// pcTermList lazily decodes a prefix-compressed word list.
type pcTermList struct {
	data []byte
	pos  int
	cur  []byte
	err  error
}

func newPCTermList(data []byte) *pcTermList {
	return &pcTermList{data: data}
}

func (l *pcTermList) Next() bool {
	if l.err != nil || l.pos >= len(l.data) {
		return false
	}
	shared, n, err := store.UnpackUint(l.data[l.pos:])
	if err != nil {
		l.err = fmt.Errorf("spelling termlist: %w", err)
		return false
	}
	l.pos += n
	shared ^= pcMagic

	suffix, n, err := store.UnpackUint(l.data[l.pos:])
	if err != nil {
		l.err = fmt.Errorf("spelling termlist: %w", err)
		return false
	}
	l.pos += n

	if shared > uint64(len(l.cur)) || suffix > uint64(len(l.data)-l.pos) {
		l.err = fmt.Errorf("spelling termlist out of bounds: %w", store.ErrCorrupt)
		return false
	}
	l.cur = append(l.cur[:shared], l.data[l.pos:l.pos+int(suffix)]...)
	l.pos += int(suffix)
	return true
}

func (l *pcTermList) Term() string    { return string(l.cur) }
func (l *pcTermList) ApproxSize() int { return len(l.data) }
func (l *pcTermList) Err() error      { return l.err }

// mergePC folds a toggle set into an existing posting value: words present
// on both sides cancel, everything else is kept, order preserved. Returns
// the new value, empty when nothing is left.
func mergePC(current []byte, toggles map[string]struct{}) ([]byte, error) {
	changes := make([]string, 0, len(toggles))
	for w := range toggles {
		changes = append(changes, w)
	}
	sort.Strings(changes)

	var out pcWriter
	out.buf = make([]byte, 0, len(current))

	in := newPCTermList(current)
	inOK := in.Next()
	ci := 0
	for inOK && ci < len(changes) {
		word := in.Term()
		switch {
		case word < changes[ci]:
			out.append(word)
			inOK = in.Next()
		case word > changes[ci]:
			out.append(changes[ci])
			ci++
		default:
			// A toggled word that already exists is being removed.
			inOK = in.Next()
			ci++
		}
	}
	for inOK {
		out.append(in.Term())
		inOK = in.Next()
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	for ; ci < len(changes); ci++ {
		out.append(changes[ci])
	}
	return out.buf, nil
}
