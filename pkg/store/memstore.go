package store

import (
	"github.com/tchap/go-patricia/v2/patricia"
)

// MemStore keeps the committed state in a patricia trie keyed by the raw
// spelling keys, with buffered writes in a side map. Deletions buffer as nil
// tombstones. Not safe for concurrent writers; concurrent readers are fine
// between flushes.
type MemStore struct {
	committed *patricia.Trie
	pending   map[string][]byte
	revision  uint64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		committed: patricia.NewTrie(),
		pending:   make(map[string][]byte),
	}
}

// Get returns the buffered value for key when one exists, else the committed
// one.
func (s *MemStore) Get(key []byte) ([]byte, bool, error) {
	if v, ok := s.pending[string(key)]; ok {
		if v == nil {
			return nil, false, nil
		}
		return v, true, nil
	}
	item := s.committed.Get(patricia.Prefix(key))
	if item == nil {
		return nil, false, nil
	}
	return item.([]byte), true, nil
}

// Put buffers an insert-or-replace for key.
func (s *MemStore) Put(key, value []byte) {
	buf := make([]byte, len(value))
	copy(buf, value)
	s.pending[string(key)] = buf
}

// Delete buffers a removal of key.
func (s *MemStore) Delete(key []byte) {
	s.pending[string(key)] = nil
}

// Modified reports whether writes are buffered.
func (s *MemStore) Modified() bool {
	return len(s.pending) > 0
}

// Flush applies the buffer to the trie and bumps the revision.
func (s *MemStore) Flush() error {
	for key, value := range s.pending {
		if value == nil {
			s.committed.Delete(patricia.Prefix(key))
		} else {
			s.committed.Set(patricia.Prefix(key), value)
		}
	}
	s.pending = make(map[string][]byte)
	s.revision++
	return nil
}

// Cancel drops the buffer.
func (s *MemStore) Cancel() {
	s.pending = make(map[string][]byte)
}

// Revision returns the committed revision counter.
func (s *MemStore) Revision() uint64 {
	return s.revision
}
