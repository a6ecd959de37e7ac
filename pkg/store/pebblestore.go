package store

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/pebble"
)

// PebbleStore persists the spelling data in a pebble database. Buffered
// writes live in a side map until Flush collects them into one pebble batch
// committed with sync, so a crash before Flush leaves the previous revision
// intact.
type PebbleStore struct {
	db       *pebble.DB
	pending  map[string][]byte
	revision uint64
}

// revisionKey tracks the flush counter inside the database itself, so
// Revision survives reopening.
var revisionKey = []byte("\x00REVISION")

// OpenPebble opens (or creates) a pebble-backed store at dir.
func OpenPebble(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble store: %w", err)
	}

	s := &PebbleStore{
		db:      db,
		pending: make(map[string][]byte),
	}

	raw, closer, err := db.Get(revisionKey)
	switch {
	case err == nil:
		if rev, _, uerr := UnpackUint(raw); uerr == nil {
			s.revision = rev
		}
		closer.Close()
	case errors.Is(err, pebble.ErrNotFound):
		// Fresh database.
	default:
		db.Close()
		return nil, fmt.Errorf("reading store revision: %w", err)
	}

	log.Debugf("opened pebble store at %s (revision %d)", dir, s.revision)
	return s, nil
}

// Get returns the buffered value for key when one exists, else the durable
// one.
func (s *PebbleStore) Get(key []byte) ([]byte, bool, error) {
	if v, ok := s.pending[string(key)]; ok {
		if v == nil {
			return nil, false, nil
		}
		return v, true, nil
	}

	raw, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store read: %w", err)
	}
	value := make([]byte, len(raw))
	copy(value, raw)
	closer.Close()
	return value, true, nil
}

// Put buffers an insert-or-replace for key.
func (s *PebbleStore) Put(key, value []byte) {
	buf := make([]byte, len(value))
	copy(buf, value)
	s.pending[string(key)] = buf
}

// Delete buffers a removal of key.
func (s *PebbleStore) Delete(key []byte) {
	s.pending[string(key)] = nil
}

// Modified reports whether writes are buffered.
func (s *PebbleStore) Modified() bool {
	return len(s.pending) > 0
}

// Flush commits the buffer as one synced batch and bumps the revision. On
// error the buffer is kept so the caller may retry or Cancel.
func (s *PebbleStore) Flush() error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for key, value := range s.pending {
		var err error
		if value == nil {
			err = batch.Delete([]byte(key), nil)
		} else {
			err = batch.Set([]byte(key), value, nil)
		}
		if err != nil {
			return fmt.Errorf("store batch: %w", err)
		}
	}
	if err := batch.Set(revisionKey, PackUint(nil, s.revision+1), nil); err != nil {
		return fmt.Errorf("store batch: %w", err)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("store flush: %w", err)
	}
	s.pending = make(map[string][]byte)
	s.revision++
	return nil
}

// Cancel drops the buffer.
func (s *PebbleStore) Cancel() {
	s.pending = make(map[string][]byte)
}

// Revision returns the committed revision counter.
func (s *PebbleStore) Revision() uint64 {
	return s.revision
}

// Close closes the underlying database. Buffered writes are lost.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
