package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
)

// Pebble persists client state in a PebbleDB key-value store. Writes are
// synced so a session survives an abrupt exit.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the store at dir.
func OpenPebble(dir string) (*Pebble, error) {
	if dir == "" {
		return nil, errors.New("store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Pebble{db: db}, nil
}

func (s *Pebble) Get(key string) ([]byte, bool) {
	val, closer, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	out := append([]byte(nil), val...)
	_ = closer.Close()
	return out, true
}

func (s *Pebble) Set(key string, value []byte) error {
	return s.db.Set([]byte(key), value, pebble.Sync)
}

func (s *Pebble) Remove(key string) error {
	return s.db.Delete([]byte(key), pebble.Sync)
}

func (s *Pebble) Close() error {
	return s.db.Close()
}
