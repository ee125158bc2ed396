// Package store persists small JSON records in the operating system's credential storage.
//
// The package uses [keyring]'s platform-agnostic interface, so records end up in Keychain on
// macOS, the Secret Service on Linux, wincred on Windows, or an encrypted file when no native
// backend is available.
//
// Every operation is best-effort: storage failures are logged and swallowed rather than
// propagated. The client must keep working when the credential store is unavailable; the worst
// outcome of a lost record is a forced re-login.
package store

import (
	"encoding/json"

	"github.com/99designs/keyring"

	"github.com/tdsapp/tdsclient/internal/log"
)

// ServiceName identifies this application's records to the platform credential store.
const ServiceName = "com.tdsapp.tdsclient"

// Store wraps an open keyring.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the credential storage described by cfg.
func Open(cfg keyring.Config) (*Store, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = ServiceName
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{ring: ring}, nil
}

// NewWithKeyring returns a Store that uses ring directly. Tests pass a keyring.NewArrayKeyring.
func NewWithKeyring(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// SetJSON serializes value and writes it under key. Failures are logged, not returned.
func (s *Store) SetJSON(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warning("credential store: failed to encode %s: %s", key, err)
		return
	}
	if err := s.ring.Set(keyring.Item{Key: key, Data: data}); err != nil {
		log.Warning("credential store: failed to write %s: %s", key, err)
	}
}

// GetJSON reads the record under key into value. It reports false when the record is absent,
// unreadable, or not valid JSON; value is left untouched in that case.
func (s *Store) GetJSON(key string, value interface{}) bool {
	item, err := s.ring.Get(key)
	if err != nil {
		if err != keyring.ErrKeyNotFound {
			log.Warning("credential store: failed to read %s: %s", key, err)
		}
		return false
	}
	if err := json.Unmarshal(item.Data, value); err != nil {
		log.Warning("credential store: discarding malformed record %s: %s", key, err)
		return false
	}
	return true
}

// Delete removes the record under key. Deleting an absent record is not an error; other
// failures are logged, not returned.
func (s *Store) Delete(key string) {
	if err := s.ring.Remove(key); err != nil && err != keyring.ErrKeyNotFound {
		log.Warning("credential store: failed to delete %s: %s", key, err)
	}
}
