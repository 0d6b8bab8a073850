package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"bondcurve/storage"
)

// ErrReadOnly is returned when a write reaches a read-only manager.
var ErrReadOnly = errors.New("state: manager is read-only")

// Manager stages keyed RLP records over a storage backend. Writes stay in
// the overlay until Commit flushes them as one atomic batch; Discard drops
// them. A Manager serves a single call and is not safe for concurrent use.
type Manager struct {
	db       storage.Database
	pending  map[string][]byte
	deleted  map[string]struct{}
	readOnly bool
}

// NewManager creates a state manager staging writes over db.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

// NewReadOnlyManager creates a manager that rejects every write.
func NewReadOnlyManager(db storage.Database) *Manager {
	m := NewManager(db)
	m.readOnly = true
	return m
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) read(hashed []byte) ([]byte, error) {
	id := string(hashed)
	if _, ok := m.deleted[id]; ok {
		return nil, nil
	}
	if value, ok := m.pending[id]; ok {
		return value, nil
	}
	if m.db == nil {
		return nil, nil
	}
	value, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the backend.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if m.readOnly {
		return ErrReadOnly
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	id := string(kvKey(key))
	delete(m.deleted, id)
	m.pending[id] = encoded
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.read(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if m.readOnly {
		return ErrReadOnly
	}
	id := string(kvKey(key))
	delete(m.pending, id)
	m.deleted[id] = struct{}{}
	return nil
}

// Dirty reports the number of staged mutations.
func (m *Manager) Dirty() int {
	return len(m.pending) + len(m.deleted)
}

// Commit flushes every staged mutation in a single batch and resets the
// overlay. Nothing is written when the batch fails.
func (m *Manager) Commit() error {
	if m.readOnly {
		return ErrReadOnly
	}
	if m.Dirty() == 0 {
		return nil
	}
	if m.db == nil {
		return fmt.Errorf("state: no backing database")
	}
	batch := make([]storage.Write, 0, m.Dirty())
	for id, value := range m.pending {
		batch = append(batch, storage.Write{Key: []byte(id), Value: value})
	}
	for id := range m.deleted {
		batch = append(batch, storage.Write{Key: []byte(id), Delete: true})
	}
	sort.Slice(batch, func(i, j int) bool {
		return string(batch[i].Key) < string(batch[j].Key)
	})
	if err := m.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.Discard()
	return nil
}

// Discard drops every staged mutation.
func (m *Manager) Discard() {
	m.pending = make(map[string][]byte)
	m.deleted = make(map[string]struct{})
}
