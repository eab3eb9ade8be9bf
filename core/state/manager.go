package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"farmledger/storage"
)

// ErrTxClosed is returned when a transaction is used after Commit or Discard.
var ErrTxClosed = errors.New("state: transaction closed")

// Manager owns the persisted ledger state. All reads and writes happen through
// a Tx so that a failed operation never leaves partial writes behind.
type Manager struct {
	db storage.Database
	mu sync.Mutex
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a write overlay on top of the committed state. Only one
// transaction may commit at a time; callers serialise operations themselves.
func (m *Manager) Begin() *Tx {
	return &Tx{mgr: m, writes: make(map[string][]byte)}
}

// View runs fn against a throwaway overlay that is always discarded.
func (m *Manager) View(fn func(tx *Tx) error) error {
	tx := m.Begin()
	defer tx.Discard()
	return fn(tx)
}

// Update runs fn inside a transaction and commits it when fn succeeds.
func (m *Manager) Update(fn func(tx *Tx) error) error {
	tx := m.Begin()
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// Tx buffers writes in memory until Commit flushes them in a single batch.
type Tx struct {
	mgr    *Manager
	writes map[string][]byte
	closed bool
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}
	if v, ok := tx.writes[string(key)]; ok {
		return v, nil
	}
	v, err := tx.mgr.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (tx *Tx) put(key, value []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.writes[string(key)] = append([]byte(nil), value...)
	return nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return tx.put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// out. The boolean return value indicates whether the key existed.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := tx.get(kvKey(key))
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

// Pending reports the number of buffered writes.
func (tx *Tx) Pending() int {
	return len(tx.writes)
}

// Commit writes every buffered entry to the database atomically.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true
	if len(tx.writes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tx.writes))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx.mgr.mu.Lock()
	defer tx.mgr.mu.Unlock()
	batch := tx.mgr.db.NewBatch()
	for _, k := range keys {
		batch.Put([]byte(k), tx.writes[k])
	}
	tx.writes = nil
	return batch.Write()
}

// Discard drops every buffered write.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.writes = nil
}
