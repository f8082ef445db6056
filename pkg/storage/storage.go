package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a key does not exist (or has expired)
var ErrNotFound = errors.New("key not found")

// Store represents a BadgerDB storage instance
type Store struct {
	db *badger.DB
}

// New creates a new BadgerDB storage instance
func New(dataDir string) (*Store, error) {
	// Ensure the data directory exists
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get absolute path")
	}

	// Open the Badger database
	opts := badger.DefaultOptions(absPath)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open BadgerDB")
	}

	logger.Global.Info("BadgerDB opened at %s", absPath)
	return &Store{db: db}, nil
}

// NewInMemory creates a store that lives only in memory, used by tests
func NewInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open in-memory BadgerDB")
	}
	return &Store{db: db}, nil
}

// Close closes the BadgerDB database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Update runs fn in a read-write transaction. All writes made through tx are
// committed together, or none of them are if fn returns an error.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// View runs fn in a read-only transaction
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// Set stores a value for a key
func (s *Store) Set(key string, value interface{}) error {
	return s.Update(func(tx *Tx) error {
		return tx.Set(key, value)
	})
}

// SetWithTTL stores a value that expires after ttl
func (s *Store) SetWithTTL(key string, value interface{}, ttl time.Duration) error {
	return s.Update(func(tx *Tx) error {
		return tx.SetWithTTL(key, value, ttl)
	})
}

// Get retrieves a value for a key
func (s *Store) Get(key string, value interface{}) error {
	return s.View(func(tx *Tx) error {
		return tx.Get(key, value)
	})
}

// Delete removes a key from the database
func (s *Store) Delete(key string) error {
	return s.Update(func(tx *Tx) error {
		return tx.Delete(key)
	})
}

// List returns all keys with a given prefix
func (s *Store) List(prefix string) ([]string, error) {
	var keys []string
	err := s.View(func(tx *Tx) error {
		var err error
		keys, err = tx.List(prefix)
		return err
	})
	return keys, err
}

// RunGC runs garbage collection on the database
func (s *Store) RunGC() error {
	return s.db.RunValueLogGC(0.5)
}

// StartGCRoutine starts a goroutine that periodically runs garbage collection
// until stop is closed
func (s *Store) StartGCRoutine(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				err := s.RunGC()
				// Only log when GC actually did something
				if err != nil && err != badger.ErrNoRewrite {
					logger.Global.Error("BadgerDB GC error: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
	logger.Global.Info("Started BadgerDB GC routine with interval %v", interval)
}

// Tx is a single badger transaction with JSON-encoded values
type Tx struct {
	txn *badger.Txn
}

// Set stores a value for a key
func (t *Tx) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value")
	}
	return errors.Wrapf(t.txn.Set([]byte(key), data), "failed to set %s", key)
}

// SetWithTTL stores a value that expires after ttl
func (t *Tx) SetWithTTL(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value")
	}
	entry := badger.NewEntry([]byte(key), data).WithTTL(ttl)
	return errors.Wrapf(t.txn.SetEntry(entry), "failed to set %s", key)
}

// Get retrieves a value for a key, returning ErrNotFound if it is missing
func (t *Tx) Get(key string, value interface{}) error {
	item, err := t.txn.Get([]byte(key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return errors.Wrapf(ErrNotFound, "get %s", key)
		}
		return errors.Wrap(err, "failed to get value")
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return errors.Wrap(err, "failed to read value")
	}
	return errors.Wrapf(json.Unmarshal(data, value), "failed to unmarshal %s", key)
}

// Exists reports whether key is present
func (t *Tx) Exists(key string) (bool, error) {
	_, err := t.txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to check key")
	}
	return true, nil
}

// Delete removes a key
func (t *Tx) Delete(key string) error {
	return errors.Wrapf(t.txn.Delete([]byte(key)), "failed to delete %s", key)
}

// List returns all keys with a given prefix, in key order
func (t *Tx) List(prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	prefixBytes := []byte(prefix)
	for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys, nil
}

// DeletePrefix removes every key with the given prefix and returns how many were removed
func (t *Tx) DeletePrefix(prefix string) (int, error) {
	keys, err := t.List(prefix)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := t.Delete(key); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// NextID increments and returns the counter for kind. Ids start at 1.
func (t *Tx) NextID(kind string) (int64, error) {
	key := "seq:" + kind
	var current int64
	if err := t.Get(key, &current); err != nil && !IsNotFound(err) {
		return 0, err
	}
	current++
	if err := t.Set(key, current); err != nil {
		return 0, err
	}
	return current, nil
}

// IsNotFound reports whether err was caused by a missing key
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// Key joins a kind and an id so that lexicographic key order equals id order
func Key(kind string, id int64) string {
	return fmt.Sprintf("%s:%010d", kind, id)
}

// ChildKey builds a key for a record that belongs to a parent, e.g. ingredient:<recipe>:<pos>
func ChildKey(kind string, parentID, id int64) string {
	return fmt.Sprintf("%s:%010d:%010d", kind, parentID, id)
}

// ChildPrefix is the prefix of every ChildKey of a parent
func ChildPrefix(kind string, parentID int64) string {
	return fmt.Sprintf("%s:%010d:", kind, parentID)
}
