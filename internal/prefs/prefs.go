// Package prefs is the persistent key-value preference store. Values are opaque
// bytes; callers encrypt secrets before storing them.
package prefs

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get for keys that were never set or were deleted.
var ErrNotFound = errors.New("preference not found")

// Preferences stores small values by key. SetMany and Delete are atomic.
type Preferences interface {
	Get(key string) ([]byte, error)
	SetMany(values map[string][]byte) error
	Delete(keys ...string) error
	Reset() error
}

// Badger implements Preferences on a badger database.
type Badger struct {
	db *badger.DB
}

// Open opens or creates the preference store in dir.
func Open(dir string, log *zap.SugaredLogger) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating preferences directory: %w", err)
	}
	return open(badger.DefaultOptions(dir), log)
}

// OpenInMemory opens a preference store that is discarded on Close.
func OpenInMemory(log *zap.SugaredLogger) (*Badger, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), log)
}

func open(opts badger.Options, log *zap.SugaredLogger) (*Badger, error) {
	if log != nil {
		opts = opts.WithLogger(badgerLogger{log.Named("prefs")})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts.WithNumVersionsToKeep(1))
	if err != nil {
		return nil, fmt.Errorf("opening preferences: %w", err)
	}
	return &Badger{db: db}, nil
}

// Get returns a copy of the value stored under key.
func (b *Badger) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading preference %q: %w", key, err)
	}
	return value, nil
}

// SetMany stores every value in one transaction.
func (b *Badger) SetMany(values map[string][]byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for k, v := range values {
			if err := txn.Set([]byte(k), v); err != nil {
				return fmt.Errorf("writing preference %q: %w", k, err)
			}
		}
		return nil
	})
}

// Delete removes keys in one transaction. Missing keys are ignored.
func (b *Badger) Delete(keys ...string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return fmt.Errorf("deleting preference %q: %w", k, err)
			}
		}
		return nil
	})
}

// Reset removes every preference.
func (b *Badger) Reset() error {
	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("resetting preferences: %w", err)
	}
	return nil
}

// Close flushes and closes the store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger's logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
