// Package history provides Badger DB-backed storage for completed kernel
// transactions.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

// Key layout: t:<RFC3339Nano started>:<id> -> Record. The timestamp prefix
// gives chronological iteration order, and id:<id> maps back to the full key
// for direct lookup.
const (
	prefixTx = "t:"
	prefixID = "id:"
)

// ErrNotFound is returned when a transaction id is not in the store.
var ErrNotFound = errors.New("transaction not found")

// Record is one stored transaction outcome.
type Record struct {
	ID        string    `json:"id"`
	Started   time.Time `json:"started"`
	Elapsed   int64     `json:"elapsed_ms"`
	Installed []string  `json:"installed,omitempty"`
	Removed   []string  `json:"removed,omitempty"`
	Skipped   []string  `json:"skipped,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
	CommitErr string    `json:"commit_err,omitempty"`
}

// Ok reports whether the transaction completed without failures.
func (r Record) Ok() bool {
	return len(r.Errors) == 0 && r.CommitErr == ""
}

// fromResult converts a worker outcome into its stored form.
func fromResult(result types.ApplyResult) Record {
	rec := Record{
		ID:        result.ID,
		Started:   result.Started,
		Elapsed:   result.Elapsed.Milliseconds(),
		Installed: result.Installed,
		Removed:   result.Removed,
		Skipped:   result.Skipped,
	}
	for _, ce := range result.Errors {
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s %s: %v", ce.Kind, ce.Package, ce.Err))
	}
	if result.CommitErr != nil {
		rec.CommitErr = result.CommitErr.Error()
	}
	return rec
}

// Store is the transaction history backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put records a completed transaction.
func (s *Store) Put(result types.ApplyResult) error {
	rec := fromResult(result)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := txKey(rec.Started, rec.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixID+rec.ID), key)
	})
}

// Get retrieves a transaction by id.
func (s *Store) Get(id string) (Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixID + id))
		if err != nil {
			return err
		}
		var key []byte
		if err := item.Value(func(val []byte) error {
			key = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns transactions newest first, up to limit. A zero limit returns
// everything.
func (s *Store) List(limit int) ([]Record, error) {
	var records []Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration from just past the prefix range.
		seek := []byte(prefixTx + "\xff")
		prefix := []byte(prefixTx)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Clean deletes transactions older than the retention period and returns
// how many were removed.
func (s *Store) Clean(retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	var removed int

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixTx)
		var stale [][]byte
		var staleIDs []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				continue
			}
			if rec.Started.Before(cutoff) {
				stale = append(stale, it.Item().KeyCopy(nil))
				staleIDs = append(staleIDs, rec.ID)
			}
		}

		for i, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Delete([]byte(prefixID + staleIDs[i])); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Count returns the number of stored transactions.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixTx)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// txKey builds the chronological transaction key.
func txKey(started time.Time, id string) []byte {
	return []byte(prefixTx + started.UTC().Format(time.RFC3339Nano) + ":" + id)
}
