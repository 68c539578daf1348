// Package history persists completed dictations in an embedded Badger
// store so the user can review, search and export past transcriptions.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// Key layout: "e:<inverse-nanots>:<id>" orders entries newest-first under
// lexicographic iteration; "i:<id>" points back at the primary key.
const (
	entryPrefix = "e:"
	idPrefix    = "i:"
)

// Entry is one recorded dictation.
type Entry struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Text      string        `json:"text"`
	Language  string        `json:"language,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	AudioPath string        `json:"audio_path,omitempty"`
}

// Store is a Badger-backed history database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add persists an entry, assigning its ID and timestamp when unset, and
// returns the stored value.
func (s *Store) Add(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	val, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal entry: %w", err)
	}
	key := entryKey(e)

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, val); err != nil {
			return err
		}
		return txn.Set([]byte(idPrefix+e.ID), key)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("store entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	return s.scan(limit, nil)
}

// Search returns up to limit entries whose text contains q,
// case-insensitively, newest first.
func (s *Store) Search(q string, limit int) ([]Entry, error) {
	needle := strings.ToLower(q)
	return s.scan(limit, func(e Entry) bool {
		return strings.Contains(strings.ToLower(e.Text), needle)
	})
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (Entry, error) {
	var e Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(idPrefix + id))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// Delete removes the entry with the given ID.
func (s *Store) Delete(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(idPrefix + id))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete([]byte(idPrefix + id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Clear removes all entries.
func (s *Store) Clear() error {
	if err := s.db.DropPrefix([]byte(entryPrefix), []byte(idPrefix)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// Export writes every entry to w as plain text, newest first, and
// returns the number exported.
func (s *Store) Export(w io.Writer) (int, error) {
	entries, err := s.Recent(0)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		lang := e.Language
		if lang == "" {
			lang = "unknown"
		}
		if _, err := fmt.Fprintf(w, "[%s] (%s)\n%s\n%s\n\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			strings.ToUpper(lang),
			e.Text,
			strings.Repeat("=", 72),
		); err != nil {
			return 0, fmt.Errorf("export: %w", err)
		}
	}
	return len(entries), nil
}

// scan iterates entries newest-first, keeping those that match. A zero or
// negative limit means unlimited.
func (s *Store) scan(limit int, match func(Entry) bool) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(out) >= limit {
				return nil
			}
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			if match == nil || match(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	return out, nil
}

// entryKey builds the newest-first primary key for e.
func entryKey(e Entry) []byte {
	inverse := uint64(math.MaxInt64 - e.CreatedAt.UnixNano())
	return []byte(fmt.Sprintf("%s%020d:%s", entryPrefix, inverse, e.ID))
}
