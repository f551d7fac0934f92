// Package history keeps a persistent log of finished remote operations in
// a Badger database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/logging"
	"github.com/FelixdelasPozas/SuperDuck/pkg/transfer"
)

var logger = logging.Get("history")

// Key layout:
//
//	op:<unix nanos, zero padded>:<id> -> Record (JSON)
//	id:<id>                           -> op key
//	m:__schema__                      -> Schema
const (
	prefixOp  = "op:"
	prefixID  = "id:"
	schemaKey = "m:__schema__"
)

// CurrentSchemaVersion is the layout version written by Open.
const CurrentSchemaVersion = 1

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("record not found")

// Record is one finished operation.
type Record struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Kind        string            `json:"kind"`
	Destination string            `json:"destination,omitempty"`
	Items       int               `json:"items"`
	Succeeded   int               `json:"succeeded"`
	Bytes       int64             `json:"bytes"`
	Failed      map[string]string `json:"failed,omitempty"`
	Aborted     bool              `json:"aborted"`
	Duration    time.Duration     `json:"duration"`
}

// Status summarizes the outcome in one word.
func (r Record) Status() string {
	switch {
	case r.Aborted:
		return "aborted"
	case len(r.Failed) > 0 && r.Succeeded == 0:
		return "failed"
	case len(r.Failed) > 0:
		return "partial"
	default:
		return "ok"
	}
}

// Schema holds database schema information.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the operation log.
type Store struct {
	db *badger.DB
}

// Open opens or creates the log in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if err == nil {
			var schema Schema
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &schema) }); err != nil {
				return err
			}
			if schema.Version > CurrentSchemaVersion {
				return fmt.Errorf("history schema version %d is newer than supported %d", schema.Version, CurrentSchemaVersion)
			}
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		return txn.Set([]byte(schemaKey), data)
	})
}

func opKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixOp, ts.UnixNano(), id))
}

// FromResult converts a transfer result into a record.
func FromResult(res transfer.Result) Record {
	rec := Record{
		ID:          res.Request.ID,
		Timestamp:   res.Finished.UTC(),
		Kind:        res.Request.Kind.String(),
		Destination: res.Request.Destination,
		Items:       len(res.Request.Items),
		Succeeded:   len(res.Succeeded),
		Bytes:       res.Bytes(),
		Aborted:     res.Aborted,
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if !res.Request.Created.IsZero() {
		rec.Duration = rec.Timestamp.Sub(res.Request.Created.UTC())
	}
	if len(res.Failed) > 0 {
		rec.Failed = make(map[string]string, len(res.Failed))
		for path, err := range res.Failed {
			rec.Failed[path] = err.Error()
		}
	}
	return rec
}

// Record stores the outcome of res and returns the stored record.
func (s *Store) Record(res transfer.Result) (Record, error) {
	rec := FromResult(res)
	if err := s.Put(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Put stores rec, replacing any record with the same id.
func (s *Store) Put(rec Record) error {
	if rec.ID == "" {
		return errors.New("record ID cannot be empty")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	key := opKey(rec.Timestamp, rec.ID)

	err = s.db.Update(func(txn *badger.Txn) error {
		idKey := []byte(prefixID + rec.ID)
		if item, err := txn.Get(idKey); err == nil {
			old, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := txn.Delete(old); err != nil {
				return err
			}
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(idKey, key)
	})
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	logger.Debug("recorded operation", "id", rec.ID, "kind", rec.Kind, "status", rec.Status())
	return nil
}

// List returns records newest first. A limit of 0 or less returns all.
func (s *Store) List(limit int) ([]Record, error) {
	records := []Record{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixOp)
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts at the last key <= seek
		seek := append([]byte(prefixOp), 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(prefixOp)); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				logger.Warn("skipping unreadable record", "key", string(it.Item().Key()), "err", err)
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (Record, error) {
	if id == "" {
		return Record{}, errors.New("record ID cannot be empty")
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixID + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
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
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) })
	})
	return rec, err
}

// Prune deletes records older than maxAge and returns how many went.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UnixNano()

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixOp)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, id, ok := parseOpKey(key)
			if !ok {
				continue
			}
			if ts >= cutoff {
				break
			}
			stale = append(stale, key, []byte(prefixID+id))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan history: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}

	n := len(stale) / 2
	logger.Info("pruned history", "records", n)
	return n, nil
}

func parseOpKey(key []byte) (int64, string, bool) {
	rest, ok := strings.CutPrefix(string(key), prefixOp)
	if !ok {
		return 0, "", false
	}
	nanos, id, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return ts, id, true
}
