package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

const recordKeyPrefix = "rec/"

// BadgerConfig holds configuration for a badger-backed sink
type BadgerConfig struct {
	// Path is the directory for the database files. Ignored when InMemory
	// is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability
	SyncWrites bool

	// Logger receives badger's internal logging; nil disables it
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to badger's Logger interface
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerSink persists records in an embedded badger database. Keys embed
// the run ID and a zero-padded iteration index so badger's key order is
// creation order. Appends run in their own transactions; readers see
// consistent snapshots without blocking the writer.
type BadgerSink struct {
	db *badger.DB
}

// OpenBadger creates and opens a badger-backed sink
func OpenBadger(cfg BadgerConfig) (*BadgerSink, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("path is required for a persistent record store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create record store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	return &BadgerSink{db: db}, nil
}

func recordKey(runID string, iteration int) []byte {
	return []byte(fmt.Sprintf("%s%s/%012d", recordKeyPrefix, runID, iteration))
}

// Append persists one record
func (s *BadgerSink) Append(rec *Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return &WriteError{Err: fmt.Errorf("encode record: %w", err)}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.RunID, rec.Iteration), value)
	})
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// Stream visits all records in key (creation) order
func (s *BadgerSink) Stream(fn func(*Record) error) error {
	return s.streamPrefix([]byte(recordKeyPrefix), fn)
}

// StreamRun visits one run's records in iteration order
func (s *BadgerSink) StreamRun(runID string, fn func(*Record) error) error {
	return s.streamPrefix([]byte(recordKeyPrefix+runID+"/"), fn)
}

func (s *BadgerSink) streamPrefix(prefix []byte, fn func(*Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var rec Record
				if err := json.Unmarshal(value, &rec); err != nil {
					return fmt.Errorf("decode record %s: %w", it.Item().Key(), err)
				}
				return fn(&rec)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of persisted records
func (s *BadgerSink) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close releases the database
func (s *BadgerSink) Close() error {
	return s.db.Close()
}
