package store

import (
	"errors"
	"sync"
)

// MemorySink keeps records in memory. Readers iterate a snapshot of the
// slice header, so streaming never blocks the writer.
type MemorySink struct {
	mu      sync.RWMutex
	records []*Record
	closed  bool
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{
		records: make([]*Record, 0),
	}
}

// Append persists one record
func (s *MemorySink) Append(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &WriteError{Err: errors.New("sink is closed")}
	}
	s.records = append(s.records, rec)
	return nil
}

// Stream visits records in creation order
func (s *MemorySink) Stream(fn func(*Record) error) error {
	s.mu.RLock()
	snapshot := s.records
	s.mu.RUnlock()

	for _, rec := range snapshot {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of persisted records
func (s *MemorySink) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close marks the sink closed; subsequent appends fail
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
