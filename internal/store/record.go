// Package store persists one immutable record per driver iteration.
// Records are append-only: a single writer appends while readers stream in
// creation order without blocking it.
package store

// Record is one persisted iteration: the submitted batch and its results.
// Never mutated after Append. Record content is fully determined by the
// run's seed and configuration so that replayed runs persist identical
// records.
type Record struct {
	RunID       string      `json:"run_id"`
	Iteration   int         `json:"iteration"`
	Batch       [][]float64 `json:"batch"`
	Scores      []float64   `json:"scores"`
	Failed      []bool      `json:"failed"`
	FailReasons []string    `json:"fail_reasons,omitempty"`
}

// Sink is the append-only record store. Append is the only mutator and is
// called by a single writer; Stream may run concurrently with appends.
type Sink interface {
	// Append persists one record; fails with *WriteError when the
	// underlying medium is unavailable.
	Append(rec *Record) error

	// Stream visits records in creation order. Returning a non-nil error
	// from fn stops the stream and propagates the error.
	Stream(fn func(*Record) error) error

	// Len returns the number of persisted records
	Len() (int, error)

	// Close releases the underlying storage
	Close() error
}

// WriteError indicates the persistence medium rejected an append
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "record write failed: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
