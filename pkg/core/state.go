package core

import "time"

// StoredResult is a finished async operation kept for later retrieval.
type StoredResult struct {
	ID         string
	Query      string
	Result     QueryResult
	FinishedAt time.Time
}

// ResultStore retains finished async results until fetched or evicted.
// Implementations must be safe for concurrent use.
type ResultStore interface {
	// Put stores a finished result, replacing any entry with the same ID.
	Put(res StoredResult) error

	// Get returns the stored result; ok is false when the ID is unknown.
	Get(id string) (res StoredResult, ok bool, err error)

	// Delete removes the entry with the given ID, if any.
	Delete(id string) error

	// Evict removes entries finished before cutoff and, when max > 0, the oldest
	// entries beyond max. It returns the number of removed entries.
	Evict(cutoff time.Time, max int) (int, error)

	// Len returns the number of stored results.
	Len() (int, error)

	Close() error
}
