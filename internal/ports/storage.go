// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import "time"

// AccessStore persists the request audit log to durable storage.
// The backing store (bbolt) keeps records in insertion order. Concurrent reads
// are safe; writes are serialized by the adapter.
//
// Crash safety: Append and Prune must be transactional. A crash mid-write must
// not corrupt previously committed records.
type AccessStore interface {
	// Append stores one record at the end of the log.
	Append(rec AccessRecord) error

	// Recent returns up to n records, newest first.
	// Returns an empty slice (not an error) for an empty log.
	Recent(n int) ([]AccessRecord, error)

	// Prune deletes the oldest records so that at most keep remain.
	// Returns the number of records removed.
	Prune(keep int) (int, error)

	// Count returns the number of stored records.
	Count() (int, error)
}

// AccessSink receives one record per handled request. Implementations must
// not block the caller for long; the web adapter calls Record on the request
// goroutine after the response has been written.
type AccessSink interface {
	Record(rec AccessRecord)
}

// AccessRecord describes the outcome of one request.
// The token value and raw query string are never stored.
type AccessRecord struct {
	Time         time.Time     `json:"time"`
	Remote       string        `json:"remote"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	Status       int           `json:"status"`
	Outcome      string        `json:"outcome"`
	Bytes        int64         `json:"bytes"`
	Duration     time.Duration `json:"duration"`
	TokenPresent bool          `json:"token_present"`
	Cause        string        `json:"cause,omitempty"` // internal reason for 403/404, never sent to clients
}
