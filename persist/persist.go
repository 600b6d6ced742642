// Package persist stores routing table snapshots between runs of the
// software. Route and neighbour ordering information must be stable across
// restarts for the advertisement algorithm to function correctly,
// particularly with respect to sybil resistance.
package persist

import "github.com/getlantern/kaleidoscope/routing"

// Mechanism is a method for storing routing table state between runs.
type Mechanism interface {
	// Store persists a routing table snapshot.
	Store(snapshot routing.Snapshot) error

	// Load retrieves a snapshot suitable for constructing a table.
	Load() (routing.Snapshot, error)
}

// IOError wraps any failure raised by a persistence mechanism, including
// documents that do not decode to a valid snapshot.
type IOError struct {
	Err error
}

func (e *IOError) Error() string {
	return "routing persistence: " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}
