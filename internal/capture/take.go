// Package capture implements the test-recording workflow: camera stream
// ownership, the per-take recording session state machine, and the
// take-aggregation policy that decides when a test may be finalized.
package capture

import "time"

// Take is one accepted recording within a capture session. Immutable once
// accepted; a rejected recording never becomes a Take.
type Take struct {
	// Index is 1-based and equals the aggregate take count at acceptance.
	Index      int
	Media      []byte
	MimeType   string
	Duration   time.Duration
	AcceptedAt time.Time
}

// SizeBytes returns the size of the raw media blob.
func (t Take) SizeBytes() int64 {
	return int64(len(t.Media))
}
