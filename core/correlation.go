package core

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// BoundedStore associates in-flight request ids with an opaque context value
// (typically a resource name captured from the start event) until the matching
// completion event claims it. Admission is capacity-checked instead of
// evicting: once the store is full, new entries are rejected and the caller is
// expected to degrade to a fallback value at completion time.
//
// The size check and the insert are two separate steps. Racing admitters near
// the capacity boundary can transiently push occupancy past the limit by at
// most one entry per racing goroutine; the store self-corrects as entries are
// taken. Locking the check-and-insert pair would serialize every start event,
// which is not acceptable on the hot path.
type BoundedStore struct {
	entries sync.Map // int64 -> string
	size    atomic.Int64
	maxSize int64

	// Stats (atomic for thread-safety)
	admitted int64
	rejected int64
	taken    int64
	missed   int64
}

// NewBoundedStore creates a store that holds at most maxSize in-flight
// entries. maxSize must be positive.
func NewBoundedStore(maxSize int) (*BoundedStore, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("%w: store max size must be set to a positive value, got %d",
			ErrInvalidConfiguration, maxSize)
	}
	return &BoundedStore{maxSize: int64(maxSize)}, nil
}

// Admit stores name under id if the store has room. It returns false, storing
// nothing, when the store is at capacity. Rejection is a normal outcome under
// load, not a failure.
//
// Ids are expected to be unique among in-flight operations; if a live id is
// reused the later write wins.
func (s *BoundedStore) Admit(id int64, name string) bool {
	if s.size.Load() >= s.maxSize {
		atomic.AddInt64(&s.rejected, 1)
		return false
	}
	if _, loaded := s.entries.Swap(id, name); !loaded {
		s.size.Add(1)
	}
	atomic.AddInt64(&s.admitted, 1)
	return true
}

// Take removes the entry for id and returns its value. The second return is
// false when no entry exists, which is the expected result both for ids that
// were never admitted and for ids already taken.
func (s *BoundedStore) Take(id int64) (string, bool) {
	v, loaded := s.entries.LoadAndDelete(id)
	if !loaded {
		atomic.AddInt64(&s.missed, 1)
		return "", false
	}
	s.size.Add(-1)
	atomic.AddInt64(&s.taken, 1)
	return v.(string), true
}

// Size returns the current occupancy.
func (s *BoundedStore) Size() int {
	return int(s.size.Load())
}

// Stats returns store counters for monitoring.
func (s *BoundedStore) Stats() map[string]interface{} {
	return map[string]interface{}{
		"size":     s.size.Load(),
		"max_size": s.maxSize,
		"admitted": atomic.LoadInt64(&s.admitted),
		"rejected": atomic.LoadInt64(&s.rejected),
		"taken":    atomic.LoadInt64(&s.taken),
		"missed":   atomic.LoadInt64(&s.missed),
	}
}
