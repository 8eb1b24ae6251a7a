package core

import (
	"fmt"
	"sync/atomic"
)

// EveryNth counts occurrences of a situation of interest and invokes an
// operation every Nth time the situation occurs. The common use is logging a
// warning once per N occurrences instead of flooding the log.
//
// Uses non-blocking synchronization and is safe for concurrent callers.
type EveryNth struct {
	count atomic.Int64
	nth   int64
}

// NewEveryNth creates a counter that triggers on every nth occurrence.
// nth must be positive; nth == 1 triggers on every call.
func NewEveryNth(nth int) (*EveryNth, error) {
	if nth < 1 {
		return nil, fmt.Errorf("%w: nth must be > 0, got %d", ErrInvalidConfiguration, nth)
	}
	return &EveryNth{nth: int64(nth)}, nil
}

// Signal records one occurrence and invokes fn if this occurrence is the one
// in its window that should trigger. For any total order of k calls, fn runs
// on calls 1, nth+1, 2*nth+1, and so on; exactly one caller observes each
// window regardless of interleaving.
func (e *EveryNth) Signal(fn func()) {
	for {
		// Only one caller ever moves the counter off a given value, so the
		// caller that wins the CAS from zero is the one that invokes fn.
		prev := e.count.Load()
		next := prev + 1
		if next == e.nth {
			next = 0
		}
		if e.count.CompareAndSwap(prev, next) {
			if prev == 0 {
				fn()
			}
			return
		}
	}
}
