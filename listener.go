// Package cmdmetrics times client commands whose start and completion arrive
// as separate events linked only by a transient numeric request id. Context
// captured at start time (typically the resource a command touches) is held
// in a bounded concurrent cache until the completion event claims it; when
// the cache is over capacity or the context is gone, completions degrade to a
// fallback value instead of failing. Measurements are handed to a Recorder,
// which turns them into whatever the metrics backend understands.
package cmdmetrics

import (
	"context"
	"fmt"

	"github.com/nvasko/cmdmetrics/core"
)

// CommandListener correlates start and completion events and emits one timed
// observation per completed command. It owns no goroutines; every method is
// non-blocking and safe to call from the event source's threads.
//
// Example usage:
//
//	listener, err := cmdmetrics.NewCommandListener(recorder,
//	    cmdmetrics.WithMetricName("redis.commands"),
//	    cmdmetrics.WithCacheMaxSize(5000),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type CommandListener struct {
	config   *Config
	recorder Recorder
	cache    *core.BoundedStore
	logger   core.Logger

	// nil when the overflow warning is disabled via a non-positive interval
	overflowTracker *core.EveryNth
}

// NewCommandListener creates a listener that emits through recorder.
// Configuration errors are reported here, never later.
func NewCommandListener(recorder Recorder, opts ...Option) (*CommandListener, error) {
	if recorder == nil {
		return nil, fmt.Errorf("%w: recorder must not be nil", core.ErrMissingConfiguration)
	}

	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cache, err := core.NewBoundedStore(config.CacheMaxSize)
	if err != nil {
		return nil, err
	}

	var overflowTracker *core.EveryNth
	if config.OverflowLogInterval >= 1 {
		overflowTracker, err = core.NewEveryNth(config.OverflowLogInterval)
		if err != nil {
			return nil, err
		}
	}

	return &CommandListener{
		config:          config,
		recorder:        recorder,
		cache:           cache,
		logger:          config.Logger,
		overflowTracker: overflowTracker,
	}, nil
}

// Started records the context for a command that just began. When the cache
// is at capacity the context is dropped and, if enabled, a throttled warning
// is logged; the command's completion will then report the fallback name.
func (l *CommandListener) Started(id int64, collection string) {
	if l.cache.Admit(id, collection) {
		return
	}
	if l.overflowTracker == nil {
		return
	}
	// Cache over capacity - log every ~Nth for a balance of warning and not
	// spamming the logs.
	l.overflowTracker.Signal(func() {
		l.logger.Warn("In-flight command cache is full - completions are not keeping up with starts",
			map[string]interface{}{
				"metric":    l.config.MetricName,
				"max_size":  l.config.CacheMaxSize,
				"rejected":  l.cache.Stats()["rejected"],
				"cache_len": l.cache.Size(),
			})
	})
}

// Succeeded emits a SUCCESS observation for the completed command.
func (l *CommandListener) Succeeded(ctx context.Context, event CommandEvent) {
	l.timeCommand(ctx, event, StatusSuccess)
}

// Failed emits a FAILED observation for the completed command.
func (l *CommandListener) Failed(ctx context.Context, event CommandEvent) {
	l.timeCommand(ctx, event, StatusFailed)
}

func (l *CommandListener) timeCommand(ctx context.Context, event CommandEvent, status string) {
	collection, ok := l.cache.Take(event.RequestID)
	if !ok {
		collection = l.config.FallbackName
	}
	l.recorder.Record(ctx, Observation{
		Metric:      l.config.MetricName,
		Description: l.config.MetricDescription,
		Command:     event.Name,
		Collection:  collection,
		Status:      status,
		Elapsed:     event.Elapsed,
	})
}

// CacheSize returns the number of commands currently in flight, suitable for
// an observable gauge.
func (l *CommandListener) CacheSize() int {
	return l.cache.Size()
}

// CacheStats returns cache counters for monitoring.
func (l *CommandListener) CacheStats() map[string]interface{} {
	return l.cache.Stats()
}
