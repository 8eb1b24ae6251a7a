// Package redishook instruments a go-redis client through a
// cmdmetrics.CommandListener. Each command gets a transient request id; the
// key it touches is cached at start time and resolved again when the command
// completes, so the emitted timer carries the keyspace even though go-redis
// reports completion separately from submission.
package redishook

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nvasko/cmdmetrics"
	"github.com/nvasko/cmdmetrics/core"
)

type ctxKey struct{}

type inflight struct {
	ids []int64
	at  time.Time
}

// MetricsHook implements redis.Hook. Attach it with client.AddHook.
type MetricsHook struct {
	listener *cmdmetrics.CommandListener
	nextID   atomic.Int64
}

// New creates a hook that reports through the given listener.
func New(listener *cmdmetrics.CommandListener) (*MetricsHook, error) {
	if listener == nil {
		return nil, fmt.Errorf("%w: listener must not be nil", core.ErrMissingConfiguration)
	}
	return &MetricsHook{listener: listener}, nil
}

// BeforeProcess registers the command's key under a fresh request id.
func (h *MetricsHook) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	id := h.nextID.Add(1)
	if key := firstKey(cmd); key != "" {
		h.listener.Started(id, key)
	}
	return context.WithValue(ctx, ctxKey{}, &inflight{ids: []int64{id}, at: time.Now()}), nil
}

// AfterProcess times the completed command. redis.Nil is a miss, not a failure.
func (h *MetricsHook) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	state, ok := ctx.Value(ctxKey{}).(*inflight)
	if !ok {
		return nil
	}
	h.complete(ctx, state.ids[0], cmd, time.Since(state.at))
	return nil
}

// BeforeProcessPipeline registers every command in the pipeline.
func (h *MetricsHook) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	ids := make([]int64, len(cmds))
	for i, cmd := range cmds {
		ids[i] = h.nextID.Add(1)
		if key := firstKey(cmd); key != "" {
			h.listener.Started(ids[i], key)
		}
	}
	return context.WithValue(ctx, ctxKey{}, &inflight{ids: ids, at: time.Now()}), nil
}

// AfterProcessPipeline times each command with the pipeline's round trip.
func (h *MetricsHook) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	state, ok := ctx.Value(ctxKey{}).(*inflight)
	if !ok || len(state.ids) != len(cmds) {
		return nil
	}
	elapsed := time.Since(state.at)
	for i, cmd := range cmds {
		h.complete(ctx, state.ids[i], cmd, elapsed)
	}
	return nil
}

func (h *MetricsHook) complete(ctx context.Context, id int64, cmd redis.Cmder, elapsed time.Duration) {
	event := cmdmetrics.CommandEvent{
		RequestID: id,
		Name:      cmd.Name(),
		Elapsed:   elapsed,
	}
	if err := cmd.Err(); err != nil && err != redis.Nil {
		h.listener.Failed(ctx, event)
		return
	}
	h.listener.Succeeded(ctx, event)
}

// firstKey returns the command's first key argument, or "" for commands that
// take none (PING, FLUSHDB, ...).
func firstKey(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return ""
	}
	if s, ok := args[1].(string); ok {
		return s
	}
	return fmt.Sprint(args[1])
}
