package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/jielong/internal/chain"
	"github.com/MrWong99/jielong/internal/observe"
	"github.com/MrWong99/jielong/internal/resilience"
	"github.com/MrWong99/jielong/pkg/stats"
)

const (
	defaultQueueSize = 256
	writeTimeout     = 5 * time.Second
)

// Compile-time check.
var _ chain.TurnObserver = (*Recorder)(nil)

// Recorder writes accepted turns to a [stats.Store] in the background. The
// engine calls ObserveTurn with a channel lock held, so the hand-off never
// blocks: when the queue is full the turn is dropped and counted.
type Recorder struct {
	store   stats.Store
	breaker *resilience.Breaker
	metrics *observe.Metrics
	queue   chan stats.Turn

	mu     sync.RWMutex
	closed bool
}

// NewRecorder returns a Recorder with room for queueSize pending turns.
// breaker guards the store; m receives the drop counter.
func NewRecorder(store stats.Store, queueSize int, breaker *resilience.Breaker, m *observe.Metrics) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Recorder{
		store:   store,
		breaker: breaker,
		metrics: m,
		queue:   make(chan stats.Turn, queueSize),
	}
}

// ObserveTurn implements [chain.TurnObserver].
func (r *Recorder) ObserveTurn(rec chain.TurnRecord) {
	t := stats.Turn{
		Channel:    rec.Channel,
		UserID:     rec.UserID,
		Word:       rec.Word,
		Mode:       rec.Mode.Kind(),
		Reverse:    rec.Mode.Reverse,
		Index:      rec.Index,
		Terminated: rec.Terminated,
		At:         rec.At,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop("closed")
		return
	}
	select {
	case r.queue <- t:
	default:
		r.drop("queue_full")
		slog.Warn("stats queue full, turn dropped", "channel_id", t.Channel, "user_id", t.UserID)
	}
}

// Pending returns the number of queued turns.
func (r *Recorder) Pending() int {
	return len(r.queue)
}

// Run writes queued turns until ctx is cancelled or the recorder is closed.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-r.queue:
			if !ok {
				return nil
			}
			r.write(ctx, t)
		}
	}
}

// Close stops accepting turns and writes the ones still queued, giving up
// when ctx expires.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	for t := range r.queue {
		if err := ctx.Err(); err != nil {
			n := 1 + len(r.queue)
			r.metrics.StatsDropped.Add(context.Background(), int64(n), metric.WithAttributes(observe.Attr("reason", "shutdown")))
			return err
		}
		r.write(ctx, t)
	}
	return nil
}

// write stores one turn. A turn taken off the queue is written even when
// ctx was cancelled meanwhile.
func (r *Recorder) write(ctx context.Context, t stats.Turn) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.store.RecordTurn(ctx, t)
	})
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrOpen):
		r.drop("breaker_open")
	default:
		r.drop("store_error")
		slog.Warn("failed to record turn", "channel_id", t.Channel, "user_id", t.UserID, "err", err)
	}
}

func (r *Recorder) drop(reason string) {
	r.metrics.StatsDropped.Add(context.Background(), 1, metric.WithAttributes(observe.Attr("reason", reason)))
}
