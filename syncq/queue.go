package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joshuapare/boxtrace/internal/logging"
	"github.com/joshuapare/boxtrace/internal/metrics"
	"github.com/joshuapare/boxtrace/pkg/types"
	"github.com/joshuapare/boxtrace/store"
	"github.com/joshuapare/boxtrace/transfer"
)

// DefaultKey is the store key holding the serialized queue.
const DefaultKey = "@transactions"

// SubmitFunc delivers one record to the backend. A nil return means the
// backend confirmed it.
type SubmitFunc func(ctx context.Context, rec transfer.Record) error

// DrainResult summarizes one drain pass.
type DrainResult struct {
	// Submitted is the number of records confirmed and removed.
	Submitted int
	// Remaining is the queue length after the pass.
	Remaining int
	// Halted is set when a submission failed and stopped the pass.
	Halted bool
}

// Queue is the ordered offline buffer of transfer records that could not be
// submitted. Records leave only from the head and only after the backend
// confirmed them.
type Queue struct {
	store store.Store
	key   string
	log   *slog.Logger

	mu      sync.Mutex
	records []transfer.Record
	gen     uint64

	// drainMu serializes drain passes. Lock order is drainMu, then mu.
	drainMu sync.Mutex
}

// Option configures a Queue.
type Option func(*Queue)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(q *Queue) {
		if key != "" {
			q.key = key
		}
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.log = l
		}
	}
}

// New returns an empty queue persisted to s. Call Load to pick up records
// saved by an earlier run.
func New(s store.Store, opts ...Option) *Queue {
	q := &Queue{
		store: s,
		key:   DefaultKey,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Key returns the store key the queue is persisted under.
func (q *Queue) Key() string { return q.key }

// Load replaces the in-memory queue with the persisted one. A missing key is
// an empty queue. If the stored value cannot be read or parsed the queue is
// left empty and a persistence error is returned.
func (q *Queue) Load(ctx context.Context) error {
	blob, err := q.store.Get(ctx, q.key)
	var records []transfer.Record
	switch {
	case errors.Is(err, store.ErrNotFound):
		err = nil
	case err != nil:
		metrics.QueuePersistErrors.WithLabelValues("load").Inc()
		err = types.Persistence("load queue", err)
	default:
		if len(blob) > 0 {
			if jerr := json.Unmarshal(blob, &records); jerr != nil {
				metrics.QueuePersistErrors.WithLabelValues("load").Inc()
				err = types.Persistence("parse stored queue", jerr)
				records = nil
			}
		}
	}

	q.mu.Lock()
	q.records = records
	q.gen++
	n := len(q.records)
	q.mu.Unlock()

	metrics.QueuePending.Set(float64(n))
	if err != nil {
		q.log.Error("queue load failed, starting empty", "key", q.key, "error", err)
		return err
	}
	q.log.Info("queue loaded", "key", q.key, "queue_len", n)
	return nil
}

// Enqueue appends rec at the tail and persists the whole queue. When the
// save fails the record stays queued in memory and a persistence error is
// returned.
func (q *Queue) Enqueue(ctx context.Context, rec transfer.Record) error {
	if err := rec.Ready(); err != nil {
		return fmt.Errorf("syncq: enqueue %s: %w", rec.Key(), err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, rec.Clone())
	metrics.QueueEnqueued.Inc()
	metrics.QueuePending.Set(float64(len(q.records)))
	q.log.Info("record queued", "key", rec.Key().String(), "queue_len", len(q.records))
	return q.persistLocked(ctx, "save")
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Pending returns copies of the queued records, head first.
func (q *Queue) Pending() []transfer.Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]transfer.Record, len(q.records))
	for i, r := range q.records {
		out[i] = r.Clone()
	}
	return out
}

// Drain submits queued records head to tail. The pass stops at the first
// failure; every record before it is removed and the queue is persisted.
// Records enqueued while the pass runs are kept behind the ones it saw.
//
// An empty queue returns immediately without submitting or writing. The
// returned error joins the submission failure, if any, with the
// persistence failure, if any.
func (q *Queue) Drain(ctx context.Context, submit SubmitFunc) (DrainResult, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	q.mu.Lock()
	snapshot := make([]transfer.Record, len(q.records))
	for i, r := range q.records {
		snapshot[i] = r.Clone()
	}
	gen := q.gen
	q.mu.Unlock()

	if len(snapshot) == 0 {
		return DrainResult{}, nil
	}
	q.log.Info("drain started", "queue_len", len(snapshot))

	cursor := 0
	var submitErr error
	for _, rec := range snapshot {
		if err := ctx.Err(); err != nil {
			submitErr = err
			break
		}
		if err := submit(ctx, rec); err != nil {
			submitErr = fmt.Errorf("syncq: submit %s: %w", rec.Key(), err)
			break
		}
		cursor++
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	res := DrainResult{Submitted: cursor, Halted: submitErr != nil}
	if q.gen != gen {
		// Cleared or reloaded underneath the pass; the confirmed records are
		// already gone from the buffer it was working on.
		res.Remaining = len(q.records)
		q.log.Warn("queue replaced during drain", "submitted", cursor)
		return res, submitErr
	}
	q.records = append([]transfer.Record(nil), q.records[cursor:]...)
	res.Remaining = len(q.records)

	metrics.QueueDrained.Add(float64(cursor))
	metrics.QueuePending.Set(float64(res.Remaining))
	if res.Halted {
		metrics.QueueDrainPasses.WithLabelValues("halted").Inc()
		q.log.Warn("drain halted", "submitted", cursor, "queue_len", res.Remaining, "error", submitErr)
	} else {
		metrics.QueueDrainPasses.WithLabelValues("complete").Inc()
		q.log.Info("drain complete", "submitted", cursor, "queue_len", res.Remaining)
	}

	persistErr := q.persistLocked(context.WithoutCancel(ctx), "save")
	return res, errors.Join(submitErr, persistErr)
}

// Clear empties the queue and removes it from the store. Any drain in
// progress finishes its submissions but leaves the cleared queue alone.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = nil
	q.gen++
	metrics.QueuePending.Set(0)
	if err := q.store.Clear(ctx); err != nil {
		metrics.QueuePersistErrors.WithLabelValues("clear").Inc()
		return types.Persistence("clear queue", err)
	}
	q.log.Info("queue cleared", "key", q.key)
	return nil
}

// persistLocked writes the whole queue. q.mu must be held so saves land in
// mutation order.
func (q *Queue) persistLocked(ctx context.Context, op string) error {
	records := q.records
	if records == nil {
		records = []transfer.Record{}
	}
	blob, err := json.Marshal(records)
	if err != nil {
		metrics.QueuePersistErrors.WithLabelValues(op).Inc()
		return types.Persistence("encode queue", err)
	}
	if err := q.store.Set(ctx, q.key, blob); err != nil {
		metrics.QueuePersistErrors.WithLabelValues(op).Inc()
		q.log.Error("queue save failed, keeping records in memory", "key", q.key, "queue_len", len(q.records), "error", err)
		return types.Persistence("save queue", err)
	}
	return nil
}
