package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/boxtrace/pkg/types"
	"github.com/joshuapare/boxtrace/store"
	"github.com/joshuapare/boxtrace/transfer"
)

var errOffline = errors.New("backend unreachable")

func record(source, dest string) transfer.Record {
	ts := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	no := false
	return transfer.Record{
		EmployeeID: "3b241101-e2bb-4255-8caf-4136c566a962",
		Source:     transfer.BoxID(source),
		Dest:       transfer.BoxID(dest),
		LastDump:   &no,
		TimeStamp:  &ts,
	}
}

func sources(recs []transfer.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = string(r.Source)
	}
	return out
}

func stored(t *testing.T, s store.Store) []string {
	t.Helper()
	blob, err := s.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	var recs []transfer.Record
	require.NoError(t, json.Unmarshal(blob, &recs))
	return sources(recs)
}

func failOn(source string, calls *[]string) SubmitFunc {
	return func(_ context.Context, rec transfer.Record) error {
		*calls = append(*calls, string(rec.Source))
		if string(rec.Source) == source {
			return errOffline
		}
		return nil
	}
}

func TestEnqueueAppendsAndPersists(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	q := New(s)

	require.NoError(t, q.Enqueue(ctx, record("1", "2")))
	require.NoError(t, q.Enqueue(ctx, record("3", "4")))
	require.NoError(t, q.Enqueue(ctx, record("5", "6")))

	assert.Equal(t, []string{"1", "3", "5"}, sources(q.Pending()))
	assert.Equal(t, []string{"1", "3", "5"}, stored(t, s))
	assert.Equal(t, 3, s.Sets(), "one save per enqueue")
}

func TestEnqueueRejectsIncompleteRecord(t *testing.T) {
	q := New(store.NewMemory())
	rec := record("1", "")
	err := q.Enqueue(context.Background(), rec)
	require.ErrorIs(t, err, transfer.ErrNotReady)
	assert.Zero(t, q.Len())
}

func TestEnqueueCopiesRecord(t *testing.T) {
	q := New(store.NewMemory())
	rec := record("1", "2")
	require.NoError(t, q.Enqueue(context.Background(), rec))
	*rec.LastDump = true
	assert.False(t, *q.Pending()[0].LastDump)
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	q := New(s)
	for _, src := range []string{"A", "B", "C"} {
		require.NoError(t, q.Enqueue(ctx, record(src, "9")))
	}

	var calls []string
	res, err := q.Drain(ctx, failOn("B", &calls))
	require.ErrorIs(t, err, errOffline)
	assert.Equal(t, DrainResult{Submitted: 1, Remaining: 2, Halted: true}, res)
	assert.Equal(t, []string{"A", "B"}, calls, "C must not be attempted after B fails")
	assert.Equal(t, []string{"B", "C"}, sources(q.Pending()))
	assert.Equal(t, []string{"B", "C"}, stored(t, s))
}

func TestDrainHeadFailureRemovesNothing(t *testing.T) {
	ctx := context.Background()
	q := New(store.NewMemory())
	require.NoError(t, q.Enqueue(ctx, record("A", "9")))
	require.NoError(t, q.Enqueue(ctx, record("B", "9")))

	var calls []string
	res, err := q.Drain(ctx, failOn("A", &calls))
	require.Error(t, err)
	assert.Zero(t, res.Submitted)
	assert.Equal(t, []string{"A", "B"}, sources(q.Pending()))
}

func TestDrainEverything(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	q := New(s)
	require.NoError(t, q.Enqueue(ctx, record("A", "9")))
	require.NoError(t, q.Enqueue(ctx, record("B", "9")))

	var calls []string
	res, err := q.Drain(ctx, failOn("", &calls))
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Submitted: 2}, res)
	assert.Equal(t, []string{"A", "B"}, calls)
	assert.Zero(t, q.Len())
	assert.Empty(t, stored(t, s))
}

func TestDrainEmptyQueueIsNoop(t *testing.T) {
	s := store.NewMemory()
	q := New(s)
	called := false
	for i := 0; i < 2; i++ {
		res, err := q.Drain(context.Background(), func(context.Context, transfer.Record) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, DrainResult{}, res)
	}
	assert.False(t, called)
	assert.Zero(t, s.Sets())
}

func TestEnqueueDuringDrainIsKept(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	q := New(s)
	require.NoError(t, q.Enqueue(ctx, record("A", "9")))
	require.NoError(t, q.Enqueue(ctx, record("B", "9")))

	first := true
	res, err := q.Drain(ctx, func(ctx context.Context, rec transfer.Record) error {
		if first {
			first = false
			require.NoError(t, q.Enqueue(ctx, record("D", "9")))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Submitted)
	assert.Equal(t, []string{"D"}, sources(q.Pending()))
	assert.Equal(t, []string{"D"}, stored(t, s))
}

func TestClearDuringDrain(t *testing.T) {
	ctx := context.Background()
	q := New(store.NewMemory())
	require.NoError(t, q.Enqueue(ctx, record("A", "9")))
	require.NoError(t, q.Enqueue(ctx, record("B", "9")))

	res, err := q.Drain(ctx, func(ctx context.Context, rec transfer.Record) error {
		if rec.Source == "A" {
			require.NoError(t, q.Clear(ctx))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Submitted)
	assert.Zero(t, res.Remaining)
	assert.Zero(t, q.Len())
}

func TestDrainCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := New(store.NewMemory())
	require.NoError(t, q.Enqueue(ctx, record("A", "9")))
	require.NoError(t, q.Enqueue(ctx, record("B", "9")))

	res, err := q.Drain(ctx, func(context.Context, transfer.Record) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, DrainResult{Submitted: 1, Remaining: 1, Halted: true}, res)
	assert.Equal(t, []string{"B"}, sources(q.Pending()))
}

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	q := New(s)
	s.Fail(nil, errors.New("disk full"))

	err := q.Enqueue(ctx, record("A", "9"))
	require.ErrorIs(t, err, types.ErrPersistence)
	assert.Equal(t, 1, q.Len(), "record stays queued in memory")

	s.Fail(nil, nil)
	require.NoError(t, q.Enqueue(ctx, record("B", "9")))
	assert.Equal(t, []string{"A", "B"}, stored(t, s))
}

func TestDrainReportsPersistFailure(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	q := New(s)
	require.NoError(t, q.Enqueue(ctx, record("A", "9")))
	s.Fail(nil, errors.New("disk full"))

	res, err := q.Drain(ctx, func(context.Context, transfer.Record) error { return nil })
	require.ErrorIs(t, err, types.ErrPersistence)
	assert.Equal(t, 1, res.Submitted)
	assert.Zero(t, q.Len())
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key is empty", func(t *testing.T) {
		q := New(store.NewMemory())
		require.NoError(t, q.Load(ctx))
		assert.Zero(t, q.Len())
	})

	t.Run("restores earlier run", func(t *testing.T) {
		s := store.NewMemory()
		require.NoError(t, New(s).Enqueue(ctx, record("7", "8")))

		q := New(s)
		require.NoError(t, q.Load(ctx))
		assert.Equal(t, []string{"7"}, sources(q.Pending()))
	})

	t.Run("corrupt blob starts empty", func(t *testing.T) {
		s := store.NewMemory()
		require.NoError(t, s.Set(ctx, DefaultKey, []byte("{not json")))
		q := New(s)
		err := q.Load(ctx)
		require.ErrorIs(t, err, types.ErrPersistence)
		assert.Zero(t, q.Len())
	})

	t.Run("store failure starts empty", func(t *testing.T) {
		s := store.NewMemory()
		s.Fail(errors.New("io error"), nil)
		q := New(s)
		require.ErrorIs(t, q.Load(ctx), types.ErrPersistence)
		assert.Zero(t, q.Len())
	})

	t.Run("custom key", func(t *testing.T) {
		s := store.NewMemory()
		require.NoError(t, New(s, WithKey("dev-2")).Enqueue(ctx, record("7", "8")))

		q := New(s)
		require.NoError(t, q.Load(ctx))
		assert.Zero(t, q.Len(), "default key is untouched")

		q = New(s, WithKey("dev-2"))
		require.NoError(t, q.Load(ctx))
		assert.Equal(t, 1, q.Len())
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	q := New(s)
	require.NoError(t, q.Enqueue(ctx, record("A", "9")))
	require.NoError(t, q.Clear(ctx))

	assert.Zero(t, q.Len())
	_, err := s.Get(ctx, DefaultKey)
	require.ErrorIs(t, err, store.ErrNotFound)
}
