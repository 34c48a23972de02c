package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueListEmpty(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK)
	setupEnv(t, backend.URL)

	out, err := captureOutput(t, func() error { return runQueueList(context.Background()) })
	require.NoError(t, err)
	assert.Contains(t, out, "Queue is empty")
}

func TestQueueList(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK)
	dir := setupEnv(t, backend.URL)
	seedQueue(t, dir, [2]string{"42", "7"}, [2]string{"43", "7"})

	out, err := captureOutput(t, func() error { return runQueueList(context.Background()) })
	require.NoError(t, err)
	assertContains(t, out, []string{
		"  1  42 -> 7  2024-03-01T09:30:00.000Z",
		"  2  43 -> 7  2024-03-01T09:31:00.000Z",
		"2 transfer(s) queued",
	})

	jsonOut = true
	out, err = captureOutput(t, func() error { return runQueueList(context.Background()) })
	require.NoError(t, err)
	assertJSON(t, out)
	assertContains(t, out, []string{`"source": "42"`, `"dest": "7"`})
}

func TestQueueDrain(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK)
	dir := setupEnv(t, backend.URL)
	seedQueue(t, dir, [2]string{"42", "7"}, [2]string{"43", "7"})

	out, err := captureOutput(t, func() error { return runQueueDrain(context.Background()) })
	require.NoError(t, err)
	assert.Contains(t, out, "Submitted 2, 0 remaining")

	queries := backend.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, "42", queries[0]["source"], "oldest first")
	assert.Equal(t, "43", queries[1]["source"])
	assert.Equal(t, testEmployee, queries[0]["employeeId"])

	assert.Zero(t, openQueue(t, dir).Len(), "drained records are removed from storage")
}

func TestQueueDrainBackendDown(t *testing.T) {
	backend := newFakeBackend(t, http.StatusInternalServerError)
	dir := setupEnv(t, backend.URL)
	seedQueue(t, dir, [2]string{"42", "7"}, [2]string{"43", "7"})

	out, err := captureOutput(t, func() error { return runQueueDrain(context.Background()) })
	require.Error(t, err)
	assert.Contains(t, out, "Submitted 0, 2 remaining")
	assert.Len(t, backend.Queries(), 1, "drain stops at the first failure")

	pending := openQueue(t, dir).Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "42", pending[0].Source.String())
}

func TestQueueClear(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK)
	dir := setupEnv(t, backend.URL)
	seedQueue(t, dir, [2]string{"42", "7"})

	out, err := captureOutput(t, func() error { return runQueueClear(context.Background()) })
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 transfer(s)")
	assert.Zero(t, openQueue(t, dir).Len())
	assert.Empty(t, backend.Queries())
}

func TestQueueRequiresConfig(t *testing.T) {
	setupEnv(t, "")
	err := runQueueList(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url is required")
}
