package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/boxtrace/store"
	"github.com/joshuapare/boxtrace/syncq"
	"github.com/joshuapare/boxtrace/tag"
	"github.com/joshuapare/boxtrace/tag/codec"
	"github.com/joshuapare/boxtrace/transfer"
)

const testEmployee = "83c1e87a-96bf-4378-9e75-7296dfb89412"

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// resetFlags restores every package-level flag after the test.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		verbose, quiet, jsonOut, configPath = false, false, false, ""
		tagRaw, tagText, tagPages = false, false, tag.NTAG215Pages
		transferSource, transferDest, transferFarmer = "", "", ""
		agentNoServer = false
		stdin = os.Stdin
	}
	reset()
	t.Cleanup(reset)
}

// fakeBackend records the queries of every POST /transactions and answers
// with status.
type fakeBackend struct {
	*httptest.Server

	mu      sync.Mutex
	status  int
	queries []map[string]string
}

func newFakeBackend(t *testing.T, status int) *fakeBackend {
	t.Helper()
	b := &fakeBackend{status: status}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transactions" {
			http.NotFound(w, r)
			return
		}
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		b.mu.Lock()
		b.queries = append(b.queries, q)
		code := b.status
		b.mu.Unlock()
		w.WriteHeader(code)
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) Queries() []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]string(nil), b.queries...)
}

// setupEnv points the config at backendURL and a file queue in a temp dir,
// and returns that dir.
func setupEnv(t *testing.T, backendURL string) string {
	t.Helper()
	resetFlags(t)
	dir := filepath.Join(t.TempDir(), "queue")
	t.Setenv("BOXTRACE_EMPLOYEE_ID", testEmployee)
	t.Setenv("BOXTRACE_BACKEND_URL", backendURL)
	t.Setenv("BOXTRACE_QUEUE_BACKEND", "file")
	t.Setenv("BOXTRACE_QUEUE_PATH", dir)
	t.Setenv("BOXTRACE_CONNECTIVITY_MODE", "none")
	t.Setenv("BOXTRACE_FARMER_ID", "")
	t.Setenv("BOXTRACE_LOG_LEVEL", "error")
	return dir
}

// openQueue opens the file queue stored in dir.
func openQueue(t *testing.T, dir string) *syncq.Queue {
	t.Helper()
	s, err := store.NewFile(dir)
	require.NoError(t, err)
	q := syncq.New(s)
	require.NoError(t, q.Load(context.Background()))
	return q
}

func seedQueue(t *testing.T, dir string, pairs ...[2]string) {
	t.Helper()
	q := openQueue(t, dir)
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	for i, p := range pairs {
		last := false
		stamp := ts.Add(time.Duration(i) * time.Minute)
		rec := transfer.Record{
			EmployeeID: testEmployee,
			Source:     transfer.BoxID(p[0]),
			Dest:       transfer.BoxID(p[1]),
			LastDump:   &last,
			TimeStamp:  &stamp,
		}
		require.NoError(t, q.Enqueue(context.Background(), rec))
	}
}

// writeTagImage stores text on a fresh NTAG213 image at path.
func writeTagImage(t *testing.T, path, text string) {
	t.Helper()
	m, err := tag.NewMemory(tag.NTAG213Pages)
	require.NoError(t, err)
	require.NoError(t, codec.New().WriteText(context.Background(), m, text))
	require.NoError(t, os.WriteFile(path, m.Bytes(), 0o600))
}
