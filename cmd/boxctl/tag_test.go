package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/boxtrace/internal/writer"
	"github.com/joshuapare/boxtrace/tag"
	"github.com/joshuapare/boxtrace/transfer"
)

func TestTagWriteThenRead(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "box.bin")
	tagPages = tag.NTAG213Pages

	out, err := captureOutput(t, func() error {
		return runTagWrite(context.Background(), []string{path, "0042"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, `Wrote "42"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, tag.NTAG213Pages*tag.PageSize, info.Size())

	out, err = captureOutput(t, func() error {
		return runTagRead(context.Background(), []string{path})
	})
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestTagReadJSON(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "box.bin")
	writeTagImage(t, path, "7")
	jsonOut = true

	out, err := captureOutput(t, func() error {
		return runTagRead(context.Background(), []string{path})
	})
	require.NoError(t, err)
	assertJSON(t, out)
	assertContains(t, out, []string{`"box_id": "7"`})
}

func TestTagWriteText(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "lot.bin")
	tagText = true
	_, err := captureOutput(t, func() error {
		return runTagWrite(context.Background(), []string{path, "Lot A"})
	})
	require.NoError(t, err)

	tagRaw = true
	out, err := captureOutput(t, func() error {
		return runTagRead(context.Background(), []string{path})
	})
	require.NoError(t, err)
	assert.Equal(t, "Lot A\n", out)

	tagRaw = false
	_, err = captureOutput(t, func() error {
		return runTagRead(context.Background(), []string{path})
	})
	require.Error(t, err, "text is not a box number")
}

func TestTagWriteRejectsNonNumber(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "box.bin")

	err := runTagWrite(context.Background(), []string{path, "abc"})
	require.ErrorIs(t, err, transfer.ErrInvalidBoxID)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no image is created")
}

func TestTagReadMissingImage(t *testing.T) {
	resetFlags(t)
	err := runTagRead(context.Background(), []string{filepath.Join(t.TempDir(), "absent.bin")})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestTagPlan(t *testing.T) {
	resetFlags(t)
	out, err := captureOutput(t, func() error { return runTagPlan([]string{"42"}) })
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"A2 04 03 09 D1 01",
		"A2 05 05 54 02 65",
		"A2 06 6E 34 32 FE",
	}, lines)
}

func TestTagPlanJSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	out, err := captureOutput(t, func() error { return runTagPlan([]string{"42"}) })
	require.NoError(t, err)
	assertJSON(t, out)
	assertContains(t, out, []string{`"page": 4`, `"cmd": "A2 06 6E 34 32 FE"`})
}

func TestTagPlanRejectsUnencodable(t *testing.T) {
	resetFlags(t)
	err := runTagPlan([]string{"box €"})
	require.Error(t, err)
}

func TestTagDump(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "box.bin")
	writeTagImage(t, path, "42")

	out, err := captureOutput(t, func() error { return runTagDump([]string{path}) })
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, tag.NTAG213Pages)
	assertContains(t, out, []string{"0309d101", "6e3432fe  n42."})
}

func TestWriteImage(t *testing.T) {
	m, err := tag.NewMemory(tag.NTAG213Pages)
	require.NoError(t, err)

	w := &writer.MemWriter{}
	require.NoError(t, writeImage(w, m))
	assert.Equal(t, m.Bytes(), w.Bytes())

	w.Err = errors.New("disk full")
	require.ErrorContains(t, writeImage(w, m), "write tag image: disk full")
	assert.Equal(t, 1, w.Writes)
}
