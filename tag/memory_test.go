package tag

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryFactoryLayout(t *testing.T) {
	m, err := NewMemory(NTAG213Pages)
	require.NoError(t, err)
	require.Equal(t, NTAG213Pages, m.Pages())

	assert.Equal(t, []byte{0xE1, 0x10, 0x14, 0x00}, m.Page(CCPage))
	assert.Equal(t, []byte{0x03, 0x00, 0xFE, 0x00}, m.Page(FirstUserPage))
	assert.Nil(t, m.Page(NTAG213Pages))
}

func TestNewMemoryRejectsSize(t *testing.T) {
	for _, pages := range []int{0, 4, 257} {
		_, err := NewMemory(pages)
		require.ErrorIs(t, err, ErrImageSize, "pages=%d", pages)
	}
}

func TestLoadMemory(t *testing.T) {
	_, err := LoadMemory(make([]byte, 21))
	require.ErrorIs(t, err, ErrImageSize)

	img := make([]byte, 8*PageSize)
	img[FirstUserPage*PageSize] = 0x03
	m, err := LoadMemory(img)
	require.NoError(t, err)

	img[FirstUserPage*PageSize] = 0xFF
	assert.Equal(t, byte(0x03), m.Page(FirstUserPage)[0], "image must be copied")
}

func TestTransceiveRequiresSession(t *testing.T) {
	m, err := NewMemory(NTAG213Pages)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = FastRead(ctx, m, 4, 4)
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, m.Acquire(ctx))
	require.ErrorIs(t, m.Acquire(ctx), ErrBusy)
	require.NoError(t, m.Release())
	require.NoError(t, m.Release())

	acquired, released := m.Sessions()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(NTAG213Pages)
	require.NoError(t, err)
	require.NoError(t, m.Acquire(ctx))
	defer m.Release()

	require.NoError(t, WritePage(ctx, m, 6, []byte{'a', 'b', 'c', 'd'}))

	resp, err := FastRead(ctx, m, 6, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 'c', 'd', 0, 0, 0, 0}, resp)

	resp, err = m.Transceive(ctx, []byte{CmdRead, NTAG213Pages - 2})
	require.NoError(t, err)
	require.Len(t, resp, ReadSize)
	assert.Equal(t, m.Page(0), resp[8:12], "READ wraps to page 0")

	tests := []struct {
		name string
		cmd  []byte
	}{
		{"empty frame", nil},
		{"unknown opcode", []byte{0x60}},
		{"write locked page", []byte{CmdWrite, CCPage, 0, 0, 0, 0}},
		{"write past end", []byte{CmdWrite, NTAG213Pages, 0, 0, 0, 0}},
		{"short write", []byte{CmdWrite, 6, 1}},
		{"reversed range", []byte{CmdFastRead, 7, 6}},
		{"range past end", []byte{CmdFastRead, 4, NTAG213Pages}},
		{"read past end", []byte{CmdRead, NTAG213Pages}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Transceive(ctx, tt.cmd)
			require.ErrorIs(t, err, ErrNAK)
		})
	}
}

func TestTagLeavesField(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(NTAG213Pages)
	require.NoError(t, err)

	m.SetPresent(false)
	require.ErrorIs(t, m.Acquire(ctx), ErrNoTag)

	m.SetPresent(true)
	require.NoError(t, m.Acquire(ctx))
	m.SetPresent(false)
	_, err = FastRead(ctx, m, 4, 4)
	require.ErrorIs(t, err, ErrTagLost)
}

func TestWithSessionReleasesOnError(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(NTAG213Pages)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithSession(ctx, m, func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	m.SetPresent(false)
	err = WithSession(ctx, m, func(ctx context.Context) error {
		t.Fatal("fn must not run without a session")
		return nil
	})
	require.ErrorIs(t, err, ErrNoTag)

	acquired, released := m.Sessions()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestInjectFault(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(NTAG213Pages)
	require.NoError(t, err)
	jam := errors.New("collision")
	m.InjectFault(func(cmd []byte) error {
		if cmd[0] == CmdWrite {
			return jam
		}
		return nil
	})

	err = WithSession(ctx, m, func(ctx context.Context) error {
		return WritePage(ctx, m, 5, []byte{1, 2, 3, 4})
	})
	require.ErrorIs(t, err, jam)
	assert.Len(t, m.History(), 1)
}

func TestDump(t *testing.T) {
	m, err := NewMemory(minPages)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf))
	assert.Contains(t, buf.String(), "  3  e1100000  ....\n")
	assert.Contains(t, buf.String(), "  4  0300fe00  ....\n")
}
