package tag

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/joshuapare/boxtrace/internal/buf"
)

// Memory is an in-process Type 2 tag. It implements Driver by interpreting
// CmdRead, CmdFastRead and CmdWrite against a page array, which makes it
// usable both as a test double and as the backing store for tag image files.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	data    []byte
	present bool
	open    bool

	acquired int
	released int
	history  [][]byte
	fault    func(cmd []byte) error
}

// NewMemory returns a factory-fresh tag with the given number of pages:
// a capability container sized to the user area and an empty NDEF TLV.
func NewMemory(pages int) (*Memory, error) {
	if pages < minPages || pages > 256 {
		return nil, fmt.Errorf("%w: %d pages", ErrImageSize, pages)
	}
	data := make([]byte, pages*PageSize)
	cc := data[CCPage*PageSize:]
	cc[0] = 0xE1 // NDEF magic
	cc[1] = 0x10 // mapping version 1.0
	cc[2] = byte((pages - FirstUserPage) * PageSize / 8)
	cc[3] = 0x00 // read/write access
	user := data[FirstUserPage*PageSize:]
	user[0] = 0x03 // NDEF TLV, zero length
	user[1] = 0x00
	user[2] = 0xFE // terminator TLV
	return &Memory{data: data, present: true}, nil
}

// LoadMemory wraps a raw memory image. The slice is copied.
func LoadMemory(image []byte) (*Memory, error) {
	if len(image)%PageSize != 0 || len(image)/PageSize < minPages || len(image)/PageSize > 256 {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageSize, len(image))
	}
	return &Memory{data: append([]byte(nil), image...), present: true}, nil
}

// Pages returns the number of pages.
func (m *Memory) Pages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data) / PageSize
}

// Bytes returns a copy of the full memory image.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Page returns a copy of one page, or nil when out of range.
func (m *Memory) Page(n int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := buf.Pages(m.data, PageSize, n, n)
	if !ok {
		return nil
	}
	return append([]byte(nil), p...)
}

// SetPresent moves the tag into or out of the field. Removing it while a
// session is open makes every further command fail with ErrTagLost.
func (m *Memory) SetPresent(present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present = present
}

// InjectFault installs fn, which is consulted before every command. A
// non-nil return fails that command. Pass nil to clear.
func (m *Memory) InjectFault(fn func(cmd []byte) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

// Sessions reports how many sessions were acquired and released.
func (m *Memory) Sessions() (acquired, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.released
}

// History returns copies of every command frame received, in order.
func (m *Memory) History() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.history))
	for i, c := range m.history {
		out[i] = append([]byte(nil), c...)
	}
	return out
}

// Acquire implements Driver.
func (m *Memory) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return ErrNoTag
	}
	if m.open {
		return ErrBusy
	}
	m.open = true
	m.acquired++
	return nil
}

// Release implements Driver.
func (m *Memory) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		m.open = false
		m.released++
	}
	return nil
}

// Transceive implements Driver.
func (m *Memory) Transceive(ctx context.Context, cmd []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, append([]byte(nil), cmd...))
	if !m.open {
		return nil, ErrNoSession
	}
	if !m.present {
		return nil, ErrTagLost
	}
	if m.fault != nil {
		if err := m.fault(cmd); err != nil {
			return nil, err
		}
	}
	if len(cmd) == 0 {
		return nil, ErrNAK
	}

	switch cmd[0] {
	case CmdRead:
		if len(cmd) != 2 || int(cmd[1]) >= len(m.data)/PageSize {
			return nil, ErrNAK
		}
		out := make([]byte, ReadSize)
		for i := range out {
			out[i] = m.data[(int(cmd[1])*PageSize+i)%len(m.data)]
		}
		return out, nil

	case CmdFastRead:
		if len(cmd) != FastReadFrameSize {
			return nil, ErrNAK
		}
		span, ok := buf.Pages(m.data, PageSize, int(cmd[1]), int(cmd[2]))
		if !ok {
			return nil, ErrNAK
		}
		return append([]byte(nil), span...), nil

	case CmdWrite:
		if len(cmd) != WriteFrameSize {
			return nil, ErrNAK
		}
		page, ok := buf.Pages(m.data, PageSize, int(cmd[1]), int(cmd[1]))
		if !ok || int(cmd[1]) < FirstUserPage {
			return nil, ErrNAK
		}
		copy(page, cmd[2:])
		return []byte{ACK}, nil
	}
	return nil, ErrNAK
}

// Dump writes a hex listing of every page to w.
func (m *Memory) Dump(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := 0; p < len(m.data)/PageSize; p++ {
		chunk := m.data[p*PageSize : (p+1)*PageSize]
		if _, err := fmt.Fprintf(w, "%3d  %s  %s\n", p, hex.EncodeToString(chunk), printable(chunk)); err != nil {
			return err
		}
	}
	return nil
}

func printable(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 0x20 && c < 0x7F {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
