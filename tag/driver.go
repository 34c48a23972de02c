package tag

import (
	"context"
	"errors"
)

// Driver is the boundary to the NFC radio. A session must be acquired before
// any command is sent and released afterwards; only one session is open at
// a time.
type Driver interface {
	// Acquire opens a session with the tag currently in the field.
	Acquire(ctx context.Context) error
	// Transceive sends one raw command frame and returns the response bytes.
	Transceive(ctx context.Context, cmd []byte) ([]byte, error)
	// Release closes the session. Calling it without an open session is a no-op.
	Release() error
}

// WithSession acquires a session on d, runs fn, and releases the session on
// every exit path. A release failure is joined with fn's error.
func WithSession(ctx context.Context, d Driver, fn func(ctx context.Context) error) (err error) {
	if err := d.Acquire(ctx); err != nil {
		// Some radios hold a half-open request after a failed acquire.
		_ = d.Release()
		return err
	}
	defer func() {
		if relErr := d.Release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}()
	return fn(ctx)
}

// FastRead reads pages start..end inclusive.
func FastRead(ctx context.Context, d Driver, start, end byte) ([]byte, error) {
	return d.Transceive(ctx, []byte{CmdFastRead, start, end})
}

// WritePage writes one page. data must be exactly PageSize bytes.
func WritePage(ctx context.Context, d Driver, page byte, data []byte) error {
	if len(data) != PageSize {
		return ErrNAK
	}
	frame := make([]byte, 0, WriteFrameSize)
	frame = append(frame, CmdWrite, page)
	frame = append(frame, data...)
	_, err := d.Transceive(ctx, frame)
	return err
}
