package codec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshuapare/boxtrace/internal/logging"
	"github.com/joshuapare/boxtrace/internal/metrics"
	"github.com/joshuapare/boxtrace/pkg/types"
	"github.com/joshuapare/boxtrace/tag"
	"github.com/joshuapare/boxtrace/transfer"
)

// Codec reads and writes box numbers on tags. The zero value is not usable;
// construct with New.
type Codec struct {
	log *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{log: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadText reads the raw text record from the tag in the field.
//
// The message length is probed from LengthPage, then only the pages holding
// the message are read in one FAST_READ. The session is released on every
// path.
func (c *Codec) ReadText(ctx context.Context, d tag.Driver) (string, error) {
	var text string
	err := c.session(ctx, d, "read", func(ctx context.Context) error {
		probe, err := tag.FastRead(ctx, d, LengthPage, LengthPage)
		if err != nil {
			return types.Driver("length probe", err)
		}
		if len(probe) < 2 {
			return types.Decode(fmt.Sprintf("length probe returned %d bytes", len(probe)), nil)
		}
		length := int(probe[1])
		if length == 0 {
			return types.Decode("empty record", nil)
		}

		end := BasePage + payloadPages(length) - 1
		if end > 0xFF {
			return types.Decode(fmt.Sprintf("declared length %d runs past the last page", length), nil)
		}
		c.log.Debug("tag read", "length", length, "start_page", BasePage, "end_page", end)

		raw, err := tag.FastRead(ctx, d, BasePage, byte(end))
		if err != nil {
			return types.Driver(fmt.Sprintf("read pages %d-%d", BasePage, end), err)
		}
		text, err = extractText(raw)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// ReadBoxID reads the tag in the field and parses its text as a box number.
func (c *Codec) ReadBoxID(ctx context.Context, d tag.Driver) (transfer.BoxID, error) {
	text, err := c.ReadText(ctx, d)
	if err != nil {
		metrics.TagOperations.WithLabelValues("read", resultLabel(err)).Inc()
		return "", err
	}
	id, err := transfer.ParseBoxID(text)
	if err != nil {
		metrics.TagOperations.WithLabelValues("read", "decode_error").Inc()
		return "", types.Decode("tag does not hold a box number", err)
	}
	metrics.TagOperations.WithLabelValues("read", "ok").Inc()
	c.log.Info("box scanned", "box_id", id)
	return id, nil
}

// WriteText stores text on the tag in the field.
//
// Empty or unrepresentable text is rejected before the radio is touched.
// Pages are written one command at a time in increasing order. On failure
// the session is still released and the error is returned; nothing panics.
func (c *Codec) WriteText(ctx context.Context, d tag.Driver, text string) error {
	writes, err := Layout(text)
	if err != nil {
		metrics.TagOperations.WithLabelValues("write", "invalid").Inc()
		return err
	}
	err = c.session(ctx, d, "write", func(ctx context.Context) error {
		for _, w := range writes {
			if err := tag.WritePage(ctx, d, w.Page, w.Data[:]); err != nil {
				return types.Driver(fmt.Sprintf("write page %d", w.Page), err)
			}
			metrics.TagPagesWritten.Inc()
		}
		return nil
	})
	metrics.TagOperations.WithLabelValues("write", resultLabel(err)).Inc()
	if err != nil {
		c.log.Warn("tag write failed", "text", text, "error", err)
		return err
	}
	c.log.Info("tag written", "text", text, "pages", len(writes))
	return nil
}

// session runs fn inside one tag session and types any untyped failure
// (acquire or release) as a driver error.
func (c *Codec) session(ctx context.Context, d tag.Driver, op string, fn func(context.Context) error) error {
	err := tag.WithSession(ctx, d, fn)
	if err != nil && types.KindOf(err) == 0 {
		err = types.Driver(op+" session", err)
	}
	return err
}

func resultLabel(err error) string {
	switch types.KindOf(err) {
	case 0:
		if err == nil {
			return "ok"
		}
		return "error"
	case types.ErrKindDriver:
		return "driver_error"
	case types.ErrKindDecode:
		return "decode_error"
	default:
		return "error"
	}
}

// Scanner binds a Codec to one driver so a workflow can scan boxes without
// knowing about tags.
type Scanner struct {
	Codec  *Codec
	Driver tag.Driver
}

// Scan reads the box number from the tag in the field.
func (s Scanner) Scan(ctx context.Context) (transfer.BoxID, error) {
	return s.Codec.ReadBoxID(ctx, s.Driver)
}
