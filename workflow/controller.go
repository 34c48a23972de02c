package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joshuapare/boxtrace/internal/logging"
	"github.com/joshuapare/boxtrace/internal/metrics"
	"github.com/joshuapare/boxtrace/pkg/types"
	"github.com/joshuapare/boxtrace/transfer"
)

// DefaultLocateTimeout bounds the location lookup in Complete.
const DefaultLocateTimeout = 15 * time.Second

// State is where the controller is in one transfer.
type State int

const (
	Idle State = iota
	SourceCaptured
	AwaitingLastDumpAnswer
	AwaitingFinalShipmentAnswer
	AwaitingLocation
	Submitting
)

var stateNames = [...]string{
	Idle:                        "idle",
	SourceCaptured:              "source-captured",
	AwaitingLastDumpAnswer:      "awaiting-last-dump",
	AwaitingFinalShipmentAnswer: "awaiting-final-shipment",
	AwaitingLocation:            "awaiting-location",
	Submitting:                  "submitting",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is how a transfer ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	// OutcomeSubmitted means the backend accepted the record.
	OutcomeSubmitted
	// OutcomeSavedOffline means submission failed and the record was queued.
	OutcomeSavedOffline
	// OutcomeCancelled means the operator discarded the transfer.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeSavedOffline:
		return "saved-offline"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Scanner reads a box number from the tag in the field.
type Scanner interface {
	Scan(ctx context.Context) (transfer.BoxID, error)
}

// Locator reports the device position.
type Locator interface {
	Locate(ctx context.Context) (transfer.Coordinate, error)
}

// Submitter delivers a finished record to the backend.
type Submitter interface {
	Submit(ctx context.Context, rec transfer.Record) error
}

// Enqueuer keeps a record that could not be submitted.
type Enqueuer interface {
	Enqueue(ctx context.Context, rec transfer.Record) error
}

// Controller walks one operator through a box-to-box transfer. It holds at
// most one record and rejects concurrent calls.
type Controller struct {
	employeeID    string
	scanner       Scanner
	submitter     Submitter
	queue         Enqueuer
	locator       Locator
	locateTimeout time.Duration
	now           func() time.Time
	log           *slog.Logger

	mu    sync.Mutex
	busy  bool
	state State
	rec   transfer.Record
}

// Option configures a Controller.
type Option func(*Controller)

// WithLocator sets the position source. Without one records carry no
// location.
func WithLocator(l Locator) Option {
	return func(c *Controller) { c.locator = l }
}

// WithLocateTimeout overrides DefaultLocateTimeout.
func WithLocateTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.locateTimeout = d
		}
	}
}

// WithClock overrides time.Now for time stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns an idle Controller.
func New(employeeID string, scanner Scanner, submitter Submitter, queue Enqueuer, opts ...Option) *Controller {
	c := &Controller{
		employeeID:    employeeID,
		scanner:       scanner,
		submitter:     submitter,
		queue:         queue,
		locateTimeout: DefaultLocateTimeout,
		now:           time.Now,
		log:           logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Record returns a copy of the record in progress.
func (c *Controller) Record() transfer.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Clone()
}

// ScanSource starts a transfer by reading the source box. farmerID is the
// farmer the box came from, if known. A failed scan leaves the controller
// idle.
func (c *Controller) ScanSource(ctx context.Context, farmerID *string) (transfer.BoxID, error) {
	if err := c.begin("scan source", Idle); err != nil {
		return "", err
	}
	id, err := c.scanner.Scan(ctx)
	if err != nil {
		metrics.Transfers.WithLabelValues("scan_failed").Inc()
		c.log.Warn("source scan failed", "error", err)
		c.reset()
		return "", err
	}
	rec := transfer.Record{EmployeeID: c.employeeID, Source: id}
	if farmerID != nil {
		f := *farmerID
		rec.FarmerID = &f
	}
	c.log.Info("source captured", "box_id", id)
	c.end(SourceCaptured, rec)
	return id, nil
}

// Cancel discards the transfer in progress, marking the source box as
// waste.
func (c *Controller) Cancel() error {
	if err := c.begin("cancel", SourceCaptured, AwaitingLastDumpAnswer, AwaitingFinalShipmentAnswer, AwaitingLocation); err != nil {
		return err
	}
	c.mu.Lock()
	src := c.rec.Source
	c.mu.Unlock()
	metrics.Transfers.WithLabelValues("cancelled").Inc()
	c.log.Info("transfer cancelled", "box_id", src)
	c.reset()
	return nil
}

// ScanDestination reads the box the source was emptied into. A failed scan
// discards the whole transfer.
func (c *Controller) ScanDestination(ctx context.Context) (transfer.BoxID, error) {
	if err := c.begin("scan destination", SourceCaptured); err != nil {
		return "", err
	}
	id, err := c.scanner.Scan(ctx)
	if err != nil {
		metrics.Transfers.WithLabelValues("scan_failed").Inc()
		c.log.Warn("destination scan failed, transfer discarded", "error", err)
		c.reset()
		return "", err
	}
	rec := c.Record()
	rec.Dest = id
	c.log.Info("destination captured", "source", rec.Source, "dest", id)
	c.end(AwaitingLastDumpAnswer, rec)
	return id, nil
}

// AnswerLastDump records whether this empties the source box. Final
// shipment is only asked when it does.
func (c *Controller) AnswerLastDump(yes bool) error {
	if err := c.begin("answer last dump", AwaitingLastDumpAnswer); err != nil {
		return err
	}
	rec := c.Record()
	rec.LastDump = &yes
	if yes {
		c.end(AwaitingFinalShipmentAnswer, rec)
	} else {
		c.end(AwaitingLocation, rec)
	}
	return nil
}

// AnswerFinalShipment records whether the destination leaves the farm.
func (c *Controller) AnswerFinalShipment(yes bool) error {
	if err := c.begin("answer final shipment", AwaitingFinalShipmentAnswer); err != nil {
		return err
	}
	rec := c.Record()
	rec.FinalShipment = &yes
	if err := rec.Validate(); err != nil {
		c.end(AwaitingFinalShipmentAnswer, c.Record())
		return err
	}
	c.end(AwaitingLocation, rec)
	return nil
}

// Complete stamps the record with the time, waits up to the locate timeout
// for the position in AwaitingLocation, then submits it. A failed submission queues the record for
// later. Either way the controller returns to idle.
//
// When queuing fails only to persist, the record is still held by the queue
// in memory; the outcome is OutcomeSavedOffline and the error is returned.
func (c *Controller) Complete(ctx context.Context) (Outcome, error) {
	if err := c.begin("complete", AwaitingLocation); err != nil {
		return OutcomeNone, err
	}
	defer c.reset()
	rec := c.Record()
	ts := c.now().UTC().Truncate(time.Millisecond)
	rec.TimeStamp = &ts

	if loc, ok := c.locate(ctx); ok {
		rec.Location = &loc
	}
	c.mu.Lock()
	c.state = Submitting
	c.mu.Unlock()

	if err := rec.Ready(); err != nil {
		return OutcomeNone, err
	}

	submitErr := c.submitter.Submit(ctx, rec)
	if submitErr == nil {
		metrics.Transfers.WithLabelValues("submitted").Inc()
		c.log.Info("transfer submitted", "key", rec.Key().String())
		return OutcomeSubmitted, nil
	}
	c.log.Warn("submit failed, saving offline", "key", rec.Key().String(), "error", submitErr)

	if err := c.queue.Enqueue(context.WithoutCancel(ctx), rec); err != nil {
		if errors.Is(err, types.ErrPersistence) {
			metrics.Transfers.WithLabelValues("offline").Inc()
			return OutcomeSavedOffline, err
		}
		return OutcomeNone, fmt.Errorf("workflow: queue %s: %w", rec.Key(), err)
	}
	metrics.Transfers.WithLabelValues("offline").Inc()
	return OutcomeSavedOffline, nil
}

func (c *Controller) locate(ctx context.Context) (transfer.Coordinate, bool) {
	if c.locator == nil {
		return transfer.Coordinate{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.locateTimeout)
	defer cancel()
	loc, err := c.locator.Locate(ctx)
	if err != nil {
		c.log.Warn("location unavailable, submitting without it", "error", err)
		return transfer.Coordinate{}, false
	}
	return loc, true
}

// begin claims the controller for one operation if it is in one of the
// allowed states.
func (c *Controller) begin(op string, allowed ...State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return types.State(op + ": controller busy")
	}
	for _, s := range allowed {
		if c.state == s {
			c.busy = true
			return nil
		}
	}
	return types.State(fmt.Sprintf("%s: not allowed in state %s", op, c.state))
}

func (c *Controller) end(next State, rec transfer.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = next
	c.rec = rec
	c.busy = false
}

func (c *Controller) reset() {
	c.end(Idle, transfer.Record{})
}
