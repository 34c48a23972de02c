// Package backend talks to the traceability API: it submits transfer
// records and lists the ones already recorded for an employee.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/boxtrace/internal/circuitbreaker"
	"github.com/joshuapare/boxtrace/internal/logging"
	"github.com/joshuapare/boxtrace/internal/metrics"
	"github.com/joshuapare/boxtrace/pkg/types"
	"github.com/joshuapare/boxtrace/transfer"
)

// DefaultTimeout bounds one request.
const DefaultTimeout = 15 * time.Second

// Client is safe for concurrent use.
type Client struct {
	base       *url.URL
	employeeID string
	h          *http.Client
	brk        *circuitbreaker.Breaker
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.h = h
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.brk = b
		}
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for the API rooted at base. employeeID is sent with
// listings and with records that do not carry their own.
func New(base, employeeID string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend: base url %q: scheme must be http or https", base)
	}
	c := &Client{
		base:       u,
		employeeID: employeeID,
		h:          &http.Client{Timeout: DefaultTimeout},
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.brk == nil {
		c.brk = circuitbreaker.New(circuitbreaker.Config{
			OnStateChange: func(from, to circuitbreaker.State) {
				metrics.BreakerState.Set(float64(to))
				c.log.Warn("submission breaker changed state", "from", from.String(), "to", to.String())
			},
		})
	}
	return c, nil
}

// Breaker returns the circuit breaker guarding requests.
func (c *Client) Breaker() *circuitbreaker.Breaker { return c.brk }

// Submit posts rec. The record travels as query parameters with an empty
// body; absent optional fields are omitted. Only HTTP 200 counts as
// accepted. Every failure is a *types.Error of kind ErrKindSubmission.
func (c *Client) Submit(ctx context.Context, rec transfer.Record) error {
	if err := rec.Ready(); err != nil {
		return types.Submission("record not ready", err)
	}
	u := c.endpoint("transactions", c.submitQuery(rec))

	start := time.Now()
	status, body, err := c.do(ctx, http.MethodPost, u)
	metrics.SubmitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.Warn("submit failed", "key", rec.Key().String(), "error", err)
		return types.Submission("post transaction", err)
	}
	if status != http.StatusOK {
		c.log.Warn("submit rejected", "key", rec.Key().String(), "status", status)
		return types.Submission(fmt.Sprintf("post transaction: status %d: %s", status, snippet(body)), nil)
	}
	c.log.Info("transaction submitted", "key", rec.Key().String())
	return nil
}

// ListTransactions returns the employee's recorded transfers that carry a
// GPS position. Entries without one cannot be placed on a map and are
// dropped.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	q := url.Values{}
	q.Set("employeeId", c.employeeID)
	u := c.endpoint("transactions", q)

	status, body, err := c.do(ctx, http.MethodGet, u)
	if err != nil {
		return nil, types.Submission("list transactions", err)
	}
	if status != http.StatusOK {
		return nil, types.Submission(fmt.Sprintf("list transactions: status %d: %s", status, snippet(body)), nil)
	}

	var all []Transaction
	if err := json.Unmarshal(body, &all); err != nil {
		return nil, types.Decode("list transactions response", err)
	}
	out := all[:0]
	for _, t := range all {
		if t.GPS != nil {
			out = append(out, t)
		}
	}
	c.log.Debug("transactions listed", "total", len(all), "with_gps", len(out))
	return out, nil
}

// do runs one request through the breaker. Transport errors and 5xx
// responses count against the breaker; other statuses are returned to the
// caller to judge.
func (c *Client) do(ctx context.Context, method, u string) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	err := c.brk.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.h.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		status = resp.StatusCode
		body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("server error %d", status)
		}
		return nil
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrOpen) && status >= http.StatusInternalServerError {
		// The status is reported by the caller.
		return status, body, nil
	}
	return status, body, err
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + path
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) submitQuery(rec transfer.Record) url.Values {
	q := url.Values{}
	employee := rec.EmployeeID
	if employee == "" {
		employee = c.employeeID
	}
	q.Set("employeeId", employee)
	if rec.FarmerID != nil {
		q.Set("farmerId", *rec.FarmerID)
	}
	if rec.Location != nil {
		loc, _ := json.Marshal(rec.Location)
		q.Set("location", string(loc))
	}
	q.Set("source", rec.Source.String())
	q.Set("dest", rec.Dest.String())
	if rec.LastDump != nil {
		q.Set("last_dump", strconv.FormatBool(*rec.LastDump))
	}
	if rec.FinalShipment != nil {
		q.Set("final_shipment", strconv.FormatBool(*rec.FinalShipment))
	}
	q.Set("source_weight_kg", strconv.FormatFloat(rec.SourceWeightKg, 'f', -1, 64))
	q.Set("time_stamp", rec.TimeStamp.UTC().Format(transfer.TimeLayout))
	return q
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
