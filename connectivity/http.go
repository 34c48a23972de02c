package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultProbeInterval is how often HTTPProbe checks the backend.
const DefaultProbeInterval = 10 * time.Second

// HTTPProbe polls a URL and publishes whether it answered. Any response
// below 500 counts as reachable: the server is up even if it rejects the
// probe itself.
type HTTPProbe struct {
	*Broadcaster

	url      string
	interval time.Duration
	client   *http.Client
}

// NewHTTPProbe returns a probe of url. A non-positive interval uses
// DefaultProbeInterval; a nil client gets a 5 second timeout.
func NewHTTPProbe(url string, interval time.Duration, client *http.Client, log *slog.Logger) *HTTPProbe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPProbe{
		Broadcaster: NewBroadcaster(log),
		url:         url,
		interval:    interval,
		client:      client,
	}
}

// Check performs one probe.
func (p *HTTPProbe) Check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.log.Warn("probe request", "url", p.url, "error", err)
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("probe failed", "url", p.url, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, 64)
	return resp.StatusCode < http.StatusInternalServerError
}

// Run probes immediately and then every interval until ctx is done. The
// subscriber channels are closed on return.
func (p *HTTPProbe) Run(ctx context.Context) error {
	defer p.Close()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		up := p.Check(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.Publish(up)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
