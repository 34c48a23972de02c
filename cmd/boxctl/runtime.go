package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joshuapare/boxtrace/connectivity"
	"github.com/joshuapare/boxtrace/internal/backend"
	"github.com/joshuapare/boxtrace/internal/circuitbreaker"
	"github.com/joshuapare/boxtrace/internal/config"
	"github.com/joshuapare/boxtrace/internal/logging"
	"github.com/joshuapare/boxtrace/internal/metrics"
	"github.com/joshuapare/boxtrace/store"
	"github.com/joshuapare/boxtrace/syncq"
	"github.com/joshuapare/boxtrace/transfer"
	"github.com/joshuapare/boxtrace/workflow"
)

// runtime holds the components built from the config for commands that
// talk to the queue or the backend.
type runtime struct {
	cfg    *config.Config
	log    *slog.Logger
	store  store.Store
	queue  *syncq.Queue
	client *backend.Client

	closers []func() error
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log}

	if rt.store, err = rt.openStore(ctx); err != nil {
		return nil, err
	}
	rt.queue = syncq.New(rt.store, syncq.WithKey(cfg.Queue.Key), syncq.WithLogger(log))
	if err := rt.queue.Load(ctx); err != nil {
		// The queue starts empty; keep going so new transfers are not lost.
		printError("%v\n", err)
	}

	brk := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Backend.FailureThreshold,
		OpenTimeout:      cfg.Backend.OpenTimeout,
		OnStateChange: func(from, to circuitbreaker.State) {
			metrics.BreakerState.Set(float64(to))
			log.Warn("submission breaker changed state", "from", from.String(), "to", to.String())
		},
	})
	rt.client, err = backend.New(cfg.Backend.BaseURL, cfg.EmployeeID,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		backend.WithBreaker(brk),
		backend.WithLogger(log),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context) (store.Store, error) {
	switch rt.cfg.Queue.Backend {
	case config.QueueRedis:
		r, err := store.NewRedis(ctx, rt.cfg.Queue.RedisURL, rt.cfg.Queue.RedisPrefix)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, r.Close)
		return r, nil
	case config.QueueMemory:
		return store.NewMemory(), nil
	default:
		return store.NewFile(rt.cfg.Queue.Path)
	}
}

// locator returns the configured fixed position, or nil.
func (rt *runtime) locator() workflow.Locator {
	loc := rt.cfg.Location
	if loc.Latitude == nil || loc.Longitude == nil {
		return nil
	}
	return workflow.StaticLocator(transfer.Coordinate{Latitude: *loc.Latitude, Longitude: *loc.Longitude})
}

// observer builds the connectivity source for the configured mode. run is
// nil when the source needs no goroutine.
func (rt *runtime) observer() (obs connectivity.Observer, run func(context.Context) error) {
	c := rt.cfg.Connectivity
	switch c.Mode {
	case config.ModeMQTT:
		m := connectivity.NewMQTT(c.MQTTBroker, c.MQTTClientID, c.MQTTTopic, rt.log)
		return m, m.Run
	case config.ModeHTTP:
		p := connectivity.NewHTTPProbe(rt.cfg.ProbeURL(), c.ProbeInterval, nil, rt.log)
		return p, p.Run
	default:
		return connectivity.Static(true), nil
	}
}

func (rt *runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Log.Level
	switch {
	case quiet:
		level = "error"
	case verbose:
		level = "debug"
	}
	log, err := logging.New(level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return log, nil
}
