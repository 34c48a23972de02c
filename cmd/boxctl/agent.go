package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/boxtrace/connectivity"
	"github.com/joshuapare/boxtrace/internal/circuitbreaker"
	"github.com/joshuapare/boxtrace/syncq"
)

var agentNoServer bool

func init() {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Watch connectivity and submit queued transfers when it returns",
		Long: `The agent command runs until interrupted. It watches backend connectivity
and, a few seconds after the connection comes back, submits the offline queue
in order. It also serves /healthz, /status, POST /drain and /metrics on the
configured metrics address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&agentNoServer, "no-server", false, "Do not start the status server")
	rootCmd.AddCommand(cmd)
}

func runAgent(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	obs, runObserver := rt.observer()
	watcher := syncq.NewWatcher(rt.queue, rt.client.Submit,
		syncq.WithSettleDelay(rt.cfg.Queue.SettleDelay),
		syncq.WithWatcherLogger(rt.log),
	)
	watcher.OnDrain = func(res syncq.DrainResult, err error) {
		if err != nil {
			printError("drain: %v\n", err)
			return
		}
		printVerbose("Submitted %d queued transfer(s), %d remaining\n", res.Submitted, res.Remaining)
	}

	session := uuid.NewString()
	log := rt.log.With("session", session)
	log.Info("agent started", "queue_len", rt.queue.Len(), "mode", rt.cfg.Connectivity.Mode)

	g, gCtx := errgroup.WithContext(ctx)

	if runObserver != nil {
		g.Go(func() error {
			return runObserver(gCtx)
		})
	}

	g.Go(func() error {
		return watcher.Run(gCtx, obs.Subscribe())
	})

	if !agentNoServer {
		st := &agentStatus{
			session: session,
			queue:   rt.queue,
			submit:  rt.client.Submit,
			breaker: rt.client.Breaker(),
			obs:     obs,
		}
		g.Go(func() error {
			return runStatusServer(gCtx, rt.cfg.Metrics.Addr, newStatusRouter(st), log)
		})
	}

	// Signal handler
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("agent stopped", "queue_len", rt.queue.Len())
	return nil
}

// agentStatus is what the status endpoints report on and act against.
type agentStatus struct {
	session string
	queue   *syncq.Queue
	submit  syncq.SubmitFunc
	breaker *circuitbreaker.Breaker
	obs     connectivity.Observer
}

type statusResponse struct {
	Session   string `json:"session"`
	QueueLen  int    `json:"queue_len"`
	Connected *bool  `json:"connected"`
	Breaker   string `json:"breaker"`
}

type drainResponse struct {
	Submitted int    `json:"submitted"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

func newStatusRouter(st *agentStatus) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/status", st.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/drain", st.handleDrain).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func (st *agentStatus) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Session:  st.session,
		QueueLen: st.queue.Len(),
		Breaker:  "disabled",
	}
	if st.breaker != nil {
		resp.Breaker = st.breaker.State().String()
	}
	if s, ok := st.obs.(interface{ State() (bool, bool) }); ok {
		if up, known := s.State(); known {
			resp.Connected = &up
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (st *agentStatus) handleDrain(w http.ResponseWriter, r *http.Request) {
	res, err := st.queue.Drain(r.Context(), st.submit)
	resp := drainResponse{Submitted: res.Submitted, Remaining: res.Remaining}
	code := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		code = http.StatusBadGateway
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func runStatusServer(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("status server started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
