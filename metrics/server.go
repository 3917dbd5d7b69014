package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
)

// ServerConfig configures the metrics and health endpoint server.
type ServerConfig struct {
	ListenAddr string
	Log        *slog.Logger
	Gatherer   prometheus.Gatherer

	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// Server exposes /metrics and health endpoints while a publish run is in progress.
type Server struct {
	cfg     *ServerConfig
	isReady atomic.Bool
	log     *slog.Logger
	srv     *http.Server
}

// NewServer registers /metrics, /livez and /readyz. The server starts not ready.
func NewServer(cfg *ServerConfig) *Server {
	srv := &Server{
		cfg: cfg,
		log: cfg.Log,
	}
	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.Handle("/metrics", promhttp.HandlerFor(srv.cfg.Gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// Handler returns the router, for tests.
func (srv *Server) Handler() http.Handler {
	return srv.srv.Handler
}

// SetReady flips the readiness reported by /readyz.
func (srv *Server) SetReady(ready bool) {
	srv.isReady.Store(ready)
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// RunInBackground serves until Shutdown. Listen errors are logged.
func (srv *Server) RunInBackground() {
	go func() {
		srv.log.Info("Starting metrics server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("Metrics server failed", "err", err)
		}
	}()
}

// Shutdown waits up to GracefulShutdownDuration for open requests.
func (srv *Server) Shutdown() {
	srv.isReady.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful metrics server shutdown failed", "err", err)
	} else {
		srv.log.Info("Metrics server gracefully stopped")
	}
}
