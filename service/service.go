package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/infra/op-spec/metrics"
)

// Service serves /healthz and /metrics while a run is in progress
type Service struct {
	log      log.Logger
	server   *http.Server
	listener net.Listener
	running  atomic.Bool
	done     chan struct{}
}

// New creates a service; nothing listens until Start
func New(logger log.Logger) *Service {
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	return &Service{log: logger}
}

// Handler returns the service's routes wrapped in a permissive CORS handler
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(mux)
}

// Start listens on addr and serves in the background. Use port 0 to pick a free port.
func (s *Service) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		metrics.RecordErrorDetails("service listen", err)
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)
		s.log.Info("Service started", "addr", listener.Addr().String())
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Service stopped unexpectedly", "err", err)
			metrics.RecordErrorDetails("service serve", err)
		}
	}()
	return nil
}

// Addr returns the address the service listens on, or "" before Start
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and waits for it to exit
func (s *Service) Stop(ctx context.Context) error {
	if s.server == nil || !s.running.Swap(false) {
		return nil
	}
	err := s.server.Shutdown(ctx)
	<-s.done
	s.log.Info("Service stopped")
	return err
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("Received health check request", "path", r.URL.Path)
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("OK"))
}
