package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// Server serves the /metrics endpoint of a registry.
type Server struct {
	mu     sync.Mutex
	logger *logger.Logger
	gather prometheus.Gatherer
	srv    *http.Server
	ln     net.Listener
	addr   string
}

// NewServer creates a server for g (prometheus.DefaultGatherer when nil).
func NewServer(g prometheus.Gatherer, log *logger.Logger) *Server {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Server{gather: g, logger: log.Component("metrics")}
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return errors.New("metrics server already started")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	go func(addr string) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", err, logger.Field{Key: "addr", Value: addr})
		}
	}(s.addr)

	s.logger.Info("metrics endpoint enabled", logger.Field{Key: "addr", Value: s.addr})
	return nil
}

// Shutdown stops the server. Safe to call when not started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.addr = ""

	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	return nil
}

// Addr reports the actual listen address if running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
