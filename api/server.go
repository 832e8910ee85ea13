// Package api serves the status endpoints next to the pollers.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/aogosto/order-triage/pkg/config"
	"github.com/aogosto/order-triage/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server wraps http.Server with context-driven shutdown.
type Server struct {
	srv  *http.Server
	logg *logger.Logger
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logg: logg,
	}
}

// Run listens until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }
	errCh := make(chan error, 1)
	go func() {
		s.logg.Info(s.logg.WithField(ctx, "addr", ln.Addr().String()), "http.listening")
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logg.Info(ctx, "http.stopped")
	return ctx.Err()
}
