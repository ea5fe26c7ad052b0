package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sectools/secrules/internal/ctl"
	"github.com/sectools/secrules/internal/metrics"
)

type Server struct {
	config *Config
	server *http.Server
	ctl    *ctl.Server
	svc    *Services
}

func New(config *Config) (*Server, error) {
	config.withDefaults()
	metrics.Register()

	svc, err := NewServices(config)
	if err != nil {
		return nil, err
	}

	var auditor ctl.Auditor
	if svc.Audit != nil {
		auditor = svc.Audit
	}
	ctlServer := ctl.NewServer(config.Control.Socket, svc.Store, svc.Exports, auditor)

	return &Server{
		config: config,
		svc:    svc,
		ctl:    ctlServer,
		server: &http.Server{
			Addr:    config.HTTP.Addr,
			Handler: SetupRoutes(svc),
		},
	}, nil
}

// Start runs the HTTP API and the control socket until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	slog.Info("secrules server start")
	defer slog.Info("secrules server stop")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.ctl.Serve(gctx)
	})

	g.Go(func() error {
		if err := s.runHTTPServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			return err
		}
		slog.Info("http server stopped")
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("secrules shutdown signal")
		return s.Stop(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.svc.Shutdown(shutdownCtx)
}

func (s *Server) runHTTPServer() error {
	if s.config.HTTP.CertFile != "" && s.config.HTTP.KeyFile != "" {
		slog.Info("server start tls", "addr", s.config.HTTP.Addr, "cert", s.config.HTTP.CertFile, "key", s.config.HTTP.KeyFile)
		return s.server.ListenAndServeTLS(s.config.HTTP.CertFile, s.config.HTTP.KeyFile)
	}
	slog.Info("server start http", "addr", s.config.HTTP.Addr, "socket", s.config.Control.Socket)
	return s.server.ListenAndServe()
}
