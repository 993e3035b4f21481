package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jacobrobertsbaca/blockybird/internal/bridge"
	"github.com/jacobrobertsbaca/blockybird/internal/config"
	"github.com/jacobrobertsbaca/blockybird/internal/onboarding"
)

// Service runs the registry and HTTP listener until interrupted.
type Service struct {
	cfg      config.Config
	registry *bridge.Registry
	server   *Server
	http     *http.Server
}

func NewService(cfg config.Config) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	registry := bridge.NewRegistry(bridge.RegistryConfig{
		SessionTTL:     cfg.SessionTTL,
		MaxSessions:    cfg.MaxSessions,
		ExperienceURL:  cfg.ExperienceURL,
		Options:        onboarding.Options{RecoverOnFailure: cfg.RecoverOnFailure},
		RequestTimeout: cfg.RequestTimeout,
	})
	srv := New(cfg, registry)
	return &Service{
		cfg:      cfg,
		registry: registry,
		server:   srv,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Service) Server() *Server {
	return s.server
}

func (s *Service) Registry() *bridge.Registry {
	return s.registry
}

// Run serves until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext serves until ctx is done, then shuts the listener down and
// drops every session.
func (s *Service) RunContext(ctx context.Context) error {
	regCtx, cancelRegistry := context.WithCancel(context.Background())
	regDone := make(chan struct{})
	go func() {
		defer close(regDone)
		s.registry.Run(regCtx)
	}()
	defer func() {
		cancelRegistry()
		<-regDone
	}()

	serveErr := make(chan error, 1)
	go func() {
		s.server.log.Info().Str("addr", s.cfg.Addr).Str("name", s.cfg.Name).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.server.log.Info().Msg("shutdown")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
			defer cancel()
			if err := s.http.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			return <-serveErr
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("server listen: %w", err)
			}
			return nil
		case <-ticker.C:
			s.server.Sweep()
			s.server.log.Debug().Int("sessions", s.registry.Len()).Msg("heartbeat")
		}
	}
}
