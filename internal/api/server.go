// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the admin HTTP endpoint: health probes, Prometheus
// metrics and a small JSON API to inspect and steer the bridge.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/qemu-vmnet/internal/api/middleware"
	"github.com/ManuGH/qemu-vmnet/internal/bridge"
	"github.com/ManuGH/qemu-vmnet/internal/config"
)

// TracingService names the admin HTTP spans.
const TracingService = "qemu-vmnet-admin"

// DefaultRateLimit is used when Config.RateLimit is not positive.
const DefaultRateLimit = config.DefaultAdminRateLimit

// ErrMissingBridge is returned by New when no bridge is supplied.
var ErrMissingBridge = errors.New("api: bridge is required")

// Bridge is the part of the forwarding engine the API exposes.
type Bridge interface {
	Running() bool
	Clients() []bridge.Client
	Evict(mac net.HardwareAddr) bool
	Limits() bridge.Limits
}

// ConfigReloader triggers a configuration reload.
type ConfigReloader interface {
	Reload(ctx context.Context) (config.ChangeSummary, error)
}

// Config tunes the admin server.
type Config struct {
	// RateLimit is the number of /api requests per minute and client IP.
	RateLimit int
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server routes admin requests.
type Server struct {
	bridge   Bridge
	reloader ConfigReloader
	cfg      Config
	router   chi.Router
}

// New builds the admin server. reloader may be nil, in which case
// POST /api/config/reload answers 501.
func New(cfg Config, b Bridge, reloader ConfigReloader) (*Server, error) {
	if b == nil {
		return nil, ErrMissingBridge
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		bridge:   b,
		reloader: reloader,
		cfg:      cfg,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Tracing(TracingService))
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIRateLimit(s.cfg.RateLimit))

		r.Get("/clients", s.handleListClients)
		r.Delete("/clients/{mac}", s.handleEvictClient)
		r.Get("/limits", s.handleLimits)
		r.Post("/config/reload", s.handleConfigReload)
	})

	return r
}
