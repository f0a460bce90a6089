// Package server exposes the dispatch core over an internal HTTP API used
// by the platform's admin surface and order pipeline.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopfabric/dispatch/internal/dispatch"
	"github.com/shopfabric/dispatch/internal/telemetry"
	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the dispatch service.
type Server struct {
	port       int
	manager    *dispatch.Manager
	autoSender *dispatch.AutoSender
	registry   *carrier.Registry
	logger     *otelzap.Logger
	metrics    *telemetry.Metrics
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, manager *dispatch.Manager, autoSender *dispatch.AutoSender, registry *carrier.Registry, logger *otelzap.Logger, metrics *telemetry.Metrics) *Server {
	return &Server{
		port:       cfg.Port,
		manager:    manager,
		autoSender: autoSender,
		registry:   registry,
		logger:     logger,
		metrics:    metrics,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/orders/{orderID}", func(r chi.Router) {
		r.Post("/dispatch", s.handleDispatch)
		r.Route("/shipment", func(r chi.Router) {
			r.Post("/cancel", s.handleCancel)
			r.Get("/label", s.handleLabel)
			r.Get("/tracking", s.handleTracking)
		})
	})

	r.Get("/carriers", s.handleCarriers)
	r.Get("/carriers/{slug}/pickup-points", s.handlePickupPoints)
	r.Post("/webhooks/{slug}/{orderID}", s.handleWebhook)
	r.Post("/events/order", s.handleOrderEvent)

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
