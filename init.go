package main

import (
	"context"

	"github.com/shopfabric/dispatch/internal/cache"
	"github.com/shopfabric/dispatch/internal/config"
	"github.com/shopfabric/dispatch/internal/dispatch"
	"github.com/shopfabric/dispatch/internal/events"
	"github.com/shopfabric/dispatch/internal/store"
	"github.com/shopfabric/dispatch/internal/telemetry"
	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/shopfabric/dispatch/pkg/carrier/dhl"
	"github.com/shopfabric/dispatch/pkg/carrier/focus"
	"github.com/shopfabric/dispatch/pkg/carrier/israelpost"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// dataStore is the full persistence surface the service wires up.
type dataStore interface {
	store.OrderRepository
	store.IntegrationRepository
	store.ShippingLogRepository
	Close() error
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics()
}

func initRegistry(cfg *config.Config, logger *otelzap.Logger) *carrier.Registry {
	registry := carrier.NewRegistry()

	var tracer trace.Tracer = otel.GetTracerProvider().Tracer(cfg.ServiceName)

	if cfg.FocusEnabled {
		registry.Register(focus.New(focus.Config{
			Timeout: cfg.FocusTimeout,
			UseMock: cfg.FocusUseMock,
		}, logger, tracer))
	}

	if cfg.DHLEnabled {
		registry.Register(dhl.New())
	}

	if cfg.IsraelPostEnabled {
		registry.Register(israelpost.New())
	}

	return registry
}

func initStore(cfg *config.Config) (dataStore, error) {
	if cfg.UseMemoryStore {
		return store.NewMemory(), nil
	}
	return store.NewPostgres(store.PostgresConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
}

func initEmitter(cfg *config.Config, logger *otelzap.Logger) events.Emitter {
	if len(cfg.WebhookEndpoints) == 0 {
		return events.Nop{}
	}
	return events.NewWebhookEmitter(events.WebhookConfig{
		Endpoints: cfg.WebhookEndpoints,
		Secret:    cfg.WebhookSecret,
		Timeout:   cfg.WebhookTimeout,
	}, logger)
}

func initCache(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (dispatch.PickupPointCache, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	return cache.NewRedis(ctx, cache.Config{Addr: cfg.RedisAddr, TTL: cfg.CacheTTL}, logger)
}
