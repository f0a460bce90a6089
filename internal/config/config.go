package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Datastore
	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"dispatch"`
	DBPassword     string `envconfig:"DB_PASSWORD"`
	DBName         string `envconfig:"DB_NAME" default:"shopfabric"`
	DBSSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	UseMemoryStore bool   `envconfig:"USE_MEMORY_STORE" default:"false"`

	// Cache
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"6h"`

	// Dispatch
	RetryBaseDelay  time.Duration `envconfig:"RETRY_BASE_DELAY" default:"5s"`
	AutoSendWorkers int           `envconfig:"AUTOSEND_WORKERS" default:"2"`
	AutoSendQueue   int           `envconfig:"AUTOSEND_QUEUE" default:"128"`

	// Carriers
	FocusEnabled bool          `envconfig:"FOCUS_ENABLED" default:"true"`
	FocusTimeout time.Duration `envconfig:"FOCUS_TIMEOUT" default:"30s"`
	FocusUseMock bool          `envconfig:"FOCUS_USE_MOCK" default:"false"`

	DHLEnabled        bool `envconfig:"DHL_ENABLED" default:"false"`
	IsraelPostEnabled bool `envconfig:"ISRAELPOST_ENABLED" default:"false"`

	// Events
	WebhookEndpoints []string      `envconfig:"WEBHOOK_ENDPOINTS"`
	WebhookSecret    string        `envconfig:"WEBHOOK_SECRET"`
	WebhookTimeout   time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"shopfabric-dispatch"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("focus.enabled", c.FocusEnabled),
		attribute.Bool("dhl.enabled", c.DHLEnabled),
		attribute.Bool("israelpost.enabled", c.IsraelPostEnabled),
	}
}
