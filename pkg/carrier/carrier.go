// Package carrier provides an abstraction layer for shipping carriers.
package carrier

import (
	"context"
	"time"
)

// Provider defines the interface that all shipping carriers must implement.
type Provider interface {
	// Name returns the carrier slug (e.g., "focus", "dhl", "israelpost").
	Name() string

	// DisplayName returns the human-readable carrier name.
	DisplayName() string

	// RequiredConfig returns the integration config keys the carrier needs.
	RequiredConfig() []string

	// Features describes what the carrier supports and its dispatch limits.
	Features() Features

	// CreateShipment registers a shipment with the carrier. Expected
	// business failures (duplicate reference, rejected recipient) are
	// reported through Response, not through the error return. Credentials
	// come from the integration config, never from process state.
	CreateShipment(ctx context.Context, cfg *Config, req *Request) (*Response, error)

	// CancelShipment cancels an existing shipment.
	CancelShipment(ctx context.Context, cfg *Config, req *CancelRequest) (*CancelResponse, error)

	// GetLabel retrieves the shipping label for a shipment.
	GetLabel(ctx context.Context, cfg *Config, req *LabelRequest) (*LabelResponse, error)

	// GetTrackingStatus retrieves the current tracking state of a shipment.
	GetTrackingStatus(ctx context.Context, cfg *Config, req *TrackingRequest) (*TrackingStatus, error)
}

// Features describes carrier capabilities and dispatch limits.
type Features struct {
	SupportsPickupPoints    bool
	SupportsCOD             bool
	SupportsScheduledPickup bool
	SupportsWebhook         bool

	// MaxRetries bounds the orchestrator's retry loop for CreateShipment.
	// Zero means the orchestrator fallback applies.
	MaxRetries int

	// Timeout bounds each CreateShipment attempt. Zero means the
	// orchestrator fallback applies.
	Timeout time.Duration
}

// ConfigValidator is implemented by carriers that can reject an integration
// config before any network call is attempted.
type ConfigValidator interface {
	ValidateConfig(cfg *Config) error
}

// OrderValidator is implemented by carriers with required-field checks
// beyond the generic address validation (e.g., recipient phone).
type OrderValidator interface {
	ValidateOrder(req *Request) error
}

// PickupPointLister is implemented by carriers that expose staffed stores
// or lockers for recipient pickup.
type PickupPointLister interface {
	GetPickupPoints(ctx context.Context, cfg *Config, city string) ([]PickupPoint, error)
}

// WebhookProcessor is implemented by carriers that push tracking updates.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, cfg *Config, payload []byte, signature string) (*TrackingStatus, error)
}
