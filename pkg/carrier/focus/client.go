// Package focus provides integration with the Focus courier "Run" API.
package focus

import (
	"context"
	"fmt"
	"time"

	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "focus"

// Config holds Focus adapter construction options.
type Config struct {
	Timeout time.Duration
	UseMock bool
}

// Client is the Focus carrier provider.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Focus client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{Timeout: cfg.Timeout})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// NewWithAPIClient creates a new Focus client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Name returns the carrier slug.
func (c *Client) Name() string {
	return carrierName
}

// DisplayName returns the human-readable carrier name.
func (c *Client) DisplayName() string {
	return "Focus Delivery"
}

// RequiredConfig returns the integration config keys the UI must collect.
func (c *Client) RequiredConfig() []string {
	return []string{"host", "customerNumber", "apiKey", "shipmentType", "cargoType"}
}

// Features describes Focus capabilities and dispatch limits.
func (c *Client) Features() carrier.Features {
	return carrier.Features{
		SupportsPickupPoints: true,
		SupportsCOD:          true,
		SupportsWebhook:      false,
		MaxRetries:           3,
		Timeout:              30 * time.Second,
	}
}

// ValidateConfig rejects an integration config before any network call.
func (c *Client) ValidateConfig(cfg *carrier.Config) error {
	if cfg.Host == "" {
		return fmt.Errorf("%w: host is required", carrier.ErrInvalidConfig)
	}
	if cfg.CustomerNumber == "" {
		return fmt.Errorf("%w: customerNumber is required", carrier.ErrInvalidConfig)
	}
	return nil
}

// ValidateOrder applies Focus-specific required-field checks, beyond the
// generic address validation the orchestrator already did.
func (c *Client) ValidateOrder(req *carrier.Request) error {
	if req.Address.Phone == "" {
		return fmt.Errorf("%w: recipient phone is required", carrier.ErrInvalidOrder)
	}
	if req.COD && req.Total.Amount <= 0 {
		return fmt.Errorf("%w: cash on delivery requires a positive total", carrier.ErrInvalidOrder)
	}
	return nil
}

// CreateShipment registers a shipment with Focus.
func (c *Client) CreateShipment(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error) {
	c.logger.Info("Creating Focus shipment",
		zap.String("order_id", req.OrderID),
		zap.String("reference", req.Reference),
		zap.String("city", req.Address.City),
		zap.Bool("cod", req.COD),
	)

	resp, err := c.apiClient.CreateShipment(ctx, cfg, req)
	if err != nil {
		c.logger.Error("Focus API error", zap.Error(err), zap.String("order_id", req.OrderID))
		return nil, err
	}

	if !resp.Success {
		c.logger.Warn("Focus rejected shipment",
			zap.String("order_id", req.OrderID),
			zap.String("error_code", resp.ErrorCode),
			zap.String("error", resp.Error),
			zap.Bool("retryable", resp.Retryable),
		)
	}
	return resp, nil
}

// CancelShipment cancels a shipment with Focus.
func (c *Client) CancelShipment(ctx context.Context, cfg *carrier.Config, req *carrier.CancelRequest) (*carrier.CancelResponse, error) {
	c.logger.Info("Cancelling Focus shipment",
		zap.String("shipment_id", req.ShipmentID),
		zap.String("reason", req.Reason),
	)

	resp, err := c.apiClient.CancelShipment(ctx, cfg, req.ShipmentID)
	if err != nil {
		c.logger.Error("Focus API error", zap.Error(err), zap.String("shipment_id", req.ShipmentID))
		return nil, err
	}
	return resp, nil
}

// GetLabel retrieves the shipping label from Focus.
func (c *Client) GetLabel(ctx context.Context, cfg *carrier.Config, req *carrier.LabelRequest) (*carrier.LabelResponse, error) {
	c.logger.Info("Getting Focus label", zap.String("shipment_id", req.ShipmentID))

	resp, err := c.apiClient.GetLabel(ctx, cfg, req.ShipmentID)
	if err != nil {
		c.logger.Error("Focus API error", zap.Error(err), zap.String("shipment_id", req.ShipmentID))
		return nil, err
	}
	return resp, nil
}

// GetTrackingStatus retrieves the tracking state from Focus.
func (c *Client) GetTrackingStatus(ctx context.Context, cfg *carrier.Config, req *carrier.TrackingRequest) (*carrier.TrackingStatus, error) {
	id := req.ShipmentID
	if id == "" {
		id = req.TrackingNumber
	}

	resp, err := c.apiClient.GetStatus(ctx, cfg, id)
	if err != nil {
		c.logger.Error("Focus API error", zap.Error(err), zap.String("shipment_id", id))
		return nil, err
	}
	return resp, nil
}

// GetPickupPoints lists Focus pickup spots, optionally filtered by city.
func (c *Client) GetPickupPoints(ctx context.Context, cfg *carrier.Config, city string) ([]carrier.PickupPoint, error) {
	return c.apiClient.ListSpots(ctx, cfg, city)
}

var (
	_ carrier.Provider          = (*Client)(nil)
	_ carrier.ConfigValidator   = (*Client)(nil)
	_ carrier.OrderValidator    = (*Client)(nil)
	_ carrier.PickupPointLister = (*Client)(nil)
)
