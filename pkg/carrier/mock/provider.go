// Package mock provides a scriptable carrier provider for testing.
package mock

import (
	"context"
	"time"

	"github.com/shopfabric/dispatch/pkg/carrier"
)

// Provider is a mock carrier for testing the dispatch orchestrator.
type Provider struct {
	Slug    string
	Feats   carrier.Features
	Latency time.Duration

	OnCreateShipment func(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error)
	OnValidateConfig func(cfg *carrier.Config) error
	OnValidateOrder  func(req *carrier.Request) error
	OnCancel         func(ctx context.Context, cfg *carrier.Config, req *carrier.CancelRequest) (*carrier.CancelResponse, error)
	OnLabel          func(ctx context.Context, cfg *carrier.Config, req *carrier.LabelRequest) (*carrier.LabelResponse, error)
	OnTracking       func(ctx context.Context, cfg *carrier.Config, req *carrier.TrackingRequest) (*carrier.TrackingStatus, error)
	OnWebhook        func(ctx context.Context, cfg *carrier.Config, payload []byte, signature string) (*carrier.TrackingStatus, error)

	CreateCalls  int
	WebhookCalls int
}

// New creates a mock provider with sane defaults.
func New(slug string) *Provider {
	return &Provider{
		Slug: slug,
		Feats: carrier.Features{
			SupportsCOD: true,
			MaxRetries:  3,
			Timeout:     30 * time.Second,
		},
	}
}

func (p *Provider) Name() string               { return p.Slug }
func (p *Provider) DisplayName() string        { return p.Slug + " (mock)" }
func (p *Provider) RequiredConfig() []string   { return []string{"host", "customerNumber"} }
func (p *Provider) Features() carrier.Features { return p.Feats }

// ValidateConfig delegates to the hook when set.
func (p *Provider) ValidateConfig(cfg *carrier.Config) error {
	if p.OnValidateConfig != nil {
		return p.OnValidateConfig(cfg)
	}
	return nil
}

// ValidateOrder delegates to the hook when set.
func (p *Provider) ValidateOrder(req *carrier.Request) error {
	if p.OnValidateOrder != nil {
		return p.OnValidateOrder(req)
	}
	return nil
}

// CreateShipment counts calls and delegates to the hook, defaulting to a
// successful shipment.
func (p *Provider) CreateShipment(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error) {
	p.CreateCalls++
	if p.Latency > 0 {
		select {
		case <-time.After(p.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.OnCreateShipment != nil {
		return p.OnCreateShipment(ctx, cfg, req)
	}
	return &carrier.Response{
		Success:        true,
		ShipmentID:     p.Slug + "-" + req.OrderID,
		TrackingNumber: p.Slug + "-" + req.OrderID,
	}, nil
}

func (p *Provider) CancelShipment(ctx context.Context, cfg *carrier.Config, req *carrier.CancelRequest) (*carrier.CancelResponse, error) {
	if p.OnCancel != nil {
		return p.OnCancel(ctx, cfg, req)
	}
	return &carrier.CancelResponse{Cancelled: true}, nil
}

func (p *Provider) GetLabel(ctx context.Context, cfg *carrier.Config, req *carrier.LabelRequest) (*carrier.LabelResponse, error) {
	if p.OnLabel != nil {
		return p.OnLabel(ctx, cfg, req)
	}
	return &carrier.LabelResponse{Format: "pdf", Data: []byte("%PDF mock")}, nil
}

func (p *Provider) GetTrackingStatus(ctx context.Context, cfg *carrier.Config, req *carrier.TrackingRequest) (*carrier.TrackingStatus, error) {
	if p.OnTracking != nil {
		return p.OnTracking(ctx, cfg, req)
	}
	return &carrier.TrackingStatus{
		Status:         carrier.StatusSent,
		TrackingNumber: req.TrackingNumber,
		UpdatedAt:      time.Now(),
		CanCancel:      true,
	}, nil
}

// ProcessWebhook counts calls and delegates to the hook, defaulting to
// an in-transit update.
func (p *Provider) ProcessWebhook(ctx context.Context, cfg *carrier.Config, payload []byte, signature string) (*carrier.TrackingStatus, error) {
	p.WebhookCalls++
	if p.OnWebhook != nil {
		return p.OnWebhook(ctx, cfg, payload, signature)
	}
	return &carrier.TrackingStatus{
		Status:    carrier.StatusInTransit,
		UpdatedAt: time.Now(),
	}, nil
}

var (
	_ carrier.Provider         = (*Provider)(nil)
	_ carrier.ConfigValidator  = (*Provider)(nil)
	_ carrier.OrderValidator   = (*Provider)(nil)
	_ carrier.WebhookProcessor = (*Provider)(nil)
)
