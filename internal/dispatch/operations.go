package dispatch

import (
	"context"
	"fmt"

	"github.com/shopfabric/dispatch/internal/events"
	"github.com/shopfabric/dispatch/internal/store"
	"github.com/shopfabric/dispatch/pkg/carrier"
	"go.uber.org/zap"
)

// PickupPointCache caches carrier pickup-point listings. Implementations
// must treat misses as cheap; the carrier call is the expensive path.
type PickupPointCache interface {
	Get(ctx context.Context, key string) ([]carrier.PickupPoint, bool)
	Set(ctx context.Context, key string, points []carrier.PickupPoint)
}

// WithPickupCache attaches an optional pickup-point cache.
func (m *Manager) WithPickupCache(c PickupPointCache) *Manager {
	m.pickupCache = c
	return m
}

// loadProvider resolves the order's dispatched provider, its integration
// and parsed config. Shared setup for the post-dispatch operations.
func (m *Manager) loadProvider(ctx context.Context, orderID string) (*orderContext, error) {
	order, err := m.orders.GetForDispatch(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Shipping.SentAt == nil || order.Shipping.Provider == "" {
		return nil, fmt.Errorf("%w: order %s has no shipment", carrier.ErrOrderNotFound, orderID)
	}

	integration, err := m.integrations.ActiveShippingByProvider(ctx, order.CompanyID, order.Shipping.Provider)
	if err != nil {
		return nil, err
	}
	cfg, err := carrier.ParseConfig(integration.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", carrier.ErrInvalidConfig, err)
	}
	provider, err := m.registry.Get(order.Shipping.Provider)
	if err != nil {
		return nil, err
	}
	return &orderContext{order: order, cfg: cfg, provider: provider}, nil
}

type orderContext struct {
	order    *store.Order
	cfg      *carrier.Config
	provider carrier.Provider
}

// CancelShipment cancels the order's shipment with its carrier. Not
// retried: cancellation is a single-call operation.
func (m *Manager) CancelShipment(ctx context.Context, orderID, reason string) (*carrier.CancelResponse, error) {
	oc, err := m.loadProvider(ctx, orderID)
	if err != nil {
		return nil, err
	}
	status := carrier.Status(oc.order.Shipping.Status)
	if status.Terminal() {
		return nil, fmt.Errorf("%w: shipment is already %s", carrier.ErrCancellationNotAllowed, status)
	}

	resp, err := oc.provider.CancelShipment(ctx, oc.cfg, &carrier.CancelRequest{
		ShipmentID:     oc.order.Shipping.TrackingNumber,
		TrackingNumber: oc.order.Shipping.TrackingNumber,
		Reason:         reason,
	})
	if err != nil {
		return nil, err
	}

	if resp.Cancelled {
		now := m.now()
		if err := m.orders.UpdateTracking(ctx, orderID, string(carrier.StatusCancelled), now); err != nil {
			m.logger.Error("Failed to persist cancellation",
				zap.String("order_id", orderID), zap.Error(err))
		}
		m.emit(ctx, events.New(events.ShippingStatusUpdated, oc.order.ID, oc.order.Number, oc.provider.Name(), map[string]any{
			"status": string(carrier.StatusCancelled),
		}))
	}
	return resp, nil
}

// GetLabel retrieves the shipment label, preferring the URL already
// persisted on the order.
func (m *Manager) GetLabel(ctx context.Context, orderID string) (*carrier.LabelResponse, error) {
	oc, err := m.loadProvider(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if oc.order.Shipping.LabelURL != "" {
		return &carrier.LabelResponse{Format: "pdf", URL: oc.order.Shipping.LabelURL}, nil
	}
	return oc.provider.GetLabel(ctx, oc.cfg, &carrier.LabelRequest{
		ShipmentID:     oc.order.Shipping.TrackingNumber,
		TrackingNumber: oc.order.Shipping.TrackingNumber,
	})
}

// RefreshTracking queries the carrier for the shipment's current state and
// advances the persisted status monotonically. Regressions reported by the
// carrier are returned to the caller but never written back.
func (m *Manager) RefreshTracking(ctx context.Context, orderID string) (*carrier.TrackingStatus, error) {
	oc, err := m.loadProvider(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ts, err := oc.provider.GetTrackingStatus(ctx, oc.cfg, &carrier.TrackingRequest{
		ShipmentID:     oc.order.Shipping.TrackingNumber,
		TrackingNumber: oc.order.Shipping.TrackingNumber,
	})
	if err != nil {
		return nil, err
	}

	current := carrier.Status(oc.order.Shipping.Status)
	if ts.Status.Rank() > current.Rank() {
		now := m.now()
		if err := m.orders.UpdateTracking(ctx, orderID, string(ts.Status), now); err != nil {
			m.logger.Error("Failed to persist tracking update",
				zap.String("order_id", orderID), zap.Error(err))
		}
		m.emit(ctx, events.New(events.ShippingStatusUpdated, oc.order.ID, oc.order.Number, oc.provider.Name(), map[string]any{
			"status":         string(ts.Status),
			"trackingNumber": ts.TrackingNumber,
		}))
	}
	return ts, nil
}

// PickupPoints lists a carrier's pickup points for a company, cached per
// customer account and city.
func (m *Manager) PickupPoints(ctx context.Context, companyID, slug, city string) ([]carrier.PickupPoint, error) {
	integration, err := m.integrations.ActiveShippingByProvider(ctx, companyID, slug)
	if err != nil {
		return nil, err
	}
	cfg, err := carrier.ParseConfig(integration.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", carrier.ErrInvalidConfig, err)
	}
	provider, err := m.registry.Get(slug)
	if err != nil {
		return nil, err
	}
	lister, ok := provider.(carrier.PickupPointLister)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no pickup points", carrier.ErrNotImplemented, slug)
	}

	key := fmt.Sprintf("pickup:%s:%s:%s", slug, cfg.CustomerNumber, city)
	if m.pickupCache != nil {
		if points, ok := m.pickupCache.Get(ctx, key); ok {
			return points, nil
		}
	}

	points, err := lister.GetPickupPoints(ctx, cfg, city)
	if err != nil {
		return nil, err
	}
	if m.pickupCache != nil {
		m.pickupCache.Set(ctx, key, points)
	}
	return points, nil
}

// ProcessWebhook hands a carrier push notification to the provider and
// applies any tracking update it yields. The slug from the webhook URL
// must match the provider the order was dispatched through, so one
// carrier's push can never be verified by another adapter.
func (m *Manager) ProcessWebhook(ctx context.Context, orderID, slug string, payload []byte, signature string) (*carrier.TrackingStatus, error) {
	oc, err := m.loadProvider(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if oc.order.Shipping.Provider != slug {
		return nil, fmt.Errorf("%w: order %s was not dispatched via %s",
			carrier.ErrOrderNotFound, orderID, slug)
	}
	processor, ok := oc.provider.(carrier.WebhookProcessor)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no webhook support", carrier.ErrNotImplemented, oc.provider.Name())
	}

	ts, err := processor.ProcessWebhook(ctx, oc.cfg, payload, signature)
	if err != nil {
		return nil, err
	}

	current := carrier.Status(oc.order.Shipping.Status)
	if ts.Status.Rank() > current.Rank() {
		now := m.now()
		if err := m.orders.UpdateTracking(ctx, orderID, string(ts.Status), now); err != nil {
			m.logger.Error("Failed to persist webhook tracking update",
				zap.String("order_id", orderID), zap.Error(err))
		}
		m.emit(ctx, events.New(events.ShippingStatusUpdated, oc.order.ID, oc.order.Number, oc.provider.Name(), map[string]any{
			"status": string(ts.Status),
			"source": "webhook",
		}))
	}
	return ts, nil
}
