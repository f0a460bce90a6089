package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopfabric/dispatch/pkg/carrier"
)

// Memory is an in-memory implementation of the repository contracts, used
// in tests and local development.
type Memory struct {
	mu           sync.RWMutex
	orders       map[string]*Order
	integrations []Integration
	logs         []ShippingLog
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{orders: make(map[string]*Order)}
}

// Close satisfies the same lifecycle contract as the SQL store.
func (m *Memory) Close() error { return nil }

// PutOrder seeds an order.
func (m *Memory) PutOrder(o *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

// PutIntegration seeds an integration.
func (m *Memory) PutIntegration(in Integration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations = append(m.integrations, in)
}

// GetForDispatch returns a copy of the order.
func (m *Memory) GetForDispatch(ctx context.Context, orderID string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", carrier.ErrOrderNotFound, orderID)
	}
	cp := *o
	return &cp, nil
}

// MarkShipped applies the success fields with the same conditional
// semantics as the SQL implementation.
func (m *Memory) MarkShipped(ctx context.Context, orderID string, res ShipmentResult, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", carrier.ErrOrderNotFound, orderID)
	}
	if o.Shipping.SentAt != nil && !force {
		return fmt.Errorf("%w: order %s", carrier.ErrAlreadySent, orderID)
	}

	sentAt := res.SentAt
	o.Shipping = ShippingState{
		Provider:        res.Provider,
		IntegrationID:   res.IntegrationID,
		TrackingNumber:  res.TrackingNumber,
		LabelURL:        res.LabelURL,
		SentAt:          &sentAt,
		Status:          string(carrier.StatusSent),
		StatusUpdatedAt: &sentAt,
		Data:            res.Data,
		RetryCount:      res.RetryCount,
	}
	return nil
}

// MarkFailed applies the failure fields together.
func (m *Memory) MarkFailed(ctx context.Context, orderID string, res FailureResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", carrier.ErrOrderNotFound, orderID)
	}
	at := res.At
	o.Shipping.Error = res.Error
	o.Shipping.Status = string(carrier.StatusFailed)
	o.Shipping.RetryCount = res.RetryCount
	o.Shipping.LastRetryAt = &at
	return nil
}

// UpdateTracking advances the shipping status.
func (m *Memory) UpdateTracking(ctx context.Context, orderID, status string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", carrier.ErrOrderNotFound, orderID)
	}
	o.Shipping.Status = status
	o.Shipping.StatusUpdatedAt = &at
	return nil
}

// ActiveShipping lists the company's active shipping integrations.
func (m *Memory) ActiveShipping(ctx context.Context, companyID string) ([]Integration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []Integration
	for _, in := range m.integrations {
		if in.CompanyID == companyID && in.Type == "shipping" && in.Active {
			result = append(result, in)
		}
	}
	return result, nil
}

// ActiveShippingByProvider finds the active integration of one carrier.
func (m *Memory) ActiveShippingByProvider(ctx context.Context, companyID, provider string) (*Integration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, in := range m.integrations {
		if in.CompanyID == companyID && in.Type == "shipping" && in.Provider == provider && in.Active {
			cp := in
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", carrier.ErrIntegrationNotFound, companyID, provider)
}

// Append stores one shipping log row.
func (m *Memory) Append(ctx context.Context, log *ShippingLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	m.logs = append(m.logs, *log)
	return nil
}

// ListByOrder returns the order's log rows, oldest first.
func (m *Memory) ListByOrder(ctx context.Context, orderID string) ([]ShippingLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ShippingLog
	for _, l := range m.logs {
		if l.OrderID == orderID {
			result = append(result, l)
		}
	}
	return result, nil
}

var (
	_ OrderRepository       = (*Memory)(nil)
	_ IntegrationRepository = (*Memory)(nil)
	_ ShippingLogRepository = (*Memory)(nil)
)
