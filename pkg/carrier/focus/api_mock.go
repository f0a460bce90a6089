package focus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopfabric/dispatch/pkg/carrier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShipment func(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error)
	OnCancelShipment func(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.CancelResponse, error)
	OnGetLabel       func(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.LabelResponse, error)
	OnGetStatus      func(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.TrackingStatus, error)
	OnListSpots      func(ctx context.Context, cfg *carrier.Config, city string) ([]carrier.PickupPoint, error)

	CreateCalls int
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return carrier.NewCarrierError(carrierName, "MOCK_ERROR", "simulated API error").WithRetryable(true)
	}
	return nil
}

// CreateShipment returns a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error) {
	m.CreateCalls++
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, cfg, req)
	}

	shipNum := uuid.New().String()[:8]
	return &carrier.Response{
		Success:        true,
		ShipmentID:     shipNum,
		TrackingNumber: shipNum,
		Payload:        map[string]string{"distLine": "1", "distArea": "10"},
	}, nil
}

// CancelShipment cancels a mock shipment.
func (m *MockAPIClient) CancelShipment(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.CancelResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCancelShipment != nil {
		return m.OnCancelShipment(ctx, cfg, shipmentID)
	}
	return &carrier.CancelResponse{Cancelled: true, Message: "cancelled"}, nil
}

// GetLabel returns a mock label.
func (m *MockAPIClient) GetLabel(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.LabelResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetLabel != nil {
		return m.OnGetLabel(ctx, cfg, shipmentID)
	}
	return &carrier.LabelResponse{Format: "pdf", Data: []byte("%PDF-1.4 mock")}, nil
}

// GetStatus returns a mock tracking status.
func (m *MockAPIClient) GetStatus(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.TrackingStatus, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetStatus != nil {
		return m.OnGetStatus(ctx, cfg, shipmentID)
	}
	return &carrier.TrackingStatus{
		Status:         carrier.StatusInTransit,
		TrackingNumber: shipmentID,
		UpdatedAt:      time.Now(),
		Events: []carrier.TrackingEvent{
			{Timestamp: time.Now().Add(-time.Hour), Code: "2", Description: "Picked up"},
			{Timestamp: time.Now(), Code: "3", Description: "In transit"},
		},
	}, nil
}

// ListSpots returns mock pickup points.
func (m *MockAPIClient) ListSpots(ctx context.Context, cfg *carrier.Config, city string) ([]carrier.PickupPoint, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnListSpots != nil {
		return m.OnListSpots(ctx, cfg, city)
	}
	return []carrier.PickupPoint{
		{ID: "101", Name: "Center Locker", Address: "Herzl 12", City: city, Type: carrier.PickupLocker},
		{ID: "102", Name: "Main St Store", Address: "Main 3", City: city, Type: carrier.PickupStore},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
