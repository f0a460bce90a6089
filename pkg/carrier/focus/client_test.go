package focus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/shopfabric/dispatch/pkg/carrier/focus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*focus.Client, *focus.MockAPIClient) {
	t.Helper()
	mockAPI := focus.NewMockAPIClient()
	logger := otelzap.New(zap.NewNop())
	client := focus.NewWithAPIClient(focus.Config{Timeout: 5 * time.Second}, mockAPI, logger, nil)
	return client, mockAPI
}

func testCfg() *carrier.Config {
	return &carrier.Config{
		Host:           "https://focus.example.com",
		CustomerNumber: "7788",
	}
}

func TestClient_Name(t *testing.T) {
	client, _ := newTestClient(t)
	assert.Equal(t, "focus", client.Name())
	assert.Equal(t, "Focus Delivery", client.DisplayName())
}

func TestClient_Features(t *testing.T) {
	client, _ := newTestClient(t)
	feats := client.Features()
	assert.True(t, feats.SupportsPickupPoints)
	assert.True(t, feats.SupportsCOD)
	assert.Equal(t, 3, feats.MaxRetries)
	assert.Equal(t, 30*time.Second, feats.Timeout)
}

func TestClient_ValidateConfig(t *testing.T) {
	client, _ := newTestClient(t)

	assert.NoError(t, client.ValidateConfig(testCfg()))

	err := client.ValidateConfig(&carrier.Config{CustomerNumber: "7788"})
	assert.ErrorIs(t, err, carrier.ErrInvalidConfig)

	err = client.ValidateConfig(&carrier.Config{Host: "https://focus.example.com"})
	assert.ErrorIs(t, err, carrier.ErrInvalidConfig)
}

func TestClient_ValidateOrder_PhoneRequired(t *testing.T) {
	client, _ := newTestClient(t)

	req := carrier.NewRequest("ord-1", "10045")
	req.Address = carrier.Address{Name: "Dana", City: "Tel Aviv", Street: "Herzl"}

	err := client.ValidateOrder(req)
	assert.ErrorIs(t, err, carrier.ErrInvalidOrder)

	req.Address.Phone = "0501234567"
	assert.NoError(t, client.ValidateOrder(req))
}

func TestClient_ValidateOrder_CODNeedsTotal(t *testing.T) {
	client, _ := newTestClient(t)

	req := carrier.NewRequest("ord-1", "10045")
	req.Address.Phone = "0501234567"
	req.COD = true

	err := client.ValidateOrder(req)
	assert.ErrorIs(t, err, carrier.ErrInvalidOrder)

	req.Total = carrier.Money{Amount: 120}
	assert.NoError(t, client.ValidateOrder(req))
}

func TestClient_CreateShipment(t *testing.T) {
	client, mockAPI := newTestClient(t)
	mockAPI.OnCreateShipment = func(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error) {
		assert.Equal(t, "7788", cfg.CustomerNumber)
		return &carrier.Response{Success: true, ShipmentID: "778899", TrackingNumber: "778899"}, nil
	}

	req := carrier.NewRequest("ord-1", "10045")
	resp, err := client.CreateShipment(context.Background(), testCfg(), req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "778899", resp.ShipmentID)
	assert.Equal(t, 1, mockAPI.CreateCalls)
}

func TestClient_CreateShipment_Rejection(t *testing.T) {
	client, mockAPI := newTestClient(t)
	mockAPI.OnCreateShipment = func(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error) {
		return carrier.Failure("301", "duplicate reference", false), nil
	}

	resp, err := client.CreateShipment(context.Background(), testCfg(), carrier.NewRequest("ord-1", "10045"))
	require.NoError(t, err, "a business rejection is a response, not an error")
	assert.False(t, resp.Success)
	assert.False(t, resp.Retryable)
}

func TestClient_CreateShipment_APIError(t *testing.T) {
	client, mockAPI := newTestClient(t)
	mockAPI.SimulateErrors = true

	_, err := client.CreateShipment(context.Background(), testCfg(), carrier.NewRequest("ord-1", "10045"))
	require.Error(t, err)

	var cerr *carrier.CarrierError
	assert.True(t, errors.As(err, &cerr))
	assert.True(t, carrier.IsRetryable(err))
}

func TestClient_CancelShipment(t *testing.T) {
	client, _ := newTestClient(t)

	resp, err := client.CancelShipment(context.Background(), testCfg(), &carrier.CancelRequest{ShipmentID: "778899"})
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
}

func TestClient_GetLabel(t *testing.T) {
	client, _ := newTestClient(t)

	resp, err := client.GetLabel(context.Background(), testCfg(), &carrier.LabelRequest{ShipmentID: "778899"})
	require.NoError(t, err)
	assert.Equal(t, "pdf", resp.Format)
	assert.NotEmpty(t, resp.Data)
}

func TestClient_GetTrackingStatus(t *testing.T) {
	client, _ := newTestClient(t)

	ts, err := client.GetTrackingStatus(context.Background(), testCfg(), &carrier.TrackingRequest{TrackingNumber: "778899"})
	require.NoError(t, err)
	assert.Equal(t, carrier.StatusInTransit, ts.Status)
	assert.Equal(t, "778899", ts.TrackingNumber)
}

func TestClient_GetPickupPoints(t *testing.T) {
	client, _ := newTestClient(t)

	points, err := client.GetPickupPoints(context.Background(), testCfg(), "Tel Aviv")
	require.NoError(t, err)
	assert.NotEmpty(t, points)
	assert.Equal(t, "Tel Aviv", points[0].City)
}
