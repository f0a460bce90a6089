package events_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopfabric/dispatch/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func TestSignAndVerify(t *testing.T) {
	body := []byte(`{"name":"order.shipping.sent"}`)

	sig := events.Sign(body, "secret")
	assert.NotEmpty(t, sig)
	assert.True(t, events.Verify(body, sig, "secret"))
}

func TestVerify_WrongSecret(t *testing.T) {
	body := []byte(`{"name":"order.shipping.sent"}`)
	sig := events.Sign(body, "secret")
	assert.False(t, events.Verify(body, sig, "other-secret"))
}

func TestVerify_TamperedBody(t *testing.T) {
	body := []byte(`{"name":"order.shipping.sent"}`)
	sig := events.Sign(body, "secret")
	assert.False(t, events.Verify([]byte(`{"name":"order.shipping.failed"}`), sig, "secret"))
}

func TestWebhookEmitter_Delivers(t *testing.T) {
	var gotBody []byte
	var gotSig string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(events.SignatureHeader)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	emitter := events.NewWebhookEmitter(events.WebhookConfig{
		Endpoints: []string{srv.URL},
		Secret:    "secret",
	}, otelzap.New(zap.NewNop()))

	ev := events.New(events.ShippingSent, "ord-1", "10045", "focus", map[string]any{
		"trackingNumber": "778899",
	})
	require.NoError(t, emitter.Emit(context.Background(), ev))

	// The signature covers the exact bytes that were posted.
	assert.True(t, events.Verify(gotBody, gotSig, "secret"))

	var decoded events.Event
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, events.ShippingSent, decoded.Name)
	assert.Equal(t, "ord-1", decoded.OrderID)
	assert.Equal(t, "778899", decoded.Payload["trackingNumber"])
	assert.NotEmpty(t, decoded.ID)
}

func TestWebhookEmitter_EndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	emitter := events.NewWebhookEmitter(events.WebhookConfig{
		Endpoints: []string{srv.URL},
		Secret:    "secret",
	}, otelzap.New(zap.NewNop()))

	err := emitter.Emit(context.Background(), events.New(events.ShippingFailed, "ord-1", "10045", "focus", nil))
	assert.Error(t, err)
}

func TestWebhookEmitter_DeliversToAllEndpoints(t *testing.T) {
	hits := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	})
	srv1 := httptest.NewServer(handler)
	defer srv1.Close()
	srv2 := httptest.NewServer(handler)
	defer srv2.Close()

	emitter := events.NewWebhookEmitter(events.WebhookConfig{
		Endpoints: []string{srv1.URL, srv2.URL},
	}, otelzap.New(zap.NewNop()))

	require.NoError(t, emitter.Emit(context.Background(), events.New(events.ShippingSent, "ord-1", "10045", "focus", nil)))
	assert.Equal(t, 2, hits)
}

func TestRecorder(t *testing.T) {
	rec := &events.Recorder{}
	require.NoError(t, rec.Emit(context.Background(), events.New(events.ShippingSent, "ord-1", "10045", "focus", nil)))
	require.NoError(t, rec.Emit(context.Background(), events.New(events.ShippingFailed, "ord-2", "10046", "focus", nil)))

	assert.Len(t, rec.Events, 2)
	assert.Len(t, rec.Named(events.ShippingSent), 1)
	assert.Len(t, rec.Named(events.ShippingFailed), 1)
	assert.Empty(t, rec.Named(events.ShippingStatusUpdated))
}
