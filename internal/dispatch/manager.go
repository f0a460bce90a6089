// Package dispatch owns the end-to-end carrier dispatch algorithm:
// idempotency, validation, provider selection, the bounded retry loop,
// persistence and event emission.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopfabric/dispatch/internal/events"
	"github.com/shopfabric/dispatch/internal/store"
	"github.com/shopfabric/dispatch/internal/telemetry"
	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Fallbacks applied when a provider's Features leave a limit unset.
const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
	defaultBaseDelay  = 5 * time.Second
)

// SendOptions modify a single SendOrder invocation.
type SendOptions struct {
	// AutoSend marks the dispatch as triggered by an order-lifecycle
	// event rather than an operator.
	AutoSend bool

	// TriggerEvent names the lifecycle event behind an auto-send.
	TriggerEvent string

	// ForceResend overrides the idempotency guard for an operator who
	// explicitly wants a second shipment.
	ForceResend bool

	// UserID identifies the operator, empty for auto-sends.
	UserID string
}

// Manager orchestrates shipment dispatch against external carriers.
type Manager struct {
	registry     *carrier.Registry
	orders       store.OrderRepository
	integrations store.IntegrationRepository
	logs         store.ShippingLogRepository
	emitter      events.Emitter
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics

	baseDelay   time.Duration
	pickupCache PickupPointCache

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Deps carries the Manager's collaborators.
type Deps struct {
	Registry     *carrier.Registry
	Orders       store.OrderRepository
	Integrations store.IntegrationRepository
	Logs         store.ShippingLogRepository
	Emitter      events.Emitter
	Logger       *otelzap.Logger
	Metrics      *telemetry.Metrics

	// BaseDelay overrides the linear backoff base, zero keeps the default.
	BaseDelay time.Duration
}

// NewManager creates a dispatch manager.
func NewManager(deps Deps) *Manager {
	baseDelay := deps.BaseDelay
	if baseDelay == 0 {
		baseDelay = defaultBaseDelay
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Manager{
		registry:     deps.Registry,
		orders:       deps.Orders,
		integrations: deps.Integrations,
		logs:         deps.Logs,
		emitter:      emitter,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		baseDelay:    baseDelay,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendOrder dispatches an order to a carrier. Setup and validation
// failures (steps 1-8) return an error and cost no network call beyond
// what already happened; once the carrier loop starts, every outcome is
// reported through the returned Response, never through the error value.
func (m *Manager) SendOrder(ctx context.Context, orderID, slug string, opts SendOptions) (*carrier.Response, error) {
	started := time.Now()

	// 1. Load the order with its items and shipping state.
	order, err := m.orders.GetForDispatch(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// 2. Idempotency guard: a successful dispatch to the same provider
	// locks the order unless the operator forces a resend.
	if order.Shipping.SentAt != nil && order.Shipping.Provider == slug && !opts.ForceResend {
		return nil, fmt.Errorf("%w: order %s already sent via %s at %s",
			carrier.ErrAlreadySent, orderID, slug, order.Shipping.SentAt.Format(time.RFC3339))
	}

	// 3. Address validation, before any network call.
	if order.Address.City == "" || order.Address.Street == "" {
		return nil, fmt.Errorf("%w: city and street are required", carrier.ErrInvalidAddress)
	}

	// 4. Integration lookup scoped to the order's company.
	integration, err := m.integrations.ActiveShippingByProvider(ctx, order.CompanyID, slug)
	if err != nil {
		return nil, err
	}
	cfg, err := carrier.ParseConfig(integration.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", carrier.ErrInvalidConfig, err)
	}

	// 5. Provider lookup.
	provider, err := m.registry.Get(slug)
	if err != nil {
		return nil, err
	}

	// 6. Config validation when the adapter supports it.
	if v, ok := provider.(carrier.ConfigValidator); ok {
		if err := v.ValidateConfig(cfg); err != nil {
			return nil, err
		}
	}

	// 7. Pure translation of the persisted order into a carrier request.
	req := buildRequest(order, cfg)

	// 8. Carrier-specific order validation when the adapter supports it.
	if v, ok := provider.(carrier.OrderValidator); ok {
		if err := v.ValidateOrder(req); err != nil {
			return nil, err
		}
	}

	// 9. Bounded retry loop.
	resp, attempts := m.dispatch(ctx, provider, cfg, req, opts)

	// 10. Persist outcome and emit events, best-effort.
	m.persistOutcome(ctx, order, integration, slug, resp, attempts, opts)

	status := "failed"
	if resp.Success {
		status = "success"
	}
	if m.metrics != nil {
		m.metrics.RecordDispatch(slug, status, time.Since(started).Seconds(), attempts)
	}

	// 11. Dispatch-phase outcomes are data, not errors.
	return resp, nil
}

// dispatch runs the retry loop: at most maxRetries+1 sequential attempts,
// each raced against a per-call timeout, with linear backoff between them.
// It returns the final response and the number of attempts consumed.
func (m *Manager) dispatch(ctx context.Context, provider carrier.Provider, cfg *carrier.Config, req *carrier.Request, opts SendOptions) (*carrier.Response, int) {
	feats := provider.Features()
	maxRetries := feats.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := feats.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var last *carrier.Response
	attempts := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		attempts = attempt + 1
		start := time.Now()
		resp, err := m.attempt(ctx, provider, cfg, req, timeout)
		duration := time.Since(start)

		switch {
		case err != nil:
			retryable := carrier.IsRetryable(err)
			last = carrier.Failure(errorCode(err), err.Error(), retryable)
			m.appendLog(ctx, req, provider.Name(), nil, last, duration, attempt)
			if m.metrics != nil {
				m.metrics.RecordCarrierError(provider.Name(), errorCode(err))
			}
			m.logger.Warn("Shipment attempt failed",
				zap.String("order_id", req.OrderID),
				zap.String("carrier", provider.Name()),
				zap.Int("attempt", attempt),
				zap.Bool("retryable", retryable),
				zap.Error(err),
			)
			if !retryable {
				return last, attempts
			}
		case resp.Success:
			m.appendLog(ctx, req, provider.Name(), resp, resp, duration, attempt)
			return resp, attempts
		default:
			// Business rejection: retrying cannot change the outcome.
			last = resp
			m.appendLog(ctx, req, provider.Name(), resp, resp, duration, attempt)
			if !resp.Retryable {
				return last, attempts
			}
		}

		if attempt < maxRetries {
			delay := m.baseDelay * time.Duration(attempt+1)
			if err := m.sleep(ctx, delay); err != nil {
				break
			}
		}
	}

	if last == nil {
		// Every attempt threw without a structured response.
		last = carrier.Failure("DISPATCH_FAILED", "all dispatch attempts failed", true)
	}
	return last, attempts
}

// attempt races one CreateShipment call against the per-call timeout. The
// loser's result is discarded; the context cancellation aborts the HTTP
// call so a slow attempt cannot race a retry into a duplicate shipment.
func (m *Manager) attempt(ctx context.Context, provider carrier.Provider, cfg *carrier.Config, req *carrier.Request, timeout time.Duration) (*carrier.Response, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		resp *carrier.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := provider.CreateShipment(actx, cfg, req)
		ch <- result{resp, err}
	}()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-actx.Done():
		return nil, fmt.Errorf("shipment creation timed out after %s: %w", timeout, actx.Err())
	}
}

// appendLog writes one append-only log row per attempt. Log failures never
// affect the dispatch outcome.
func (m *Manager) appendLog(ctx context.Context, req *carrier.Request, slug string, resp, outcome *carrier.Response, duration time.Duration, attempt int) {
	status := "failed"
	if outcome.Success {
		status = "success"
	}
	reqJSON, _ := json.Marshal(req)
	var respJSON []byte
	if resp != nil {
		respJSON, _ = json.Marshal(resp)
	}

	row := &store.ShippingLog{
		OrderID:  req.OrderID,
		Provider: slug,
		Action:   "create",
		Status:   status,
		Request:  string(reqJSON),
		Response: string(respJSON),
		Error:    outcome.Error,
		Duration: duration,
		Attempt:  attempt,
	}
	if err := m.logs.Append(ctx, row); err != nil {
		m.logger.Error("Failed to append shipping log",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
	}
}

// persistOutcome writes the order's shipping sub-state and emits the
// lifecycle event. Persistence failures are logged, never surfaced.
func (m *Manager) persistOutcome(ctx context.Context, order *store.Order, integration *store.Integration, slug string, resp *carrier.Response, attempts int, opts SendOptions) {
	retryCount := attempts - 1
	now := m.now()

	if resp.Success {
		// A dispatch through a different provider than the one recorded
		// passed the idempotency guard on purpose; the write must
		// overwrite the stale provider's fields, not be rejected by the
		// conditional update.
		overwrite := opts.ForceResend ||
			(order.Shipping.SentAt != nil && order.Shipping.Provider != slug)
		err := m.orders.MarkShipped(ctx, order.ID, store.ShipmentResult{
			Provider:       slug,
			IntegrationID:  integration.ID,
			TrackingNumber: resp.TrackingNumber,
			LabelURL:       resp.LabelURL,
			SentAt:         now,
			Data:           resp.Payload,
			RetryCount:     retryCount,
		}, overwrite)
		if err != nil {
			m.logger.Error("Failed to persist shipment success",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
		m.emit(ctx, events.New(events.ShippingSent, order.ID, order.Number, slug, map[string]any{
			"trackingNumber": resp.TrackingNumber,
			"autoSend":       opts.AutoSend,
			"retryCount":     retryCount,
		}))
		return
	}

	err := m.orders.MarkFailed(ctx, order.ID, store.FailureResult{
		Error:      resp.Error,
		RetryCount: retryCount,
		At:         now,
	})
	if err != nil {
		m.logger.Error("Failed to persist shipment failure",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
	m.emit(ctx, events.New(events.ShippingFailed, order.ID, order.Number, slug, map[string]any{
		"error":      resp.Error,
		"errorCode":  resp.ErrorCode,
		"retryCount": retryCount,
		"retryable":  resp.Retryable,
	}))
}

func (m *Manager) emit(ctx context.Context, ev events.Event) {
	if err := m.emitter.Emit(ctx, ev); err != nil {
		m.logger.Warn("Event emission failed",
			zap.String("event", ev.Name),
			zap.String("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}

func errorCode(err error) string {
	var carrierErr *carrier.CarrierError
	if errors.As(err, &carrierErr) {
		return carrierErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	return "NETWORK_ERROR"
}

// buildRequest translates the persisted order into the transient carrier
// request. Pure mapping, no side effects.
func buildRequest(order *store.Order, cfg *carrier.Config) *carrier.Request {
	req := carrier.NewRequest(order.ID, order.Number)
	req.CustomerName = order.CustomerName
	req.CustomerEmail = order.CustomerEmail
	req.Notes = order.Notes
	req.Total = carrier.Money{Amount: order.Total, Currency: order.Currency}
	req.COD = order.CODRequested && cfg.CODEnabled
	req.PickupPointID = order.PickupPointID

	req.Address = carrier.Address{
		Name:      order.Address.Name,
		Phone:     order.Address.Phone,
		Email:     order.Address.Email,
		City:      order.Address.City,
		Street:    order.Address.Street,
		House:     order.Address.House,
		Apartment: order.Address.Apartment,
		Floor:     order.Address.Floor,
		Entrance:  order.Address.Entrance,
		Zip:       order.Address.Zip,
		Country:   order.Address.Country,
	}
	if req.Address.Name == "" {
		req.Address.Name = order.CustomerName
	}

	req.Items = make([]carrier.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		req.Items = append(req.Items, carrier.LineItem{Name: item.Name, Quantity: item.Quantity})
	}
	return req
}
