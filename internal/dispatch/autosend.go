package dispatch

import (
	"context"
	"sync"

	"github.com/shopfabric/dispatch/internal/telemetry"
	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// AutoSender dispatches orders automatically when an order-lifecycle event
// matches an integration's autoSend configuration. Work runs on a bounded
// pool off the event path; errors are logged and never surface to the
// caller that raised the event.
type AutoSender struct {
	manager *Manager
	logger  *otelzap.Logger
	metrics *telemetry.Metrics

	workers int
	tasks   chan autoSendTask
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

type autoSendTask struct {
	orderID string
	event   string
}

// AutoSenderConfig sizes the worker pool.
type AutoSenderConfig struct {
	Workers   int
	QueueSize int
}

// NewAutoSender creates an auto-send trigger backed by the manager.
func NewAutoSender(cfg AutoSenderConfig, manager *Manager, logger *otelzap.Logger, metrics *telemetry.Metrics) *AutoSender {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 128
	}
	return &AutoSender{
		manager: manager,
		logger:  logger,
		metrics: metrics,
		workers: workers,
		tasks:   make(chan autoSendTask, queueSize),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled or
// Stop closes the queue.
func (a *AutoSender) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		for i := 0; i < a.workers; i++ {
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				for {
					select {
					case task, ok := <-a.tasks:
						if !ok {
							return
						}
						a.process(ctx, task)
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	})
}

// Stop closes the queue and waits for in-flight tasks.
func (a *AutoSender) Stop() {
	a.stopOnce.Do(func() {
		close(a.tasks)
	})
	a.wg.Wait()
}

// OrderEvent enqueues an order-lifecycle event for auto-send evaluation.
// It never blocks the event path: when the queue is full the task is
// dropped and logged.
func (a *AutoSender) OrderEvent(orderID, event string) {
	select {
	case a.tasks <- autoSendTask{orderID: orderID, event: event}:
	default:
		a.logger.Warn("Auto-send queue full, dropping task",
			zap.String("order_id", orderID),
			zap.String("event", event),
		)
	}
}

// process decides whether any integration wants this event and dispatches
// through the first matching one. Only one auto-send integration fires per
// event.
func (a *AutoSender) process(ctx context.Context, task autoSendTask) {
	order, err := a.manager.orders.GetForDispatch(ctx, task.orderID)
	if err != nil {
		a.logger.Warn("Auto-send: order load failed",
			zap.String("order_id", task.orderID), zap.Error(err))
		return
	}
	if order.Shipping.SentAt != nil {
		return // already dispatched, nothing to do
	}

	integrations, err := a.manager.integrations.ActiveShipping(ctx, order.CompanyID)
	if err != nil {
		a.logger.Warn("Auto-send: integration lookup failed",
			zap.String("order_id", task.orderID), zap.Error(err))
		return
	}

	for _, in := range integrations {
		cfg, err := carrier.ParseConfig(in.Config)
		if err != nil {
			a.logger.Warn("Auto-send: unparseable integration config",
				zap.String("integration_id", in.ID), zap.Error(err))
			continue
		}
		if !cfg.AutoSend || cfg.AutoSendOn != task.event {
			continue
		}
		if !cfg.AllowsShippingMethod(order.DeliveryMethod) {
			continue
		}

		a.logger.Info("Auto-send dispatching order",
			zap.String("order_id", order.ID),
			zap.String("carrier", in.Provider),
			zap.String("event", task.event),
		)

		resp, err := a.manager.SendOrder(ctx, order.ID, in.Provider, SendOptions{
			AutoSend:     true,
			TriggerEvent: task.event,
		})
		status := "success"
		switch {
		case err != nil:
			status = "error"
			a.logger.Error("Auto-send dispatch failed",
				zap.String("order_id", order.ID),
				zap.String("carrier", in.Provider),
				zap.Error(err),
			)
		case !resp.Success:
			status = "rejected"
		}
		if a.metrics != nil {
			a.metrics.RecordAutoSend(in.Provider, status)
		}
		return
	}
}
