// Package store defines the repository contracts the dispatch core uses to
// reach the platform datastore, plus the persisted shapes it reads/writes.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Address is the persisted shipping address on an order row.
type Address struct {
	Name      string
	Phone     string
	Email     string
	City      string
	Street    string
	House     string
	Apartment string
	Floor     string
	Entrance  string
	Zip       string
	Country   string
}

// OrderItem is one persisted order line.
type OrderItem struct {
	Name     string
	Quantity int
}

// ShippingState is the order's shipping sub-state. All fields are
// null/absent at order creation; success fields are written together,
// failure fields are written together, never mixed.
type ShippingState struct {
	Provider        string
	IntegrationID   string
	TrackingNumber  string
	LabelURL        string
	SentAt          *time.Time
	Status          string
	StatusUpdatedAt *time.Time
	Data            map[string]string
	Error           string
	RetryCount      int
	LastRetryAt     *time.Time
}

// Order is the persisted order with everything a dispatch needs.
type Order struct {
	ID             string
	Number         string
	CompanyID      string
	ShopID         string
	CustomerName   string
	CustomerEmail  string
	DeliveryMethod string
	PickupPointID  string
	Notes          string
	Total          float64
	Currency       string
	CODRequested   bool
	Address        Address
	Items          []OrderItem
	Shipping       ShippingState
}

// Integration is a per-company carrier configuration row. The config blob
// schema is owned by the integrations service; this core only reads it.
type Integration struct {
	ID        string
	CompanyID string
	Type      string // "shipping"
	Provider  string // carrier slug
	Active    bool
	Config    json.RawMessage
}

// ShippingLog is one append-only row per dispatch attempt. Rows are never
// updated after insert.
type ShippingLog struct {
	ID        string
	OrderID   string
	Provider  string
	Action    string // "create"
	Status    string // "success" | "failed"
	Request   string
	Response  string
	Error     string
	Duration  time.Duration
	Attempt   int
	CreatedAt time.Time
}

// ShipmentResult carries the success fields written atomically after a
// dispatch succeeds.
type ShipmentResult struct {
	Provider       string
	IntegrationID  string
	TrackingNumber string
	LabelURL       string
	SentAt         time.Time
	Data           map[string]string
	RetryCount     int
}

// FailureResult carries the failure fields written together after a
// dispatch exhausts its attempts.
type FailureResult struct {
	Error      string
	RetryCount int
	At         time.Time
}

// OrderRepository is the order-side datastore contract.
type OrderRepository interface {
	// GetForDispatch loads the order with its items and shipping state.
	GetForDispatch(ctx context.Context, orderID string) (*Order, error)

	// MarkShipped writes the success fields in one conditional update:
	// unless force is set, the write only applies while shipping_sent_at
	// is still null, so two concurrent dispatches cannot both win.
	MarkShipped(ctx context.Context, orderID string, res ShipmentResult, force bool) error

	// MarkFailed writes the failure fields together.
	MarkFailed(ctx context.Context, orderID string, res FailureResult) error

	// UpdateTracking advances the shipping status from a tracking query.
	UpdateTracking(ctx context.Context, orderID, status string, at time.Time) error
}

// IntegrationRepository is the integration-side datastore contract.
type IntegrationRepository interface {
	// ActiveShipping lists all active shipping integrations for a company.
	ActiveShipping(ctx context.Context, companyID string) ([]Integration, error)

	// ActiveShippingByProvider finds the active integration of one carrier
	// for a company.
	ActiveShippingByProvider(ctx context.Context, companyID, provider string) (*Integration, error)
}

// ShippingLogRepository is the append-only dispatch log contract.
type ShippingLogRepository interface {
	Append(ctx context.Context, log *ShippingLog) error
	ListByOrder(ctx context.Context, orderID string) ([]ShippingLog, error)
}
