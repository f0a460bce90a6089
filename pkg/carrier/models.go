package carrier

import (
	"time"
)

// Status represents the normalized status of a shipment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
	StatusReturned  Status = "returned"
)

// statusRank orders statuses so tracking updates only ever advance.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusInTransit: 2,
	StatusFailed:    3,
	StatusDelivered: 4,
	StatusCancelled: 4,
	StatusReturned:  4,
}

// Rank returns the monotonic ordering position of a status. Unknown
// statuses rank lowest so they never overwrite a known state.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// PickupPointType distinguishes staffed stores from self-service lockers.
type PickupPointType string

const (
	PickupLocker PickupPointType = "locker"
	PickupStore  PickupPointType = "store"
)

// Address is the shipping destination for a single dispatch.
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

// Complete reports whether the address carries the minimum fields required
// before a dispatch is attempted.
func (a Address) Complete() bool {
	return a.City != "" && a.Street != "" && a.Name != "" && a.Phone != ""
}

// Package is one parcel within a shipment.
type Package struct {
	Weight   float64 // kg, zero when unknown
	Length   float64
	Width    float64
	Height   float64
	Quantity int
}

// EffectiveQuantity returns the parcel count, defaulting to 1.
func (p Package) EffectiveQuantity() int {
	if p.Quantity <= 0 {
		return 1
	}
	return p.Quantity
}

// LineItem is an order line reduced to what carriers accept.
type LineItem struct {
	Name     string
	Quantity int
}

// Money represents a monetary amount.
type Money struct {
	Amount   float64
	Currency string
}

// Request is the transient shipping order built fresh for every dispatch
// attempt from the persisted order. It is never stored independently.
type Request struct {
	OrderID     string
	OrderNumber string

	// Reference is the carrier-assigned reference; defaults to OrderNumber.
	Reference string

	CustomerName  string
	CustomerEmail string

	Address  Address
	Packages []Package
	Items    []LineItem
	Notes    string

	// Total is used only when cash-on-delivery is requested.
	Total Money
	COD   bool

	PickupPointID string
}

// NewRequest builds a Request with the reference defaulted to the order
// number and at least one package.
func NewRequest(orderID, orderNumber string) *Request {
	return &Request{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Reference:   orderNumber,
		Packages:    []Package{{Quantity: 1}},
	}
}

// PackageCount returns the total parcel count across all packages.
func (r *Request) PackageCount() int {
	n := 0
	for _, p := range r.Packages {
		n += p.EffectiveQuantity()
	}
	if n == 0 {
		n = 1
	}
	return n
}

// Response is the result of one CreateShipment call. It is the single
// channel through which adapters communicate outcome to the orchestrator.
type Response struct {
	Success bool

	// Set on success.
	ShipmentID     string
	TrackingNumber string
	LabelURL       string
	LabelData      []byte
	Payload        map[string]string

	// Set on failure.
	Error     string
	ErrorCode string

	// Retryable drives the orchestrator's retry loop: business rejections
	// are terminal, transient carrier conditions are not.
	Retryable bool
}

// Failure builds a failed Response.
func Failure(code, message string, retryable bool) *Response {
	return &Response{Error: message, ErrorCode: code, Retryable: retryable}
}

// TrackingEvent is one entry in a shipment's status history.
type TrackingEvent struct {
	Timestamp   time.Time
	Code        string
	Description string
}

// TrackingStatus is the result of a tracking query.
type TrackingStatus struct {
	Status         Status
	TrackingNumber string
	UpdatedAt      time.Time
	DriverName     string
	DriverPhone    string
	Events         []TrackingEvent

	// CanCancel is true only while the shipment is still pending or sent.
	CanCancel bool
}

// PickupPoint is a carrier-operated pickup location.
type PickupPoint struct {
	ID        string
	Name      string
	Address   string
	City      string
	Hours     string
	Type      PickupPointType
	Latitude  float64
	Longitude float64
}

// CancelRequest asks the carrier to cancel an existing shipment.
type CancelRequest struct {
	ShipmentID     string
	TrackingNumber string
	Reason         string
}

// CancelResponse reports the cancellation outcome.
type CancelResponse struct {
	Cancelled bool
	Message   string
}

// LabelRequest asks for the label of an existing shipment.
type LabelRequest struct {
	ShipmentID     string
	TrackingNumber string
}

// LabelResponse carries the label as bytes or as a hosted URL.
type LabelResponse struct {
	Format string // e.g. "pdf"
	Data   []byte
	URL    string
}

// TrackingRequest asks for the tracking state of an existing shipment.
type TrackingRequest struct {
	ShipmentID     string
	TrackingNumber string
}
