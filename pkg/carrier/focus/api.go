package focus

import (
	"context"

	"github.com/shopfabric/dispatch/pkg/carrier"
)

// APIClient defines the interface for Focus "Run" server operations. This
// abstraction allows for mock implementations during testing and real
// implementations in production.
type APIClient interface {
	// CreateShipment registers a shipment and returns the decoded outcome.
	CreateShipment(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error)

	// CancelShipment cancels an existing shipment.
	CancelShipment(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.CancelResponse, error)

	// GetLabel retrieves the label for a shipment.
	GetLabel(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.LabelResponse, error)

	// GetStatus retrieves the tracking state of a shipment.
	GetStatus(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.TrackingStatus, error)

	// ListSpots retrieves pickup points, optionally filtered by city.
	ListSpots(ctx context.Context, cfg *carrier.Config, city string) ([]carrier.PickupPoint, error)
}
