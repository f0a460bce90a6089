// Package dhl reserves the DHL carrier slot in the registry. The adapter
// is a stub until the DHL account contract is finalized.
package dhl

import (
	"context"
	"fmt"
	"time"

	"github.com/shopfabric/dispatch/pkg/carrier"
)

const carrierName = "dhl"

// Client is the DHL provider stub.
type Client struct{}

// New creates the DHL stub provider.
func New() *Client {
	return &Client{}
}

func (c *Client) Name() string        { return carrierName }
func (c *Client) DisplayName() string { return "DHL Express" }

func (c *Client) RequiredConfig() []string {
	return []string{"apiKey", "apiSecret", "customerNumber"}
}

func (c *Client) Features() carrier.Features {
	return carrier.Features{
		SupportsCOD: false,
		MaxRetries:  3,
		Timeout:     30 * time.Second,
	}
}

func (c *Client) CreateShipment(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error) {
	return nil, fmt.Errorf("%w: %s", carrier.ErrNotImplemented, carrierName)
}

func (c *Client) CancelShipment(ctx context.Context, cfg *carrier.Config, req *carrier.CancelRequest) (*carrier.CancelResponse, error) {
	return nil, fmt.Errorf("%w: %s", carrier.ErrNotImplemented, carrierName)
}

func (c *Client) GetLabel(ctx context.Context, cfg *carrier.Config, req *carrier.LabelRequest) (*carrier.LabelResponse, error) {
	return nil, fmt.Errorf("%w: %s", carrier.ErrNotImplemented, carrierName)
}

func (c *Client) GetTrackingStatus(ctx context.Context, cfg *carrier.Config, req *carrier.TrackingRequest) (*carrier.TrackingStatus, error) {
	return nil, fmt.Errorf("%w: %s", carrier.ErrNotImplemented, carrierName)
}

var _ carrier.Provider = (*Client)(nil)
