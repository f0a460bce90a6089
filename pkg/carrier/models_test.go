package carrier_test

import (
	"testing"

	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/stretchr/testify/assert"
)

func TestStatus_Rank_Monotonic(t *testing.T) {
	assert.Less(t, carrier.StatusPending.Rank(), carrier.StatusSent.Rank())
	assert.Less(t, carrier.StatusSent.Rank(), carrier.StatusInTransit.Rank())
	assert.Less(t, carrier.StatusInTransit.Rank(), carrier.StatusDelivered.Rank())
}

func TestStatus_Rank_Unknown(t *testing.T) {
	// Unknown statuses rank below everything so they never overwrite.
	assert.Equal(t, -1, carrier.Status("bogus").Rank())
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, carrier.StatusDelivered.Terminal())
	assert.True(t, carrier.StatusCancelled.Terminal())
	assert.True(t, carrier.StatusReturned.Terminal())
	assert.False(t, carrier.StatusSent.Terminal())
	assert.False(t, carrier.StatusInTransit.Terminal())
}

func TestNewRequest_Defaults(t *testing.T) {
	req := carrier.NewRequest("ord-1", "10045")
	assert.Equal(t, "ord-1", req.OrderID)
	assert.Equal(t, "10045", req.OrderNumber)
	assert.Equal(t, "10045", req.Reference, "reference defaults to order number")
	assert.Equal(t, 1, req.PackageCount())
}

func TestRequest_PackageCount(t *testing.T) {
	req := carrier.NewRequest("ord-1", "10045")
	req.Packages = []carrier.Package{
		{Quantity: 2},
		{Quantity: 0}, // zero counts as one parcel
		{Quantity: 3},
	}
	assert.Equal(t, 6, req.PackageCount())
}

func TestRequest_PackageCount_NoPackages(t *testing.T) {
	req := &carrier.Request{}
	assert.Equal(t, 1, req.PackageCount())
}

func TestAddress_Complete(t *testing.T) {
	addr := carrier.Address{Name: "Dana", Phone: "0501234567", City: "Tel Aviv", Street: "Herzl"}
	assert.True(t, addr.Complete())

	addr.Phone = ""
	assert.False(t, addr.Complete())
}

func TestFailure(t *testing.T) {
	resp := carrier.Failure("301", "duplicate reference", false)
	assert.False(t, resp.Success)
	assert.Equal(t, "301", resp.ErrorCode)
	assert.Equal(t, "duplicate reference", resp.Error)
	assert.False(t, resp.Retryable)
}
