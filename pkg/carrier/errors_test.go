package carrier_test

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/stretchr/testify/assert"
)

func TestCarrierError_Error(t *testing.T) {
	err := carrier.NewCarrierError("focus", "INVALID_ADDRESS", "Missing city")
	assert.Equal(t, "focus error (INVALID_ADDRESS): Missing city", err.Error())
}

func TestCarrierError_ErrorWithCause(t *testing.T) {
	cause := errors.New("network timeout")
	err := carrier.NewCarrierError("focus", "API_ERROR", "API call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "API call failed")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestCarrierError_Unwrap(t *testing.T) {
	cause := errors.New("network timeout")
	err := carrier.NewCarrierError("focus", "API_ERROR", "API call failed").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestCarrierError_Is(t *testing.T) {
	err1 := carrier.NewCarrierError("focus", "INVALID_ADDRESS", "Missing city")
	err2 := carrier.NewCarrierError("dhl", "INVALID_ADDRESS", "Different message")

	// Same code should match
	assert.True(t, errors.Is(err1, err2))
}

func TestCarrierError_IsNot(t *testing.T) {
	err1 := carrier.NewCarrierError("focus", "INVALID_ADDRESS", "Missing city")
	err2 := carrier.NewCarrierError("focus", "DIFFERENT_CODE", "Different error")

	// Different codes should not match
	assert.False(t, errors.Is(err1, err2))
}

func TestCarrierError_WithStatusCode(t *testing.T) {
	err := carrier.NewCarrierError("focus", "AUTH_FAILED", "Unauthorized").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}

func TestCarrierError_WithRetryable(t *testing.T) {
	err := carrier.NewCarrierError("focus", "RATE_LIMIT", "Too many requests").WithRetryable(true)
	assert.True(t, err.Retryable)
}

func TestIsRetryable_CarrierError(t *testing.T) {
	err := carrier.NewCarrierError("focus", "RATE_LIMIT", "Too many requests").WithRetryable(true)
	assert.True(t, carrier.IsRetryable(err))
}

func TestIsRetryable_CarrierErrorNotRetryable(t *testing.T) {
	err := carrier.NewCarrierError("focus", "INVALID_ADDRESS", "Bad address").WithRetryable(false)
	assert.False(t, carrier.IsRetryable(err))
}

func TestIsRetryable_CarrierErrorServerStatus(t *testing.T) {
	// A 5xx from the carrier is always retryable, even when the adapter
	// forgot to flag it.
	err := carrier.NewCarrierError("focus", "HTTP_503", "upstream down").WithStatusCode(503)
	assert.True(t, carrier.IsRetryable(err))
}

func TestIsRetryable_DeadlineExceeded(t *testing.T) {
	assert.True(t, carrier.IsRetryable(context.DeadlineExceeded))
}

func TestIsRetryable_NetTimeout(t *testing.T) {
	var err error = &net.DNSError{Err: "timeout", IsTimeout: true}
	assert.True(t, carrier.IsRetryable(err))
}

func TestIsRetryable_ConnectionRefused(t *testing.T) {
	assert.True(t, carrier.IsRetryable(syscall.ECONNREFUSED))
	assert.True(t, carrier.IsRetryable(syscall.ECONNRESET))
}

func TestIsRetryable_ServiceUnavailable(t *testing.T) {
	assert.True(t, carrier.IsRetryable(carrier.ErrServiceUnavailable))
}

func TestIsRetryable_RateLimitExceeded(t *testing.T) {
	assert.True(t, carrier.IsRetryable(carrier.ErrRateLimitExceeded))
}

func TestIsRetryable_InvalidAddress(t *testing.T) {
	assert.False(t, carrier.IsRetryable(carrier.ErrInvalidAddress))
}

func TestIsRetryable_Nil(t *testing.T) {
	assert.False(t, carrier.IsRetryable(nil))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrOrderNotFound", carrier.ErrOrderNotFound},
		{"ErrAlreadySent", carrier.ErrAlreadySent},
		{"ErrInvalidAddress", carrier.ErrInvalidAddress},
		{"ErrIntegrationNotFound", carrier.ErrIntegrationNotFound},
		{"ErrCarrierNotFound", carrier.ErrCarrierNotFound},
		{"ErrInvalidConfig", carrier.ErrInvalidConfig},
		{"ErrInvalidOrder", carrier.ErrInvalidOrder},
		{"ErrAuthenticationFailed", carrier.ErrAuthenticationFailed},
		{"ErrCancellationNotAllowed", carrier.ErrCancellationNotAllowed},
		{"ErrLabelNotAvailable", carrier.ErrLabelNotAvailable},
		{"ErrServiceUnavailable", carrier.ErrServiceUnavailable},
		{"ErrRateLimitExceeded", carrier.ErrRateLimitExceeded},
		{"ErrNotImplemented", carrier.ErrNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
