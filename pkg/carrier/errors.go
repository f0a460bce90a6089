package carrier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// CarrierError represents an error from a shipping carrier.
type CarrierError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *CarrierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CarrierError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for CarrierError.
func (e *CarrierError) Is(target error) bool {
	t, ok := target.(*CarrierError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewCarrierError creates a new CarrierError.
func NewCarrierError(carrier, code, message string) *CarrierError {
	return &CarrierError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *CarrierError) WithCause(err error) *CarrierError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *CarrierError) WithStatusCode(code int) *CarrierError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *CarrierError) WithRetryable(retryable bool) *CarrierError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common dispatch scenarios.
var (
	// ErrOrderNotFound indicates the order id does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrAlreadySent indicates the order was already dispatched to this
	// provider and forceResend was not requested.
	ErrAlreadySent = errors.New("order already sent to carrier")

	// ErrInvalidAddress indicates the shipping address is incomplete.
	ErrInvalidAddress = errors.New("invalid shipping address")

	// ErrIntegrationNotFound indicates no active carrier integration is
	// configured for the company.
	ErrIntegrationNotFound = errors.New("shipping integration not found")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrInvalidConfig indicates the integration config is incomplete.
	ErrInvalidConfig = errors.New("invalid carrier configuration")

	// ErrInvalidOrder indicates carrier-specific order validation failed.
	ErrInvalidOrder = errors.New("order fails carrier validation")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrCancellationNotAllowed indicates the shipment cannot be cancelled.
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")

	// ErrLabelNotAvailable indicates the label is not yet available.
	ErrLabelNotAvailable = errors.New("label not available")

	// ErrServiceUnavailable indicates the carrier service is temporarily
	// unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrNotImplemented indicates the carrier stub does not support the
	// operation yet.
	ErrNotImplemented = errors.New("operation not implemented for carrier")
)

// IsRetryable classifies an error as transient. Timeouts, refused or reset
// connections, DNS failures and HTTP >=500 responses are retryable;
// everything else is terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) {
		if carrierErr.StatusCode >= 500 {
			return true
		}
		return carrierErr.Retryable
	}

	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	return false
}
