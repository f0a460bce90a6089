package focus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopfabric/dispatch/pkg/carrier"
)

const endpointPath = "/RunCom.Server/Request.aspx"

// HTTPAPIClient is the production implementation of APIClient. The host and
// credentials come from the integration config on every call because each
// tenant carries its own Focus account.
type HTTPAPIClient struct {
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAPIClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// run issues one GET against the carrier's Run server and returns the raw
// body plus its content type.
func (c *HTTPAPIClient) run(ctx context.Context, cfg *carrier.Config, program string, args []string) (string, []byte, error) {
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		return "", nil, fmt.Errorf("%w: host missing", carrier.ErrInvalidConfig)
	}

	query := url.Values{}
	query.Set("APPNAME", "run")
	query.Set("PRGNAME", program)
	query.Set("ARGUMENTS", strings.Join(args, ","))

	reqURL := host + endpointPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	req.Header.Set("Accept", "application/xml, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", nil, carrier.NewCarrierError(carrierName, "AUTH_FAILED", "carrier rejected credentials").
			WithStatusCode(resp.StatusCode).
			WithCause(carrier.ErrAuthenticationFailed).
			WithRetryable(false)
	case resp.StatusCode >= 500:
		return "", nil, carrier.NewCarrierError(carrierName, fmt.Sprintf("HTTP_%d", resp.StatusCode), "carrier server error").
			WithStatusCode(resp.StatusCode).
			WithRetryable(true)
	case resp.StatusCode != http.StatusOK:
		return "", nil, carrier.NewCarrierError(carrierName, fmt.Sprintf("HTTP_%d", resp.StatusCode), strings.TrimSpace(string(body))).
			WithStatusCode(resp.StatusCode).
			WithRetryable(false)
	}

	return resp.Header.Get("Content-Type"), body, nil
}

func isXML(contentType string) bool {
	return strings.Contains(contentType, "xml")
}

// CreateShipment encodes the positional argument list, issues the call and
// decodes either the XML or the delimited-text response shape.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, cfg *carrier.Config, req *carrier.Request) (*carrier.Response, error) {
	args := buildCreateArgs(cfg, req)

	contentType, body, err := c.run(ctx, cfg, progCreate, args)
	if err != nil {
		return nil, err
	}
	if isXML(contentType) {
		return decodeCreateXML(body)
	}
	return decodeCreateTXT(body)
}

// CancelShipment cancels a shipment. Not retried here: retry policy is the
// orchestrator's responsibility and applies to creation only.
func (c *HTTPAPIClient) CancelShipment(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.CancelResponse, error) {
	args := []string{
		text(cfg.CustomerNumber),
		num(shipmentID),
	}
	_, body, err := c.run(ctx, cfg, progCancel, args)
	if err != nil {
		return nil, err
	}

	msg := strings.TrimSpace(string(body))
	return &carrier.CancelResponse{
		Cancelled: cancellationSucceeded(msg),
		Message:   msg,
	}, nil
}

// GetLabel retrieves the shipment label, either as inline PDF bytes or as a
// hosted URL depending on what the carrier returns.
func (c *HTTPAPIClient) GetLabel(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.LabelResponse, error) {
	args := []string{
		text(cfg.CustomerNumber),
		num(shipmentID),
		text("PDF"),
	}
	contentType, body, err := c.run(ctx, cfg, progLabel, args)
	if err != nil {
		return nil, err
	}

	if strings.Contains(contentType, "pdf") {
		return &carrier.LabelResponse{Format: "pdf", Data: body}, nil
	}
	return decodeLabelXML(body)
}

// GetStatus retrieves the tracking state of a shipment.
func (c *HTTPAPIClient) GetStatus(ctx context.Context, cfg *carrier.Config, shipmentID string) (*carrier.TrackingStatus, error) {
	args := []string{
		text(cfg.CustomerNumber),
		num(shipmentID),
		text("XML"),
	}
	_, body, err := c.run(ctx, cfg, progStatus, args)
	if err != nil {
		return nil, err
	}
	return decodeStatusXML(body)
}

// ListSpots retrieves the carrier's pickup points.
func (c *HTTPAPIClient) ListSpots(ctx context.Context, cfg *carrier.Config, city string) ([]carrier.PickupPoint, error) {
	args := []string{
		text(cfg.CustomerNumber),
		text(city),
		text("XML"),
	}
	_, body, err := c.run(ctx, cfg, progSpots, args)
	if err != nil {
		return nil, err
	}
	return decodeSpotsXML(body)
}

var _ APIClient = (*HTTPAPIClient)(nil)
