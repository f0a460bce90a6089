package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 signature of the JSON body.
const SignatureHeader = "X-Shopfabric-Signature"

// Sign computes the hex HMAC-SHA256 of a raw payload.
func Sign(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature in constant time.
func Verify(rawBody []byte, signature, secret string) bool {
	expected := Sign(rawBody, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookEmitter posts signed JSON events to merchant-configured endpoints.
type WebhookEmitter struct {
	endpoints  []string
	secret     string
	httpClient *http.Client
	logger     *otelzap.Logger
}

// WebhookConfig holds emitter settings.
type WebhookConfig struct {
	Endpoints []string
	Secret    string
	Timeout   time.Duration
}

// NewWebhookEmitter creates a webhook-backed emitter.
func NewWebhookEmitter(cfg WebhookConfig, logger *otelzap.Logger) *WebhookEmitter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookEmitter{
		endpoints:  cfg.Endpoints,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Emit delivers the event to every endpoint. Per-endpoint failures are
// logged and folded into the returned error, which callers treat as
// non-fatal.
func (e *WebhookEmitter) Emit(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", ev.Name, err)
	}
	signature := Sign(body, e.secret)

	var firstErr error
	for _, endpoint := range e.endpoints {
		if err := e.post(ctx, endpoint, body, signature); err != nil {
			e.logger.Warn("Webhook delivery failed",
				zap.String("event", ev.Name),
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *WebhookEmitter) post(ctx context.Context, endpoint string, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

var _ Emitter = (*WebhookEmitter)(nil)
