package carrier

import (
	"encoding/json"
	"fmt"
)

// Config is the typed view of an integration's carrier configuration.
// The shared base covers every carrier; carrier-specific keys live in
// Extra and are interpreted by the adapter that owns them.
type Config struct {
	APIKey         string `json:"apiKey"`
	APISecret      string `json:"apiSecret"`
	Host           string `json:"host"`
	CustomerNumber string `json:"customerNumber"`

	// Cash on delivery.
	CODEnabled     bool   `json:"codEnabled"`
	CODPaymentType string `json:"codPaymentType"`

	// Pickup points.
	PickupPointID   string `json:"pickupPointId"`
	AutoPickupPoint bool   `json:"autoPickupPoint"`

	// Auto-send wiring.
	AutoSend        bool     `json:"autoSend"`
	AutoSendOn      string   `json:"autoSendOn"`
	ShippingMethods []string `json:"shippingMethods"`

	// Carrier-specific keys (e.g. shipmentType, cargoType for Focus).
	Extra map[string]string `json:"-"`
}

// ParseConfig decodes an integration's config blob into a typed Config.
// Unknown string keys are preserved in Extra for the adapter.
func ParseConfig(blob []byte) (*Config, error) {
	if len(blob) == 0 {
		return &Config{}, nil
	}

	var cfg Config
	if err := json.Unmarshal(blob, &cfg); err != nil {
		return nil, fmt.Errorf("parsing integration config: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, fmt.Errorf("parsing integration config: %w", err)
	}
	for key, val := range raw {
		if knownConfigKeys[key] {
			continue
		}
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			continue // non-string extras are carrier bugs, ignore
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]string)
		}
		cfg.Extra[key] = s
	}
	return &cfg, nil
}

var knownConfigKeys = map[string]bool{
	"apiKey":          true,
	"apiSecret":       true,
	"host":            true,
	"customerNumber":  true,
	"codEnabled":      true,
	"codPaymentType":  true,
	"pickupPointId":   true,
	"autoPickupPoint": true,
	"autoSend":        true,
	"autoSendOn":      true,
	"shippingMethods": true,
}

// AllowsShippingMethod reports whether the order's delivery method passes
// the integration's allow-list. An empty list allows everything.
func (c *Config) AllowsShippingMethod(method string) bool {
	if len(c.ShippingMethods) == 0 {
		return true
	}
	for _, m := range c.ShippingMethods {
		if m == method {
			return true
		}
	}
	return false
}
