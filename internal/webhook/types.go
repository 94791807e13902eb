package webhook

import (
	"context"

	"github.com/mattjoyce/hookguard/internal/delivery"
)

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks github.com/mattjoyce/hookguard/internal/webhook Recorder

// Recorder persists one verification attempt and returns its delivery ID.
type Recorder interface {
	Record(ctx context.Context, req delivery.RecordRequest) (string, error)
}

// Config holds webhook server configuration.
type Config struct {
	Listen string
	// MetricsPath is where Prometheus metrics are served when metrics are enabled.
	MetricsPath string
	Endpoints   []EndpointConfig
}

// EndpointConfig defines a single signed webhook endpoint.
type EndpointConfig struct {
	// Path is the URL path for this webhook (e.g., "/twilio/sms")
	Path string

	// Name labels logs, metrics and delivery records (default: path)
	Name string

	// Secret is the HMAC-SHA1 signing secret, already resolved from tokens
	Secret string

	// SignatureHeader is the HTTP header carrying the base64 signature
	SignatureHeader string

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64

	// PublicURL is the externally visible base URL, e.g. "https://hooks.example.com".
	// When set, the signed URL is PublicURL plus the request URI.
	PublicURL string
}

// TriggerResponse is the JSON response for accepted deliveries.
type TriggerResponse struct {
	DeliveryID string `json:"delivery_id"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultSignatureHeader = "X-Twilio-Signature"
	DefaultMetricsPath     = "/metrics"
)
