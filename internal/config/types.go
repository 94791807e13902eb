package config

import "time"

// ChecksumFile is the integrity manifest name, stored beside the config file.
const ChecksumFile = ".checksums"

// Config represents the complete hookguard configuration.
type Config struct {
	Include  []string          `yaml:"include,omitempty"`
	Service  ServiceConfig     `yaml:"service"`
	State    StateConfig       `yaml:"state"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	Tokens   map[string]string `yaml:"tokens,omitempty"`
	Webhooks WebhooksConfig    `yaml:"webhooks"`

	// Path is the absolute path of the root config file.
	Path string `yaml:"-"`
	// SourceFiles lists every file that contributed to this config, root first.
	SourceFiles []string `yaml:"-"`
}

// ServiceConfig contains process-level settings.
type ServiceConfig struct {
	Name      string        `yaml:"name"`
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	Retention time.Duration `yaml:"retention"`
}

// StateConfig contains delivery log persistence settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig controls the Prometheus endpoint on the gate.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// IsEnabled reports whether metrics are exposed. Metrics default to on.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// WebhooksConfig configures the HTTP gate.
type WebhooksConfig struct {
	Listen    string            `yaml:"listen"`
	Endpoints []WebhookEndpoint `yaml:"endpoints"`
}

// WebhookEndpoint is one signed route on the gate.
type WebhookEndpoint struct {
	Path            string `yaml:"path"`
	Name            string `yaml:"name"`
	Secret          string `yaml:"secret,omitempty"`
	SecretRef       string `yaml:"secret_ref,omitempty"`
	SignatureHeader string `yaml:"signature_header,omitempty"`
	MaxBodySize     string `yaml:"max_body_size,omitempty"`
	PublicURL       string `yaml:"public_url,omitempty"`
}

// ChecksumManifest is the on-disk shape of the .checksums file.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "hookguard",
			LogLevel:  "info",
			LogFormat: "json",
			Retention: 30 * 24 * time.Hour,
		},
		State: StateConfig{
			Path: "./data/hookguard.db",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Tokens: map[string]string{},
		Webhooks: WebhooksConfig{
			Listen: "127.0.0.1:8081",
		},
	}
}
