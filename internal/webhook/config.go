package webhook

import (
	"fmt"

	"github.com/mattjoyce/hookguard/internal/config"
)

// FromGlobalConfig converts the loaded config into a webhook.Config.
// Resolves secret references and parses max body sizes.
func FromGlobalConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	wc := Config{
		Listen:      cfg.Webhooks.Listen,
		MetricsPath: cfg.Metrics.Path,
		Endpoints:   make([]EndpointConfig, len(cfg.Webhooks.Endpoints)),
	}

	for i, ep := range cfg.Webhooks.Endpoints {
		secret, err := cfg.ResolveSecret(ep)
		if err != nil {
			return Config{}, fmt.Errorf("webhook endpoint %q: %w", ep.Path, err)
		}
		if secret == "" {
			return Config{}, fmt.Errorf("webhook endpoint %q: no secret or secret_ref configured", ep.Path)
		}

		maxBodySize := int64(DefaultMaxBodySize)
		if ep.MaxBodySize != "" {
			maxBodySize, err = config.ParseByteSize(ep.MaxBodySize)
			if err != nil {
				return Config{}, fmt.Errorf("webhook endpoint %q: invalid max_body_size %q: %w", ep.Path, ep.MaxBodySize, err)
			}
		}

		wc.Endpoints[i] = EndpointConfig{
			Path:            ep.Path,
			Name:            ep.Name,
			Secret:          secret,
			SignatureHeader: ep.SignatureHeader,
			MaxBodySize:     maxBodySize,
			PublicURL:       ep.PublicURL,
		}
	}

	return wc, nil
}
