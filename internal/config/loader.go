package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// DefaultSignatureHeader is the request header carrying the webhook signature.
const DefaultSignatureHeader = "X-Twilio-Signature"

// Load reads, merges, defaults and validates the config at configPath.
// When a .checksums manifest sits beside a contributing file, that file's
// BLAKE3 hash must match.
func Load(configPath string) (*Config, error) {
	return load(configPath, true)
}

// LoadUnverified behaves like Load but skips the .checksums integrity check.
// It exists for `config hash-update`, which must read files whose hashes
// are about to be rewritten.
func LoadUnverified(configPath string) (*Config, error) {
	return load(configPath, false)
}

func load(configPath string, verify bool) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory; pass the YAML file itself", absPath)
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	cfg.Path = absPath
	cfg.SourceFiles = []string{absPath}

	visited := map[string]bool{absPath: true}
	if err := loadIncludes(cfg, cfg.Include, filepath.Dir(absPath), visited); err != nil {
		return nil, err
	}

	if verify {
		if err := verifyAllConfigHashes(cfg.SourceFiles); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadIncludes recursively loads and merges files from the include array.
// visited tracks loaded files to prevent cycles.
func loadIncludes(cfg *Config, includes []string, baseDir string, visited map[string]bool) error {
	for i, includePath := range includes {
		includePath = interpolateEnv(includePath)

		resolvedPath := includePath
		if !filepath.IsAbs(includePath) {
			resolvedPath = filepath.Join(baseDir, includePath)
		}

		absPath, err := filepath.Abs(resolvedPath)
		if err != nil {
			return fmt.Errorf("include[%d]: failed to resolve path %q: %w", i, includePath, err)
		}

		if visited[absPath] {
			return fmt.Errorf("include[%d]: circular dependency detected: %s", i, absPath)
		}

		if _, err := os.Stat(absPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("include[%d]: file not found: %s\n"+
					"Referenced from: %s\n"+
					"Hint: Check the path is correct and the file exists", i, absPath, baseDir)
			}
			return fmt.Errorf("include[%d]: failed to access file %s: %w", i, absPath, err)
		}
		visited[absPath] = true

		included, err := loadConfigFile(absPath)
		if err != nil {
			return fmt.Errorf("include[%d] (%s): %w", i, includePath, err)
		}
		cfg.SourceFiles = append(cfg.SourceFiles, absPath)
		mergeConfig(cfg, included)

		if len(included.Include) > 0 {
			if err := loadIncludes(cfg, included.Include, filepath.Dir(absPath), visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadConfigFile loads and parses a single config file without defaults.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// mergeConfig merges src into dst, with src taking precedence for non-zero values.
// Tokens are merged key by key; endpoints are appended.
func mergeConfig(dst, src *Config) {
	if src.Service.Name != "" {
		dst.Service.Name = src.Service.Name
	}
	if src.Service.LogLevel != "" {
		dst.Service.LogLevel = src.Service.LogLevel
	}
	if src.Service.LogFormat != "" {
		dst.Service.LogFormat = src.Service.LogFormat
	}
	if src.Service.Retention != 0 {
		dst.Service.Retention = src.Service.Retention
	}
	if src.State.Path != "" {
		dst.State.Path = src.State.Path
	}
	if src.Metrics.Enabled != nil {
		dst.Metrics.Enabled = src.Metrics.Enabled
	}
	if src.Metrics.Path != "" {
		dst.Metrics.Path = src.Metrics.Path
	}
	if len(src.Tokens) > 0 {
		if dst.Tokens == nil {
			dst.Tokens = make(map[string]string, len(src.Tokens))
		}
		for name, value := range src.Tokens {
			dst.Tokens[name] = value
		}
	}
	if src.Webhooks.Listen != "" {
		dst.Webhooks.Listen = src.Webhooks.Listen
	}
	dst.Webhooks.Endpoints = append(dst.Webhooks.Endpoints, src.Webhooks.Endpoints...)
}

func applyDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.Service.Retention == 0 {
		cfg.Service.Retention = defaults.Service.Retention
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaults.State.Path
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaults.Metrics.Path
	}
	if cfg.Tokens == nil {
		cfg.Tokens = defaults.Tokens
	}
	if cfg.Webhooks.Listen == "" {
		cfg.Webhooks.Listen = defaults.Webhooks.Listen
	}

	for i := range cfg.Webhooks.Endpoints {
		ep := &cfg.Webhooks.Endpoints[i]
		if ep.Name == "" {
			ep.Name = strings.Trim(ep.Path, "/")
		}
		if ep.SignatureHeader == "" {
			ep.SignatureHeader = DefaultSignatureHeader
		}
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Service.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("service.log_level: invalid value %q (want debug, info, warn or error)", cfg.Service.LogLevel)
	}

	switch strings.ToLower(cfg.Service.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("service.log_format: invalid value %q (want json or text)", cfg.Service.LogFormat)
	}

	if cfg.Service.Retention < 0 {
		return fmt.Errorf("service.retention: must be positive, got %s", cfg.Service.Retention)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path: must start with /, got %q", cfg.Metrics.Path)
	}

	seen := make(map[string]bool, len(cfg.Webhooks.Endpoints))
	for i, ep := range cfg.Webhooks.Endpoints {
		if err := validateEndpoint(cfg, ep); err != nil {
			return fmt.Errorf("webhooks.endpoints[%d]: %w", i, err)
		}
		if seen[ep.Path] {
			return fmt.Errorf("webhooks.endpoints[%d]: duplicate path %q", i, ep.Path)
		}
		if ep.Path == cfg.Metrics.Path || ep.Path == "/healthz" {
			return fmt.Errorf("webhooks.endpoints[%d]: path %q is reserved", i, ep.Path)
		}
		seen[ep.Path] = true
	}

	return checkUnresolvedEnvVars(cfg)
}

func validateEndpoint(cfg *Config, ep WebhookEndpoint) error {
	if !strings.HasPrefix(ep.Path, "/") {
		return fmt.Errorf("path must start with /, got %q", ep.Path)
	}

	switch {
	case ep.Secret != "" && ep.SecretRef != "":
		return fmt.Errorf("set either secret or secret_ref, not both")
	case ep.Secret == "" && ep.SecretRef == "":
		return fmt.Errorf("secret or secret_ref is required")
	case ep.SecretRef != "":
		token, ok := cfg.Tokens[ep.SecretRef]
		if !ok {
			return fmt.Errorf("secret_ref %q not found in tokens", ep.SecretRef)
		}
		if token == "" {
			return fmt.Errorf("secret_ref %q resolves to an empty token", ep.SecretRef)
		}
	}

	if ep.MaxBodySize != "" {
		if _, err := ParseByteSize(ep.MaxBodySize); err != nil {
			return fmt.Errorf("max_body_size: %w", err)
		}
	}

	if ep.PublicURL != "" {
		u, err := url.Parse(ep.PublicURL)
		if err != nil {
			return fmt.Errorf("public_url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("public_url: want an absolute http(s) URL, got %q", ep.PublicURL)
		}
	}
	return nil
}

// ResolveSecret returns the signing secret for an endpoint, following
// secret_ref into the tokens map when set.
func (c *Config) ResolveSecret(ep WebhookEndpoint) (string, error) {
	if ep.SecretRef == "" {
		return ep.Secret, nil
	}
	token, ok := c.Tokens[ep.SecretRef]
	if !ok || token == "" {
		return "", fmt.Errorf("secret_ref %q not found in tokens", ep.SecretRef)
	}
	return token, nil
}

// ParseByteSize parses sizes like "1MB", "512KB" or a bare byte count.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive, got %d", n)
	}
	return n * multiplier, nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// checkUnresolvedEnvVars rejects secrets that still carry a ${VAR} reference.
// A literal placeholder would otherwise become the HMAC key.
func checkUnresolvedEnvVars(cfg *Config) error {
	for name, value := range cfg.Tokens {
		if m := envVarPattern.FindStringSubmatch(value); m != nil {
			return fmt.Errorf("tokens.%s: environment variable %s is not set", name, m[1])
		}
	}
	for i, ep := range cfg.Webhooks.Endpoints {
		if m := envVarPattern.FindStringSubmatch(ep.Secret); m != nil {
			return fmt.Errorf("webhooks.endpoints[%d].secret: environment variable %s is not set", i, m[1])
		}
		if m := envVarPattern.FindStringSubmatch(ep.PublicURL); m != nil {
			return fmt.Errorf("webhooks.endpoints[%d].public_url: environment variable %s is not set", i, m[1])
		}
	}
	return nil
}

func verifyAllConfigHashes(paths []string) error {
	dirToFiles := make(map[string][]string)
	for _, path := range paths {
		dir := filepath.Dir(path)
		dirToFiles[dir] = append(dirToFiles[dir], path)
	}

	for dir, files := range dirToFiles {
		checksums, err := LoadChecksums(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}

		for _, path := range files {
			basename := filepath.Base(path)
			expectedHash, ok := checksums.Hashes[basename]
			if !ok {
				return fmt.Errorf("config file %s has no hash in %s\n"+
					"Run: hookguard config hash-update --config <path>", basename, filepath.Join(dir, ChecksumFile))
			}

			if err := VerifyFileHash(path, expectedHash); err != nil {
				return fmt.Errorf("config verification failed for %s: %w\n"+
					"This indicates tampering or unauthorized modification.\n"+
					"If you edited this file intentionally, run: hookguard config hash-update", path, err)
			}
		}
	}
	return nil
}
