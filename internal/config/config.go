package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.askdb/askdb.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version     int               `yaml:"version"`
	Server      ServerConfig      `yaml:"server"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Database    DatabaseConfig    `yaml:"database,omitempty"`
	Generation  GenerationConfig  `yaml:"generation"`
	Telemetry   TelemetryConfig   `yaml:"telemetry,omitempty"`
	Logging     LogConfig         `yaml:"logging,omitempty"`
}

// ServerConfig defines the HTTP gateway settings.
type ServerConfig struct {
	Port       int             `yaml:"port,omitempty"`        // default 8000
	AuthSecret string          `yaml:"auth_secret,omitempty"` // HS256 key for bearer tokens; empty disables auth
	RateLimit  RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// RateLimitConfig defines per-user request throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // default 5
	Burst             int     `yaml:"burst,omitempty"`               // default 10
}

// CredentialsConfig selects how tenant connection strings are resolved.
type CredentialsConfig struct {
	Provider string            `yaml:"provider"` // vault, awssm, or static
	Vault    VaultCredsConfig  `yaml:"vault,omitempty"`
	AWS      AWSCredsConfig    `yaml:"aws,omitempty"`
	Static   map[string]string `yaml:"static,omitempty"` // tenant id -> connection string
}

// VaultCredsConfig defines the Vault KV v2 location for tenant secrets.
type VaultCredsConfig struct {
	Mount  string `yaml:"mount,omitempty"`  // default "secret"
	Prefix string `yaml:"prefix,omitempty"` // default "askdb/tenants"
	Key    string `yaml:"key,omitempty"`    // default "connection_string"
}

// AWSCredsConfig defines the Secrets Manager naming for tenant secrets.
type AWSCredsConfig struct {
	Prefix string `yaml:"prefix,omitempty"` // default "askdb/tenants"
}

// DatabaseConfig bounds the shared connection pools.
type DatabaseConfig struct {
	MaxConns                int `yaml:"max_conns,omitempty"`                 // default 20, max 50
	ConnectTimeoutSeconds   int `yaml:"connect_timeout_seconds,omitempty"`   // default 5
	IdleTimeoutSeconds      int `yaml:"idle_timeout_seconds,omitempty"`      // default 30
	StatementTimeoutSeconds int `yaml:"statement_timeout_seconds,omitempty"` // default 30, clamped to 10..300
}

// GenerationConfig defines the text-completion service used for NL questions.
type GenerationConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model,omitempty"`           // default "defog/sqlcoder-7b"
	MaxTokens      int    `yaml:"max_tokens,omitempty"`      // default 3000
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // default 60
}

// TelemetryConfig defines the structured event sink. Empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.askdb/logs/
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// ApplyDefaults fills zero-valued fields with deployment defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.RateLimit.RequestsPerSecond == 0 {
		c.Server.RateLimit.RequestsPerSecond = 5
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 10
	}
	if c.Credentials.Provider == "" {
		c.Credentials.Provider = "static"
	}
	if c.Credentials.Vault.Mount == "" {
		c.Credentials.Vault.Mount = "secret"
	}
	if c.Credentials.Vault.Prefix == "" {
		c.Credentials.Vault.Prefix = "askdb/tenants"
	}
	if c.Credentials.Vault.Key == "" {
		c.Credentials.Vault.Key = "connection_string"
	}
	if c.Credentials.AWS.Prefix == "" {
		c.Credentials.AWS.Prefix = "askdb/tenants"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 20
	}
	if c.Database.MaxConns > 50 {
		c.Database.MaxConns = 50
	}
	if c.Database.ConnectTimeoutSeconds == 0 {
		c.Database.ConnectTimeoutSeconds = 5
	}
	if c.Database.IdleTimeoutSeconds == 0 {
		c.Database.IdleTimeoutSeconds = 30
	}
	if c.Database.StatementTimeoutSeconds == 0 {
		c.Database.StatementTimeoutSeconds = 30
	}
	if c.Database.StatementTimeoutSeconds < 10 {
		c.Database.StatementTimeoutSeconds = 10
	}
	if c.Database.StatementTimeoutSeconds > 300 {
		c.Database.StatementTimeoutSeconds = 300
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "defog/sqlcoder-7b"
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = 3000
	}
	if c.Generation.TimeoutSeconds == 0 {
		c.Generation.TimeoutSeconds = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.askdb/logs/")
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Server.AuthSecret, err = ResolveValue(c.Server.AuthSecret)
	if err != nil {
		return fmt.Errorf("server auth secret: %w", err)
	}
	c.Telemetry.Token, err = ResolveValue(c.Telemetry.Token)
	if err != nil {
		return fmt.Errorf("telemetry token: %w", err)
	}
	for tenant, val := range c.Credentials.Static {
		c.Credentials.Static[tenant], err = ResolveValue(val)
		if err != nil {
			return fmt.Errorf("static credential for %s: %w", tenant, err)
		}
	}
	return nil
}

// ResolveValue resolves secret references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
