// ABOUTME: Configuration loading and parsing for creatordash
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultSessionTTL        = 7 * 24 * time.Hour
	DefaultMinPasswordLength = 6
	DefaultResolveWait       = 500 * time.Millisecond
	DefaultVisitorTTL        = 30 * time.Minute
	DefaultMaxVisitors       = 10000
	DefaultMetricsPath       = "/metrics"
	DefaultDriver            = "sqlite"

	// MinTokenSecretLength is the shortest accepted auth.token_secret.
	MinTokenSecretLength = 32
)

// Config represents the complete creatordash configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	WebApp    WebAppConfig    `yaml:"webapp" toml:"webapp"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"` // Serve :443 with Tailscale-provisioned certs
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo)
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

// AuthConfig holds credential and session configuration
type AuthConfig struct {
	TokenSecret       string        `yaml:"token_secret" toml:"token_secret"`
	SessionTTL        time.Duration `yaml:"-" toml:"-"`
	MinPasswordLength int           `yaml:"min_password_length" toml:"min_password_length"`

	SessionTTLRaw string `yaml:"session_ttl" toml:"session_ttl"`
}

// WebAppConfig holds dashboard front end configuration
type WebAppConfig struct {
	// BaseURL is the external URL of the dashboard
	// If not set, it's derived from server.http_addr or tailscale hostname
	BaseURL       string        `yaml:"base_url" toml:"base_url"`
	ResolveWait   time.Duration `yaml:"-" toml:"-"`
	VisitorTTL    time.Duration `yaml:"-" toml:"-"`
	SecureCookies bool          `yaml:"secure_cookies" toml:"secure_cookies"`
	MaxVisitors   int           `yaml:"max_visitors" toml:"max_visitors"`

	// Raw string values for unmarshaling
	ResolveWaitRaw string `yaml:"resolve_wait" toml:"resolve_wait"`
	VisitorTTLRaw  string `yaml:"visitor_ttl" toml:"visitor_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = DefaultSessionTTL
	}
	if c.Auth.MinPasswordLength == 0 {
		c.Auth.MinPasswordLength = DefaultMinPasswordLength
	}
	if c.WebApp.ResolveWait == 0 {
		c.WebApp.ResolveWait = DefaultResolveWait
	}
	if c.WebApp.VisitorTTL == 0 {
		c.WebApp.VisitorTTL = DefaultVisitorTTL
	}
	if c.WebApp.MaxVisitors == 0 {
		c.WebApp.MaxVisitors = DefaultMaxVisitors
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be sqlite or sqlite3, got %q", c.Database.Driver)
	}

	if len(c.Auth.TokenSecret) < MinTokenSecretLength {
		return fmt.Errorf("auth.token_secret must be at least %d characters", MinTokenSecretLength)
	}

	if c.Auth.SessionTTL < 0 || c.WebApp.ResolveWait < 0 || c.WebApp.VisitorTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}

	if c.WebApp.MaxVisitors < 1 {
		return fmt.Errorf("webapp.max_visitors must be positive")
	}

	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.SessionTTLRaw != "" {
		cfg.Auth.SessionTTL, err = time.ParseDuration(cfg.Auth.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
		}
	}

	if cfg.WebApp.ResolveWaitRaw != "" {
		cfg.WebApp.ResolveWait, err = time.ParseDuration(cfg.WebApp.ResolveWaitRaw)
		if err != nil {
			return fmt.Errorf("parsing resolve_wait %q: %w", cfg.WebApp.ResolveWaitRaw, err)
		}
	}

	if cfg.WebApp.VisitorTTLRaw != "" {
		cfg.WebApp.VisitorTTL, err = time.ParseDuration(cfg.WebApp.VisitorTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing visitor_ttl %q: %w", cfg.WebApp.VisitorTTLRaw, err)
		}
	}

	return nil
}
