// ABOUTME: Configuration loading and parsing for gate-opener
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gate-opener configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Store   StoreConfig   `yaml:"store"`
	Gate    GateConfig    `yaml:"gate"`
	Notify  NotifyConfig  `yaml:"notify"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AuthConfig holds token signing and enrollment secrets
type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLDays    int    `yaml:"token_ttl_days"` // default 365
	RegistrationPSK string `yaml:"registration_psk"`
	ApprovalPSK     string `yaml:"approval_psk"`

	RefreshInterval time.Duration `yaml:"-"` // default 6h

	// Raw string value for YAML unmarshaling
	RefreshIntervalRaw string `yaml:"refresh_interval"`
}

// StoreConfig selects and configures the device store backend
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "airtable", or "memory"

	// SQLite
	Path string `yaml:"path"`

	// Airtable
	APIKey    string `yaml:"api_key"`
	BaseID    string `yaml:"base_id"`
	TableName string `yaml:"table_name"`
}

// GateConfig holds actuation settings
type GateConfig struct {
	FriendlyName string `yaml:"friendly_name"`

	Pulse time.Duration `yaml:"-"` // default 100ms

	PulseRaw string `yaml:"pulse"`
}

// NotifyConfig holds administrator notification settings. Both blocks are
// optional; with neither configured, notifications are silently skipped.
type NotifyConfig struct {
	SMTP     SMTPConfig     `yaml:"smtp"`
	Pushover PushoverConfig `yaml:"pushover"`
}

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Sender       string `yaml:"sender"`
	Receiver     string `yaml:"receiver"`
	TemplatePath string `yaml:"template_path"`
}

// PushoverConfig holds push notification settings
type PushoverConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied after unmarshaling
const (
	DefaultTokenTTLDays    = 365
	DefaultRefreshInterval = 6 * time.Hour
	DefaultPulse           = 100 * time.Millisecond
	DefaultSMTPPort        = 587
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5151"
	}
	if c.Auth.TokenTTLDays == 0 {
		c.Auth.TokenTTLDays = DefaultTokenTTLDays
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Gate.FriendlyName == "" {
		c.Gate.FriendlyName = "gate"
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = DefaultSMTPPort
	}
	if c.Notify.SMTP.Username == "" {
		c.Notify.SMTP.Username = c.Notify.SMTP.Sender
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.RegistrationPSK == "" {
		return fmt.Errorf("auth.registration_psk is required")
	}
	if c.Auth.ApprovalPSK == "" {
		return fmt.Errorf("auth.approval_psk is required")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "airtable":
		if c.Store.APIKey == "" || c.Store.BaseID == "" || c.Store.TableName == "" {
			return fmt.Errorf("store.api_key, store.base_id and store.table_name are required for the airtable driver")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be sqlite, airtable or memory, got %q", c.Store.Driver)
	}

	if c.Notify.SMTP.Enabled {
		if c.Notify.SMTP.Host == "" || c.Notify.SMTP.Sender == "" || c.Notify.SMTP.Receiver == "" {
			return fmt.Errorf("notify.smtp requires host, sender and receiver when enabled")
		}
	}
	if c.Notify.Pushover.Enabled {
		if c.Notify.Pushover.Token == "" || c.Notify.Pushover.UserKey == "" {
			return fmt.Errorf("notify.pushover requires token and user_key when enabled")
		}
	}

	return nil
}

// TokenTTL returns the configured token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLDays) * 24 * time.Hour
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Auth.RefreshInterval = DefaultRefreshInterval
	if cfg.Auth.RefreshIntervalRaw != "" {
		cfg.Auth.RefreshInterval, err = time.ParseDuration(cfg.Auth.RefreshIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing refresh_interval %q: %w", cfg.Auth.RefreshIntervalRaw, err)
		}
	}

	cfg.Gate.Pulse = DefaultPulse
	if cfg.Gate.PulseRaw != "" {
		cfg.Gate.Pulse, err = time.ParseDuration(cfg.Gate.PulseRaw)
		if err != nil {
			return fmt.Errorf("parsing pulse %q: %w", cfg.Gate.PulseRaw, err)
		}
	}

	return nil
}
