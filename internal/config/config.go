// ABOUTME: Configuration loading and parsing for whatsapp-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete whatsapp-gateway configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Transport  TransportConfig  `yaml:"transport"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Phone      PhoneConfig      `yaml:"phone"`
	Deployment DeploymentConfig `yaml:"deployment"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AuthConfig holds operator API authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// StorageConfig holds the durable state paths
type StorageConfig struct {
	CredentialsPath   string `yaml:"credentials_path"`
	IdentityCachePath string `yaml:"identity_cache_path"`
}

// TransportConfig selects the messaging-network backend
type TransportConfig struct {
	Backend string `yaml:"backend"`
}

// WebhookConfig holds webhook delivery configuration
type WebhookConfig struct {
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// PhoneConfig holds phone-number normalization settings
type PhoneConfig struct {
	// DefaultCountryCode is prefixed to 9-digit national numbers.
	DefaultCountryCode string `yaml:"default_country_code"`
}

// DeploymentConfig holds deployment-mode switches
type DeploymentConfig struct {
	// Production suppresses operator-console pairing code rendering.
	Production bool `yaml:"production"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

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

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

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

// applyDefaults fills in the optional settings.
func (c *Config) applyDefaults() {
	if c.Webhook.Timeout == 0 {
		c.Webhook.Timeout = 5 * time.Second
	}
	if c.Transport.Backend == "" {
		c.Transport.Backend = "loopback"
	}
	if c.Phone.DefaultCountryCode == "" {
		c.Phone.DefaultCountryCode = "51"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Storage.CredentialsPath == "" {
		return fmt.Errorf("storage.credentials_path is required")
	}
	if c.Storage.IdentityCachePath == "" {
		return fmt.Errorf("storage.identity_cache_path is required")
	}
	if c.Transport.Backend != "loopback" {
		return fmt.Errorf("transport.backend %q is not supported", c.Transport.Backend)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Webhook.TimeoutRaw != "" {
		cfg.Webhook.Timeout, err = time.ParseDuration(cfg.Webhook.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing webhook timeout %q: %w", cfg.Webhook.TimeoutRaw, err)
		}
	}

	return nil
}
