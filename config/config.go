// Package config provides configuration loading and management for the
// alignment engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/model"
)

// Config represents the complete engine configuration
type Config struct {
	NATS      NATSConfig      `yaml:"nats"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Alignment AlignmentConfig `yaml:"alignment"`
	Documents DocumentsConfig `yaml:"documents"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
	// StoreDir is the JetStream storage directory for the embedded server
	StoreDir string `yaml:"store_dir"`
}

// OracleConfig configures the synthesis oracle
type OracleConfig struct {
	// Registry holds capability and endpoint configuration. Empty uses the
	// built-in defaults.
	Registry model.RegistryConfig `yaml:"registry"`
	// MaxAttempts is the maximum attempts per endpoint
	MaxAttempts int `yaml:"max_attempts"`
	// BackoffBase is the initial retry backoff
	BackoffBase time.Duration `yaml:"backoff_base"`
	// BackoffMultiplier grows the backoff on each retry
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	// MaxBackoff caps the retry backoff
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// RecordCalls enables persisting oracle calls to the call log
	RecordCalls bool `yaml:"record_calls"`
}

// AlignmentConfig configures suggestion and drift analysis
type AlignmentConfig struct {
	// DriftThreshold is the touched-section ratio above which a project is
	// classified as drifting (0 < threshold <= 1)
	DriftThreshold float64 `yaml:"drift_threshold"`
}

// DocumentsConfig configures document handling
type DocumentsConfig struct {
	// TypeRules maps locator glob patterns to document types. Empty uses the
	// built-in rules.
	TypeRules []TypeRuleConfig `yaml:"type_rules"`
}

// TypeRuleConfig is one locator-pattern rule
type TypeRuleConfig struct {
	Pattern string `yaml:"pattern"`
	Type    string `yaml:"type"`
}

// MetricsConfig configures the metrics endpoint
type MetricsConfig struct {
	// Listen is the address for the /metrics HTTP listener (empty = disabled)
	Listen string `yaml:"listen"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
			StoreDir: "",
		},
		Oracle: OracleConfig{
			MaxAttempts:       3,
			BackoffBase:       2 * time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        30 * time.Second,
			RecordCalls:       false,
		},
		Alignment: AlignmentConfig{
			DriftThreshold: 0.5,
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Alignment.DriftThreshold <= 0 || c.Alignment.DriftThreshold > 1 {
		return fmt.Errorf("alignment.drift_threshold must be in (0, 1]")
	}
	if c.Oracle.MaxAttempts < 1 {
		return fmt.Errorf("oracle.max_attempts must be at least 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	for _, rule := range c.Documents.TypeRules {
		if rule.Pattern == "" {
			return fmt.Errorf("documents.type_rules entries need a pattern")
		}
		if !document.Type(rule.Type).IsValid() {
			return fmt.Errorf("documents.type_rules: unknown document type %q", rule.Type)
		}
	}
	return nil
}

// TypeRules converts the configured rules to document rules, falling back to
// the built-in defaults when none are configured.
func (c *Config) TypeRules() []document.TypeRule {
	if len(c.Documents.TypeRules) == 0 {
		return document.DefaultTypeRules()
	}
	rules := make([]document.TypeRule, len(c.Documents.TypeRules))
	for i, r := range c.Documents.TypeRules {
		rules[i] = document.TypeRule{Pattern: r.Pattern, Type: document.Type(r.Type)}
	}
	return rules
}

// RetryConfig converts the oracle settings to the client's retry config.
func (c *Config) RetryConfig() (maxAttempts int, base time.Duration, multiplier float64, max time.Duration) {
	return c.Oracle.MaxAttempts, c.Oracle.BackoffBase, c.Oracle.BackoffMultiplier, c.Oracle.MaxBackoff
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.StoreDir != "" {
		c.NATS.StoreDir = other.NATS.StoreDir
	}

	if len(other.Oracle.Registry.Endpoints) > 0 {
		c.Oracle.Registry.Endpoints = other.Oracle.Registry.Endpoints
	}
	if len(other.Oracle.Registry.Capabilities) > 0 {
		c.Oracle.Registry.Capabilities = other.Oracle.Registry.Capabilities
	}
	if other.Oracle.Registry.DefaultModel != "" {
		c.Oracle.Registry.DefaultModel = other.Oracle.Registry.DefaultModel
	}
	if other.Oracle.MaxAttempts != 0 {
		c.Oracle.MaxAttempts = other.Oracle.MaxAttempts
	}
	if other.Oracle.BackoffBase != 0 {
		c.Oracle.BackoffBase = other.Oracle.BackoffBase
	}
	if other.Oracle.BackoffMultiplier != 0 {
		c.Oracle.BackoffMultiplier = other.Oracle.BackoffMultiplier
	}
	if other.Oracle.MaxBackoff != 0 {
		c.Oracle.MaxBackoff = other.Oracle.MaxBackoff
	}
	if other.Oracle.RecordCalls {
		c.Oracle.RecordCalls = true
	}

	if other.Alignment.DriftThreshold != 0 {
		c.Alignment.DriftThreshold = other.Alignment.DriftThreshold
	}

	if len(other.Documents.TypeRules) > 0 {
		c.Documents.TypeRules = other.Documents.TypeRules
	}

	if other.Metrics.Listen != "" {
		c.Metrics.Listen = other.Metrics.Listen
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
}
