package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jgoulah/meterlog/pkg/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Database      string           `yaml:"database,omitempty"`     // SQLite file (fallback: meterlog.db)
	Timezone      string           `yaml:"timezone,omitempty"`     // IANA name used for calendar alignment (fallback: UTC)
	ExampleFile   string           `yaml:"example_file,omitempty"` // Seed data for the seed command
	LogLevel      string           `yaml:"log_level,omitempty"`
	LogFormat     string           `yaml:"log_format,omitempty"` // "console" or "json"
	Counters      []models.Counter `yaml:"counters,omitempty"`
	MQTT          MQTTConfig       `yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig         `yaml:"home_assistant,omitempty"`
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // e.g., "meterlog"
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`                     // e.g., "http://homeassistant.local:8123"
	Token        string `yaml:"token"`                   // Long-lived access token
	EntityPrefix string `yaml:"entity_prefix,omitempty"` // sensor.<prefix>_<counter>
}

// Environment variables that override the config file
const (
	EnvDatabase   = "METERLOG_DB"
	EnvTimezone   = "METERLOG_TIMEZONE"
	EnvLogLevel   = "METERLOG_LOG_LEVEL"
	EnvMQTTBroker = "METERLOG_MQTT_BROKER"
	EnvHAToken    = "METERLOG_HA_TOKEN"
)

// Load reads the config file, then applies .env and environment overrides
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Missing file means defaults
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvMQTTBroker); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv(EnvHAToken); v != "" {
		c.HomeAssistant.Token = v
	}
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetDatabase returns the database path with a default of meterlog.db
func (c *Config) GetDatabase() string {
	if c.Database == "" {
		return "meterlog.db"
	}
	return c.Database
}

// GetExampleFile returns the seed file with a default of mr-examples.json
func (c *Config) GetExampleFile() string {
	if c.ExampleFile == "" {
		return "mr-examples.json"
	}
	return c.ExampleFile
}

// GetLogLevel returns the log level with a default of info
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetLogFormat returns the log encoding with a default of console
func (c *Config) GetLogFormat() string {
	if c.LogFormat == "" {
		return "console"
	}
	return c.LogFormat
}

// GetCounters returns the configured counters, falling back to gas, water and electricity
func (c *Config) GetCounters() []models.Counter {
	if len(c.Counters) == 0 {
		return models.DefaultCounters()
	}
	return c.Counters
}

// GetLocation returns the time zone used for calendar fields
func (c *Config) GetLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetTopicPrefix returns the MQTT topic prefix with a default of meterlog
func (m MQTTConfig) GetTopicPrefix() string {
	if m.TopicPrefix == "" {
		return "meterlog"
	}
	return m.TopicPrefix
}

// GetEntityPrefix returns the Home Assistant entity prefix with a default of meterlog
func (h HAConfig) GetEntityPrefix() string {
	if h.EntityPrefix == "" {
		return "meterlog"
	}
	return h.EntityPrefix
}

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var errors []string

	seen := make(map[string]bool)
	for i, counter := range c.GetCounters() {
		colErr := models.ValidateColumn(counter.Column)
		switch {
		case counter.Name == "":
			errors = append(errors, fmt.Sprintf("counter %d: name is required", i))
		case colErr != nil:
			errors = append(errors, fmt.Sprintf("counter %q: %v", counter.Name, colErr))
		case seen[counter.Column]:
			errors = append(errors, fmt.Sprintf("counter %q: duplicate column %q", counter.Name, counter.Column))
		}
		seen[counter.Column] = true
	}

	if _, err := c.GetLocation(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone %q", c.Timezone))
	}

	if f := c.GetLogFormat(); f != "console" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format %q: must be console or json", f))
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errors = append(errors, "MQTT broker address is required when enabled")
	}

	if c.HomeAssistant.Enabled {
		if c.HomeAssistant.URL == "" {
			errors = append(errors, "Home Assistant URL is required when enabled")
		}
		if c.HomeAssistant.Token == "" {
			errors = append(errors, "Home Assistant token is required when enabled")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
