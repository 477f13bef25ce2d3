// Package config provides configuration management for the outreach service
// and CLI. It supports loading configuration from YAML files, environment
// variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/penf-outreach/pkg/api"
	"github.com/otherjamesbrown/penf-outreach/pkg/db"
	"github.com/otherjamesbrown/penf-outreach/pkg/decisions"
	oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
	"github.com/otherjamesbrown/penf-outreach/pkg/logging"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultOutputFormat = OutputFormatText
	DefaultConfigDir    = ".outreach"
	DefaultConfigFile   = "config.yaml"
	EnvPrefix           = "OUTREACH_"
)

// Decision sinks selectable under recorder.sinks.
const (
	SinkLog      = "log"
	SinkPostgres = "postgres"
	SinkRedis    = "redis"
	SinkKafka    = "kafka"
)

// GRPCConfig holds the gRPC health listener settings. An empty address
// disables the listener.
type GRPCConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Environment string `yaml:"environment"`
}

// RecorderConfig controls where and how decisions are recorded.
type RecorderConfig struct {
	Sinks         []string      `yaml:"sinks"`
	BufferSize    int           `yaml:"buffer_size"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// Config is the complete outreach configuration.
type Config struct {
	HTTP         api.Config            `yaml:"http"`
	GRPC         GRPCConfig            `yaml:"grpc"`
	Log          LogConfig             `yaml:"log"`
	RulesFile    string                `yaml:"rules_file,omitempty"`
	OutputFormat OutputFormat          `yaml:"output_format"`
	Postgres     db.Config             `yaml:"postgres"`
	Redis        decisions.RedisConfig `yaml:"redis"`
	Kafka        decisions.KafkaConfig `yaml:"kafka"`
	Recorder     RecorderConfig        `yaml:"recorder"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		HTTP:         api.DefaultConfig(),
		Log:          LogConfig{Level: "info", Format: "text", Environment: "development"},
		OutputFormat: DefaultOutputFormat,
		Postgres:     *db.DefaultConfig(),
		Redis: decisions.RedisConfig{
			Address: "localhost:6379",
			Channel: decisions.ChannelDecisionSelected,
		},
		Kafka: decisions.KafkaConfig{Topic: decisions.DefaultKafkaTopic},
		Recorder: RecorderConfig{
			Sinks:         []string{SinkLog},
			BufferSize:    1000,
			BatchSize:     100,
			FlushInterval: 2 * time.Second,
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $OUTREACH_CONFIG_DIR if set, otherwise ~/.outreach
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the default configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load loads configuration in this order (later sources override earlier):
// 1. Default values
// 2. Config file (path if given, else the default path when it exists)
// 3. OUTREACH_* environment variables
//
// An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("getting config path: %w", err)
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg. Keys absent from the file keep
// their current values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parsing config file: %v", oerrors.ErrInvalidConfig, err)
	}

	cfg.RulesFile = ExpandPath(cfg.RulesFile)
	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) error {
	var err error
	setString := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		v := os.Getenv(EnvPrefix + key)
		if v == "" || err != nil {
			return
		}
		n, perr := strconv.Atoi(v)
		if perr != nil {
			err = fmt.Errorf("%w: %s%s: %v", oerrors.ErrInvalidConfig, EnvPrefix, key, perr)
			return
		}
		*dst = n
	}
	setList := func(key string, dst *[]string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = splitList(v)
		}
	}

	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	setInt("RATE_LIMIT_PER_MINUTE", &cfg.HTTP.RateLimitPerMinute)
	setString("GRPC_ADDRESS", &cfg.GRPC.Address)

	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)
	setString("ENVIRONMENT", &cfg.Log.Environment)

	if v := os.Getenv(EnvPrefix + "RULES_FILE"); v != "" {
		cfg.RulesFile = ExpandPath(v)
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	setString("POSTGRES_URL", &cfg.Postgres.URL)
	setString("POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("POSTGRES_PORT", &cfg.Postgres.Port)
	setString("POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("POSTGRES_USER", &cfg.Postgres.User)
	setString("POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	setString("REDIS_ADDRESS", &cfg.Redis.Address)
	setInt("REDIS_DB", &cfg.Redis.DB)
	setString("REDIS_CHANNEL", &cfg.Redis.Channel)

	setList("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	setString("KAFKA_TOPIC", &cfg.Kafka.Topic)

	setList("RECORDER_SINKS", &cfg.Recorder.Sinks)

	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is valid. Every failure wraps
// errors.ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", oerrors.ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.HTTP.Address == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.HTTP.RateLimitPerMinute < 0 {
		return fmt.Errorf("http.rate_limit_per_minute must not be negative")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format: %q (must be text or json)", c.Log.Format)
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	if c.Recorder.BufferSize < 0 || c.Recorder.BatchSize < 0 || c.Recorder.FlushInterval < 0 {
		return fmt.Errorf("recorder sizes and interval must not be negative")
	}
	for _, sink := range c.Recorder.Sinks {
		switch sink {
		case SinkLog:
		case SinkPostgres:
			if err := c.Postgres.Validate(); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		case SinkRedis:
			if c.Redis.Address == "" {
				return fmt.Errorf("redis.address is required for the redis sink")
			}
		case SinkKafka:
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers is required for the kafka sink")
			}
		default:
			return fmt.Errorf("unknown recorder sink %q", sink)
		}
	}

	return nil
}

// SinkEnabled reports whether name is listed in recorder.sinks.
func (c *Config) SinkEnabled(name string) bool {
	for _, s := range c.Recorder.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// LoggingConfig converts the log section into a logging.Config.
func (c *Config) LoggingConfig() *logging.Config {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		lc.Level = level
	}
	lc.JSONFormat = c.Log.Format == "json"
	if c.Log.Environment != "" {
		lc.Environment = c.Log.Environment
	}
	return lc
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// Marshal renders the configuration as YAML. Secrets are never included.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
