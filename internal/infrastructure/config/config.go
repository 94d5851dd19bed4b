package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all orchestrator configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ports     PortsConfig     `yaml:"ports"`
	Debug     DebugConfig     `yaml:"debug"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"NWLENS_PORT" default:"8100" yaml:"port"`
	Host string `envconfig:"NWLENS_HOST" default:"127.0.0.1" yaml:"host"`
}

// PortsConfig holds debugging port pool configuration.
type PortsConfig struct {
	Base int `envconfig:"NWLENS_PORT_POOL_BASE" default:"9300" yaml:"base"`
	Size int `envconfig:"NWLENS_PORT_POOL_SIZE" default:"200" yaml:"size"`
}

// DebugConfig holds launch and polling configuration.
type DebugConfig struct {
	// ReadyDelay is the pause between the first stderr chunk and the
	// first endpoint probe; the second listener may lag the banner.
	ReadyDelay   time.Duration `envconfig:"NWLENS_READY_DELAY" default:"500ms" yaml:"ready_delay"`
	PollInterval time.Duration `envconfig:"NWLENS_POLL_INTERVAL" default:"3s" yaml:"poll_interval"`
	PollTimeout  time.Duration `envconfig:"NWLENS_POLL_TIMEOUT" default:"2s" yaml:"poll_timeout"`
	LogBufSize   int           `envconfig:"NWLENS_LOG_BUF_SIZE" default:"262144" yaml:"log_buf_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"NWLENS_LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"NWLENS_LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"NWLENS_RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"NWLENS_RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"NWLENS_RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from environment variables, then overlays
// values from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8100",
			Host: "127.0.0.1",
		},
		Ports: PortsConfig{
			Base: 9300,
			Size: 200,
		},
		Debug: DebugConfig{
			ReadyDelay:   500 * time.Millisecond,
			PollInterval: 3 * time.Second,
			PollTimeout:  2 * time.Second,
			LogBufSize:   256 * 1024,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
