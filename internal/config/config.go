// Package config loads runtime configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the service.
type Config struct {
	Addr              string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// LogLevel is one of debug, info, warn, error. LogFormat is json or text.
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// DatabaseURL selects the postgres store when set; the in-memory store
	// is used otherwise.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DevSeed     bool   `envconfig:"DEV_SEED"`

	// Report endpoints are rate limited per client IP.
	ReportRateLimit  int           `envconfig:"REPORT_RATE_LIMIT" default:"30"`
	ReportRateWindow time.Duration `envconfig:"REPORT_RATE_WINDOW" default:"1m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
