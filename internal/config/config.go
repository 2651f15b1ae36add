// Package config defines the service configuration.
package config

import "time"

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DataConfig locates the locale data set on disk.
type DataConfig struct {
	// Dir holds one YAML file per locale.
	Dir string `yaml:"dir"`

	// CoverageFile is the organization coverage table.
	CoverageFile string `yaml:"coverage_file"`
}

// TelemetryConfig holds tracing and metrics export settings.
type TelemetryConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Endpoint     string   `yaml:"endpoint"`
	SampleRate   float64  `yaml:"sample_rate"`
	ExcludePaths []string `yaml:"exclude_paths"`
}

// QueueConfig holds review queue tuning knobs.
type QueueConfig struct {
	// ResolverCacheSize bounds the per-locale resolver cache.
	ResolverCacheSize int `yaml:"resolver_cache_size"`
}

// Config represents the top-level configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Queue     QueueConfig     `yaml:"queue"`
}

// Default returns a Config with usable development defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 20 * time.Second,
		},
		Data: DataConfig{
			Dir:          "data/locales",
			CoverageFile: "data/coverage.yaml",
		},
		Telemetry: TelemetryConfig{
			Enabled:    false,
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	def := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Data.Dir == "" {
		c.Data.Dir = def.Data.Dir
	}
	if c.Data.CoverageFile == "" {
		c.Data.CoverageFile = def.Data.CoverageFile
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = def.Telemetry.Endpoint
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = def.Telemetry.SampleRate
	}
}
