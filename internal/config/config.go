package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`

	JWT       JWTConfig       `mapstructure:"jwt" yaml:"jwt"`
	Uploads   UploadsConfig   `mapstructure:"uploads" yaml:"uploads"`
	LiveKit   LiveKitConfig   `mapstructure:"livekit" yaml:"livekit"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// UploadsConfig holds file upload settings.
type UploadsConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir"`
	MaxSizeBytes int64  `mapstructure:"max_size_bytes" yaml:"max_size_bytes"`
}

// LiveKitConfig holds media call settings. Calls are disabled unless
// Enabled is set and all credentials are present.
type LiveKitConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	APISecret string `mapstructure:"api_secret" yaml:"api_secret"`
	WSURL     string `mapstructure:"ws_url" yaml:"ws_url"`
}

// RateLimitConfig throttles REST requests per client IP.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Limit   int           `mapstructure:"limit" yaml:"limit"`
	Window  time.Duration `mapstructure:"window" yaml:"window"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "gridchat.db",
		LogLevel:          "info",
		JWT: JWTConfig{
			Issuer:   "gridchat-server",
			Audience: "gridchat-client",
			TTL:      24 * time.Hour,
		},
		Uploads: UploadsConfig{
			Dir:          "uploads",
			MaxSizeBytes: 8 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Limit:   60,
			Window:  time.Minute,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.JWT.Secret != "" {
		c.JWT.Secret = other.JWT.Secret
	}
	if other.JWT.TTL != 0 {
		c.JWT.TTL = other.JWT.TTL
	}
	if other.Uploads.Dir != "" {
		c.Uploads.Dir = other.Uploads.Dir
	}
}
