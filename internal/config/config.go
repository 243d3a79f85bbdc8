package config

import (
	"fmt"
	"strings"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "https://api.petwell.example",
			TimeoutSeconds: 15,
		},
		Chat: ChatConfig{
			PollActiveMs:        1000,
			PollRelaxedMs:       3000,
			CorrelationWindowMs: 5000,
			MaxSendAttempts:     3,
		},
		Upload: UploadConfig{
			MaxBytes:     5 << 20,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// SocketEnabled reports whether the push layer should be used.
func (c *Config) SocketEnabled() bool {
	if c.Socket.Enabled == nil {
		return true
	}
	return *c.Socket.Enabled
}

// CacheEnabled reports whether the local transcript cache should be used.
func (c *Config) CacheEnabled() bool {
	if c.Cache.Enabled == nil {
		return true
	}
	return *c.Cache.Enabled
}

// SocketURL returns the configured push endpoint, or one derived from the
// API base URL with the scheme flipped to ws(s) and /socket appended.
func (c *Config) SocketURL() string {
	if c.Socket.URL != "" {
		return c.Socket.URL
	}
	u := c.API.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimRight(u, "/") + "/socket"
}
