package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so the API token can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.API.Token = expandEnvVars(cfg.API.Token)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only. A .env file in the
// working directory is honored before overrides are read.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.petwell.example"
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 15
	}
	if cfg.Chat.PollActiveMs == 0 {
		cfg.Chat.PollActiveMs = 1000
	}
	if cfg.Chat.PollRelaxedMs == 0 {
		cfg.Chat.PollRelaxedMs = 3000
	}
	if cfg.Chat.CorrelationWindowMs == 0 {
		cfg.Chat.CorrelationWindowMs = 5000
	}
	if cfg.Chat.MaxSendAttempts == 0 {
		cfg.Chat.MaxSendAttempts = 3
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 5 << 20
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		cfg.Upload.AllowedTypes = []string{"image/jpeg", "image/png", "image/webp"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads PAWCHAT_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAWCHAT_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PAWCHAT_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("PAWCHAT_SOCKET_URL"); v != "" {
		cfg.Socket.URL = v
	}
	if v := os.Getenv("PAWCHAT_USER_ID"); v != "" {
		cfg.User.ID = v
	}
	if v := os.Getenv("PAWCHAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PAWCHAT_POLL_ACTIVE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Chat.PollActiveMs = ms
		}
	}
	if v := os.Getenv("PAWCHAT_POLL_RELAXED_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Chat.PollRelaxedMs = ms
		}
	}
}

// ResolveToken returns the bearer token, falling back to the credentials
// file when neither config nor environment provided one.
func ResolveToken(cfg *Config, paths Paths) string {
	if cfg.API.Token != "" {
		return cfg.API.Token
	}
	data, err := os.ReadFile(paths.TokenFile())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
