package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.API.BaseURL != "" {
		u, err := url.Parse(cfg.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			issues = append(issues, ValidationIssue{
				Path:    "api.baseUrl",
				Message: fmt.Sprintf("must be an http(s) URL, got %q", cfg.API.BaseURL),
			})
		}
	}
	if cfg.API.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "api.timeoutSeconds",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.API.TimeoutSeconds),
		})
	}

	if cfg.Socket.URL != "" {
		u, err := url.Parse(cfg.Socket.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			issues = append(issues, ValidationIssue{
				Path:    "socket.url",
				Message: fmt.Sprintf("must be a ws(s) URL, got %q", cfg.Socket.URL),
			})
		}
	}

	validRoles := []string{"customer", "doctor", "staff"}
	if cfg.User.Role != "" && !slices.Contains(validRoles, cfg.User.Role) {
		issues = append(issues, ValidationIssue{
			Path:    "user.role",
			Message: fmt.Sprintf("must be one of %v, got %q", validRoles, cfg.User.Role),
		})
	}

	if cfg.Chat.PollActiveMs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.pollActiveMs",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Chat.PollActiveMs),
		})
	}
	if cfg.Chat.PollRelaxedMs < cfg.Chat.PollActiveMs {
		issues = append(issues, ValidationIssue{
			Path:    "chat.pollRelaxedMs",
			Message: "relaxed cadence must not be tighter than the active cadence",
		})
	}
	if cfg.Chat.CorrelationWindowMs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.correlationWindowMs",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Chat.CorrelationWindowMs),
		})
	}
	if cfg.Chat.MaxSendAttempts < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.maxSendAttempts",
			Message: fmt.Sprintf("must be >= 1, got %d", cfg.Chat.MaxSendAttempts),
		})
	}

	if cfg.Upload.MaxBytes < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "upload.maxBytes",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Upload.MaxBytes),
		})
	}
	for _, mt := range cfg.Upload.AllowedTypes {
		if !strings.Contains(mt, "/") {
			issues = append(issues, ValidationIssue{
				Path:    "upload.allowedTypes",
				Message: fmt.Sprintf("%q is not a MIME type", mt),
			})
		}
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	for i, h := range cfg.Hooks.MessageReceived {
		if h.Command == "" {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("hooks.messageReceived[%d].command", i),
				Message: "command is required",
			})
		}
	}
	for i, h := range cfg.Hooks.MessageFailed {
		if h.Command == "" {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("hooks.messageFailed[%d].command", i),
				Message: "command is required",
			})
		}
	}

	return issues
}
