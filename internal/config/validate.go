package config

import (
	"fmt"
	"slices"
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

	if cfg.Bot.SafetyMargin < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "bot.safetyMargin",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Bot.SafetyMargin),
		})
	}
	if cfg.Bot.MaxToolDepth < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "bot.maxToolDepth",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Bot.MaxToolDepth),
		})
	}
	if cfg.Bot.UserInfoInterval < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "bot.userInfoInterval",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Bot.UserInfoInterval),
		})
	}
	if limit, ok := cfg.Models.Limits[cfg.Bot.Model]; ok && limit <= cfg.Bot.SafetyMargin {
		issues = append(issues, ValidationIssue{
			Path:    "bot.safetyMargin",
			Message: fmt.Sprintf("margin %d leaves no room under the %d-token limit of %s", cfg.Bot.SafetyMargin, limit, cfg.Bot.Model),
		})
	}

	for name, limit := range cfg.Models.Limits {
		if limit <= 0 {
			issues = append(issues, ValidationIssue{
				Path:    "models.limits." + name,
				Message: fmt.Sprintf("limit must be positive, got %d", limit),
			})
		}
	}
	if cfg.Models.Fallback != "" {
		if _, ok := cfg.Providers[cfg.Models.Fallback]; !ok {
			issues = append(issues, ValidationIssue{
				Path:    "models.fallback",
				Message: fmt.Sprintf("names unknown provider %q", cfg.Models.Fallback),
			})
		}
	}
	for name, provider := range cfg.Providers {
		if provider.BaseURL == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers." + name + ".baseUrl",
				Message: "baseUrl is required",
			})
		}
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}
	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.customBindHost",
			Message: "required when bind is custom",
		})
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

	validStores := []string{"sqlite", "memory"}
	if cfg.Session.Store != "" && !slices.Contains(validStores, cfg.Session.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "session.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Session.Store),
		})
	}

	if cfg.IRC != nil {
		irc := cfg.IRC
		if irc.Server == "" {
			issues = append(issues, ValidationIssue{
				Path:    "irc.server",
				Message: "server is required",
			})
		}
		if irc.Nick == "" {
			issues = append(issues, ValidationIssue{
				Path:    "irc.nick",
				Message: "nick is required",
			})
		}
		if irc.Port < 0 || irc.Port > 65535 {
			issues = append(issues, ValidationIssue{
				Path:    "irc.port",
				Message: fmt.Sprintf("port must be 0-65535, got %d", irc.Port),
			})
		}
		if irc.SASL && irc.Password == "" {
			issues = append(issues, ValidationIssue{
				Path:    "irc.sasl",
				Message: "SASL requires a password to be set",
			})
		}
	}

	return issues
}
