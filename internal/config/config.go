// Package config loads and validates the Beacon YAML configuration.
package config

import "fmt"

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
		Bot: BotConfig{
			Model:            "gpt-3.5-turbo",
			SafetyMargin:     1024,
			ProtectedTail:    5,
			MaxToolDepth:     8,
			HistoryLimit:     50,
			UserInfoInterval: 8,
		},
		Providers: map[string]ProviderEntry{
			"openai": {
				BaseURL: "https://api.openai.com/v1",
				APIKey:  "${OPENAI_API_KEY}",
			},
		},
		Models: ModelsConfig{
			Limits: map[string]int{
				"gpt-3.5-turbo":     4096,
				"gpt-3.5-turbo-16k": 16384,
				"gpt-4":             8192,
				"gpt-4-32k":         32768,
			},
			Fallback: "openai",
		},
		Gateway: GatewayConfig{
			Port: 18791,
			Bind: "loopback",
		},
		Session: SessionConfig{
			Store: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
