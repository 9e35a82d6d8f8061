package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable
// values. Unset variables are left unchanged.
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
// credential fields so keys and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Gateway.Token = expandEnvVars(cfg.Gateway.Token)
	if cfg.IRC != nil {
		cfg.IRC.Password = expandEnvVars(cfg.IRC.Password)
	}
	for name, provider := range cfg.Providers {
		provider.APIKey = expandEnvVars(provider.APIKey)
		cfg.Providers[name] = provider
	}
}

// Load reads the config file, applies environment overrides, and
// returns a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			expandSensitiveFields(&cfg)
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

// LoadRaw reads the config file into a generic map for path-based
// access.
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
	d := Defaults()
	if cfg.Bot.Model == "" {
		cfg.Bot.Model = d.Bot.Model
	}
	if cfg.Bot.SafetyMargin == 0 {
		cfg.Bot.SafetyMargin = d.Bot.SafetyMargin
	}
	if cfg.Bot.ProtectedTail == 0 {
		cfg.Bot.ProtectedTail = d.Bot.ProtectedTail
	}
	if cfg.Bot.MaxToolDepth == 0 {
		cfg.Bot.MaxToolDepth = d.Bot.MaxToolDepth
	}
	if cfg.Bot.HistoryLimit == 0 {
		cfg.Bot.HistoryLimit = d.Bot.HistoryLimit
	}
	if cfg.Bot.UserInfoInterval == 0 {
		cfg.Bot.UserInfoInterval = d.Bot.UserInfoInterval
	}
	if len(cfg.Models.Limits) == 0 {
		cfg.Models.Limits = d.Models.Limits
	}
	if cfg.Models.Fallback == "" {
		cfg.Models.Fallback = d.Models.Fallback
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = d.Providers
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = d.Gateway.Port
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = d.Gateway.Bind
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = d.Session.Store
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = d.Logging.ConsoleStyle
	}
}

// applyEnvOverrides reads BEACON_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BEACON_MODEL"); v != "" {
		cfg.Bot.Model = v
	}
	if v := os.Getenv("BEACON_PROMPT"); v != "" {
		cfg.Bot.Prompt = v
	}
	if v := os.Getenv("BEACON_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("BEACON_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("BEACON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("BEACON_SESSION_STORE"); v != "" {
		cfg.Session.Store = v
	}
}
