package config

// Config is the root configuration for Beacon.
type Config struct {
	Bot       BotConfig                `yaml:"bot,omitempty"`
	Providers map[string]ProviderEntry `yaml:"providers,omitempty"`
	Models    ModelsConfig             `yaml:"models,omitempty"`
	Gateway   GatewayConfig            `yaml:"gateway,omitempty"`
	IRC       *IRCConfig               `yaml:"irc,omitempty"`
	Session   SessionConfig            `yaml:"session,omitempty"`
	Logging   LoggingConfig            `yaml:"logging,omitempty"`
}

// BotConfig holds the per-conversation defaults.
type BotConfig struct {
	Model             string   `yaml:"model,omitempty"`
	Prompt            string   `yaml:"prompt,omitempty"`
	SafetyMargin      int      `yaml:"safetyMargin,omitempty"`
	ProtectedTail     int      `yaml:"protectedTail,omitempty"`
	MaxToolDepth      int      `yaml:"maxToolDepth,omitempty"`
	HistoryLimit      int      `yaml:"historyLimit,omitempty"`
	MaxResponseTokens int      `yaml:"maxResponseTokens,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`

	// UserInfo enables the persistent per-sender profile plugin.
	// Defaults to true; set false to disable.
	UserInfo         *bool `yaml:"userInfo,omitempty"`
	UserInfoInterval int   `yaml:"userInfoInterval,omitempty"`
}

// ProviderEntry defines one completion provider.
type ProviderEntry struct {
	BaseURL string   `yaml:"baseUrl,omitempty"`
	APIKey  string   `yaml:"apiKey,omitempty"`
	Models  []string `yaml:"models,omitempty"` // model references routed to this provider
}

// ModelsConfig maps model references to context window sizes and names
// the provider used when a model is not claimed by any entry.
type ModelsConfig struct {
	Limits   map[string]int `yaml:"limits,omitempty"`
	Fallback string         `yaml:"fallback,omitempty"`
}

// GatewayConfig controls the WebSocket gateway server.
type GatewayConfig struct {
	Port           int    `yaml:"port,omitempty"`
	Bind           string `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string `yaml:"customBindHost,omitempty"`
	Token          string `yaml:"token,omitempty"` // shared secret; empty disables auth
}

// IRCConfig defines the IRC bridge settings.
type IRCConfig struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port,omitempty"`
	Nick     string   `yaml:"nick"`
	Password string   `yaml:"password,omitempty"`
	Channels []string `yaml:"channels"`
	UseTLS   bool     `yaml:"useTLS,omitempty"`
	SASL     bool     `yaml:"sasl,omitempty"`
	Admins   []string `yaml:"admins,omitempty"` // nicks granted admin on first contact
}

// SessionConfig defines where conversation state lives.
type SessionConfig struct {
	Store string `yaml:"store,omitempty"` // "sqlite" | "memory"
	Path  string `yaml:"path,omitempty"`  // sqlite file; defaults under the data dir
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
