package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", cfg.Bot.Model)
	assert.Equal(t, 8, cfg.Bot.MaxToolDepth)
	assert.Equal(t, 5, cfg.Bot.ProtectedTail)
	assert.Equal(t, 50, cfg.Bot.HistoryLimit)
	assert.Equal(t, 18791, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, 4096, cfg.Models.Limits["gpt-3.5-turbo"])
	assert.Equal(t, "openai", cfg.Models.Fallback)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  model: gpt-4
  prompt: You are a lighthouse keeper.
  maxToolDepth: 4
gateway:
  port: 9000
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", cfg.Bot.Model)
	assert.Equal(t, "You are a lighthouse keeper.", cfg.Bot.Prompt)
	assert.Equal(t, 4, cfg.Bot.MaxToolDepth)
	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// untouched fields keep defaults
	assert.Equal(t, 5, cfg.Bot.ProtectedTail)
	assert.Equal(t, "sqlite", cfg.Session.Store)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "bot: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BEACON_MODEL", "gpt-4-32k")
	t.Setenv("BEACON_GATEWAY_PORT", "7777")
	t.Setenv("BEACON_LOG_LEVEL", "WARN")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4-32k", cfg.Bot.Model)
	assert.Equal(t, 7777, cfg.Gateway.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSensitiveFieldExpansion(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-secret")
	t.Setenv("TEST_GW_TOKEN", "tok")
	path := writeConfig(t, `
providers:
  openai:
    baseUrl: https://api.openai.com/v1
    apiKey: ${TEST_API_KEY}
gateway:
  token: ${TEST_GW_TOKEN}
irc:
  server: irc.libera.chat
  nick: beacon
  channels: ["#beacon"]
  password: ${UNSET_VAR_XYZ}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-secret", cfg.Providers["openai"].APIKey)
	assert.Equal(t, "tok", cfg.Gateway.Token)
	assert.Equal(t, "${UNSET_VAR_XYZ}", cfg.IRC.Password, "unset vars stay literal")
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = 99999
	cfg.Gateway.Bind = "custom"
	cfg.Logging.Level = "verbose"
	cfg.Session.Store = "redis"
	cfg.Models.Fallback = "ghost"
	cfg.IRC = &IRCConfig{SASL: true}

	issues := Validate(&cfg)

	paths := map[string]bool{}
	for _, issue := range issues {
		paths[issue.Path] = true
	}
	for _, want := range []string{
		"gateway.port",
		"gateway.customBindHost",
		"logging.level",
		"session.store",
		"models.fallback",
		"irc.server",
		"irc.nick",
		"irc.sasl",
	} {
		assert.True(t, paths[want], "expected issue at %s, got %v", want, issues)
	}
}

func TestValidateDefaultsAreClean(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateMarginAgainstModelLimit(t *testing.T) {
	cfg := Defaults()
	cfg.Bot.SafetyMargin = 5000 // above the 4096 window of the default model

	issues := Validate(&cfg)
	require.NotEmpty(t, issues)
	assert.Equal(t, "bot.safetyMargin", issues[0].Path)
}

func TestPathsResolution(t *testing.T) {
	base := t.TempDir()
	t.Setenv("BEACON_HOME", base)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)

	require.NoError(t, paths.EnsureDirs())
	for _, d := range []string{paths.Logs, paths.Data} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	cfg := Defaults()
	assert.Equal(t, filepath.Join(base, "data", "beacon.db"), paths.DatabasePath(&cfg))
	cfg.Session.Path = "/tmp/custom.db"
	assert.Equal(t, "/tmp/custom.db", paths.DatabasePath(&cfg))
}

func TestConfigPathHelpers(t *testing.T) {
	_, err := ParseConfigPath("")
	require.Error(t, err)
	_, err = ParseConfigPath("a..b")
	require.Error(t, err)
	_, err = ParseConfigPath("a.__proto__")
	require.Error(t, err)

	path, err := ParseConfigPath("gateway.port")
	require.NoError(t, err)

	root := map[string]any{}
	SetValueAtPath(root, path, 9000)
	got, ok := GetValueAtPath(root, path)
	require.True(t, ok)
	assert.Equal(t, 9000, got)

	assert.True(t, UnsetValueAtPath(root, path))
	_, ok = GetValueAtPath(root, path)
	assert.False(t, ok)
	assert.False(t, UnsetValueAtPath(root, path))
}

func TestSaveRawRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := map[string]any{"bot": map[string]any{"model": "gpt-4"}}
	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)
	got, ok := GetValueAtPath(loaded, []string{"bot", "model"})
	require.True(t, ok)
	assert.Equal(t, "gpt-4", got)
}
