package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, filepath.Join(t.TempDir(), "config.yaml"), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "beacon")
}

func TestConfigSetGetUnset(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := runCLI(t, cfgPath, "config", "set", "bot.model", "gpt-4")
	require.NoError(t, err)
	assert.Contains(t, out, "Set bot.model = gpt-4")

	out, err = runCLI(t, cfgPath, "config", "get", "bot.model")
	require.NoError(t, err)
	assert.Contains(t, out, "gpt-4")

	out, err = runCLI(t, cfgPath, "config", "unset", "bot.model")
	require.NoError(t, err)
	assert.Contains(t, out, "Unset bot.model")

	_, err = runCLI(t, cfgPath, "config", "get", "bot.model")
	require.Error(t, err)
}

func TestConfigGetMissingKey(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "config.yaml"), "config", "get", "bot.nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConfigSetTypedValues(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := runCLI(t, cfgPath, "config", "set", "gateway.port", "9000")
	require.NoError(t, err)

	out, err := runCLI(t, cfgPath, "config", "get", "gateway.port")
	require.NoError(t, err)
	assert.Contains(t, out, "9000")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("FALSE"))
	assert.Equal(t, 42, parseValue("42"))
	assert.Equal(t, 3.5, parseValue("3.5"))
	assert.Equal(t, "hello", parseValue("hello"))
}
