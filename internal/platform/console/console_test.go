package console

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/beacon/internal/config"
	"github.com/soyeahso/beacon/internal/llm"
	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/platform"
	"github.com/soyeahso/beacon/internal/store"
)

func consoleWith(t *testing.T, client llm.Client, input string) (*Console, *strings.Builder) {
	t.Helper()
	reg := llm.NewRegistry(logging.Silent())
	reg.Register("mock", client)
	reg.SetFallback("mock")
	hub := platform.NewHub(config.Defaults(), reg,
		store.NewMemorySessionStore(),
		store.NewMemoryTurnStore(),
		store.NewMemorySenderStore(),
		logging.Silent(),
	)
	var out strings.Builder
	return New(hub, strings.NewReader(input), &out, logging.Silent()), &out
}

func TestRunStreamsReply(t *testing.T) {
	script := llm.Script([]llm.Delta{
		{Content: "All "},
		{Content: "clear."},
		{FinishReason: llm.FinishReasonStop},
	})
	c, out := consoleWith(t, script, "status report\n")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "All clear.")
}

func TestRunSkipsEmptyLinesAndQuits(t *testing.T) {
	c, out := consoleWith(t, &llm.MockClient{}, "\n\n/quit\nignored\n")

	require.NoError(t, c.Run(context.Background()))

	// nothing was submitted, so no reply text appears
	assert.NotContains(t, out.String(), "mock response")
}

func TestRunRendersErrors(t *testing.T) {
	script := llm.Script([]llm.Delta{
		{Err: &llm.ProviderError{Provider: "mock", Message: "down", Code: 500}},
	})
	c, out := consoleWith(t, script, "hello\n")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "error (provider)")
	assert.Contains(t, out.String(), "down")
}
