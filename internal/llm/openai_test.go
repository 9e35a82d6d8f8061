package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan Delta) []Delta {
	t.Helper()
	var out []Delta
	for d := range ch {
		out = append(out, d)
	}
	return out
}

func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
	}))
}

func TestOpenAIStreamContent(t *testing.T) {
	srv := sseServer(t,
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		"[DONE]",
	)
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "test-key")
	ch, err := client.StreamCompletion(context.Background(), Request{Model: "gpt-test"})
	require.NoError(t, err)

	deltas := collect(t, ch)
	require.Len(t, deltas, 3)
	assert.Equal(t, "Hel", deltas[0].Content)
	assert.Equal(t, "lo", deltas[1].Content)
	assert.Equal(t, FinishReasonStop, deltas[2].FinishReason)
}

func TestOpenAIStreamToolCallFragments(t *testing.T) {
	// A single logical token may be split across deltas; the fragments
	// must be forwarded verbatim for the consumer to concatenate.
	srv := sseServer(t,
		`{"choices":[{"delta":{"function_call":{"name":"get_cur"}}}]}`,
		`{"choices":[{"delta":{"function_call":{"name":"rent_time","arguments":"{\"pla"}}}]}`,
		`{"choices":[{"delta":{"function_call":{"arguments":"ceholder\":\"x\"}"}}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"function_call"}]}`,
		"[DONE]",
	)
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "")
	ch, err := client.StreamCompletion(context.Background(), Request{Model: "gpt-test"})
	require.NoError(t, err)

	var name, args string
	var finish string
	for _, d := range collect(t, ch) {
		name += d.ToolCallName
		args += d.ToolCallArgs
		if d.FinishReason != "" {
			finish = d.FinishReason
		}
	}

	assert.Equal(t, "get_current_time", name)
	assert.Equal(t, `{"placeholder":"x"}`, args)
	assert.Equal(t, FinishReasonToolCall, finish)
}

func TestOpenAIStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "")
	ch, err := client.StreamCompletion(context.Background(), Request{Model: "gpt-test"})
	require.NoError(t, err)

	deltas := collect(t, ch)
	require.Len(t, deltas, 1)
	require.NotNil(t, deltas[0].Err)
	assert.Equal(t, http.StatusTooManyRequests, deltas[0].Err.Code)
	assert.Contains(t, deltas[0].Err.Message, "rate limited")
}

func TestOpenAIStreamMissingFinish(t *testing.T) {
	srv := sseServer(t,
		`{"choices":[{"delta":{"content":"partial"}}]}`,
	)
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "")
	ch, err := client.StreamCompletion(context.Background(), Request{Model: "gpt-test"})
	require.NoError(t, err)

	deltas := collect(t, ch)
	require.Len(t, deltas, 2)
	assert.Equal(t, "partial", deltas[0].Content)
	assert.Equal(t, FinishReasonStop, deltas[1].FinishReason)
}

func TestNormalizeFinishReason(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"function_call", FinishReasonToolCall},
		{"tool_calls", FinishReasonToolCall},
		{"length", FinishReasonLength},
		{"stop", FinishReasonStop},
		{"content_filter", FinishReasonStop},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeFinishReason(tt.in), tt.in)
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := newTestRegistry()
	mock := &MockClient{ProviderName: "openai"}
	reg.Register("openai", mock)
	reg.Alias("gpt-4", "openai")
	reg.SetFallback("openai")

	byName, err := reg.Resolve("openai")
	require.NoError(t, err)
	assert.Same(t, mock, byName)

	byAlias, err := reg.Resolve("gpt-4")
	require.NoError(t, err)
	assert.Same(t, mock, byAlias)

	byFallback, err := reg.Resolve("something-else")
	require.NoError(t, err)
	assert.Same(t, mock, byFallback)
}

func TestRegistryResolveEmpty(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.Resolve("gpt-4")
	assert.Error(t, err)
}
