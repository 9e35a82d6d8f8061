// Package llm defines the streaming completion client interface and the
// pluggable provider registry.
//
// Providers expose one operation: stream a completion for a request.
// Output arrives as a lazy sequence of deltas; transport failures are
// delivered as terminal error deltas, not as channel panics, so the
// consumer sees errors as values.
package llm

import "context"

// Role constants for wire messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// Finish reasons, normalized across providers.
const (
	FinishReasonStop     = "stop"
	FinishReasonToolCall = "tool_call"
	FinishReasonLength   = "length"
)

// FunctionCall is a tool invocation attached to an assistant message.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single turn in the serialized conversation sent to the
// provider.
type Message struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`          // function name on function-result messages
	FunctionCall *FunctionCall `json:"function_call,omitempty"` // set on assistant messages that requested a tool
}

// ToolDef describes a tool the model may invoke.
type ToolDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"` // JSON-schema object
}

// Request is the input to StreamCompletion.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []ToolDef `json:"tools,omitempty"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Delta is one incremental fragment of a streamed completion. A delta
// with a non-empty FinishReason or a non-nil Err is terminal; the
// channel closes after it. Reconstruction is pure concatenation of the
// fragment fields in arrival order, whatever the fragment boundaries.
type Delta struct {
	Content      string         `json:"content,omitempty"`
	ToolCallName string         `json:"toolCallName,omitempty"`
	ToolCallArgs string         `json:"toolCallArgs,omitempty"`
	FinishReason string         `json:"finishReason,omitempty"`
	Err          *ProviderError `json:"-"`
}

// Terminal reports whether this delta ends the stream.
func (d Delta) Terminal() bool {
	return d.FinishReason != "" || d.Err != nil
}

// Client is the interface all completion providers implement.
type Client interface {
	// StreamCompletion starts a completion and returns the delta
	// sequence. The returned channel is closed after a terminal delta.
	// Canceling ctx stops the upstream request and closes the channel.
	StreamCompletion(ctx context.Context, req Request) (<-chan Delta, error)

	// Name returns the provider name (e.g. "openai").
	Name() string
}
