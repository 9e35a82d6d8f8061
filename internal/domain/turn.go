package domain

import "time"

// Role classifies who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// ToolCall is a model-requested capability invocation, reconstructed
// from streamed fragments.
type ToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON as emitted by the model
}

// Turn is one atomic unit of conversation history: a message, a tool
// call, or a tool result. Turns are immutable once persisted except for
// the explicit "too long" content rewrite, which is persisted as well.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content,omitempty"`
	ToolCall  *ToolCall `json:"toolCall,omitempty"` // set on assistant turns that request a tool
	ToolName  string    `json:"toolName,omitempty"` // set on function-result turns
	SenderID  string    `json:"senderId,omitempty"`
	Tokens    int       `json:"tokens"`
	Timestamp time.Time `json:"timestamp"`
}
