package llm

import (
	"encoding/json"

	"github.com/soyeahso/beacon/internal/domain"
)

// userEnvelope is the wire form of a user turn: the sender travels with
// the content so the model can tell participants apart in group chats.
type userEnvelope struct {
	Sender  userRef `json:"sender"`
	Content string  `json:"content"`
}

type userRef struct {
	ID string `json:"id"`
}

// FromTurn projects a stored turn into the wire message actually sent
// to the provider. Token costs are computed on this projection, not on
// raw content length.
func FromTurn(t domain.Turn) Message {
	m := Message{
		Role:    string(t.Role),
		Content: t.Content,
		Name:    t.ToolName,
	}
	if t.Role == domain.RoleUser && t.SenderID != "" {
		if enveloped, err := json.Marshal(userEnvelope{
			Sender:  userRef{ID: t.SenderID},
			Content: t.Content,
		}); err == nil {
			m.Content = string(enveloped)
		}
	}
	if t.ToolCall != nil {
		m.FunctionCall = &FunctionCall{
			Name:      t.ToolCall.Name,
			Arguments: t.ToolCall.Arguments,
		}
	}
	return m
}

// FromTurns projects a window of turns.
func FromTurns(turns []domain.Turn) []Message {
	msgs := make([]Message, len(turns))
	for i, t := range turns {
		msgs[i] = FromTurn(t)
	}
	return msgs
}
