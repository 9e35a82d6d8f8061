package domain

import "time"

// SessionKey identifies a conversation from a platform adapter's point
// of view. Adapters map keys to session ids; the controller only ever
// sees the resolved id.
type SessionKey struct {
	PlatformID string `json:"platformId"`
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId,omitempty"`
}

// String returns the canonical string form of the key.
func (k SessionKey) String() string {
	s := k.PlatformID + ":" + k.ChatID
	if k.SenderID != "" {
		s += ":" + k.SenderID
	}
	return s
}

// Session is one long-lived conversation. The turn window itself lives
// inside the controller that owns the session; Session carries only the
// stable identity and configuration.
type Session struct {
	ID        string    `json:"id"`
	Key       SessionKey `json:"key"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sender is a conversation participant, upserted on first contact.
type Sender struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
	Info    string `json:"info,omitempty"` // model-maintained profile notes
}

// Input is one inbound message from a platform adapter. A nil *Input
// represents a self-triggered continuation (e.g. after a tool call).
type Input struct {
	SessionID string `json:"sessionId"`
	SenderID  string `json:"senderId"`
	Message   string `json:"message"`
}
