package gateway

import "github.com/soyeahso/beacon/internal/domain"

// Frame types for the WebSocket protocol.
const (
	FrameTypeConnect = "connect" // client → server, first frame
	FrameTypeHello   = "hello"   // server → client, after auth
	FrameTypeMessage = "message" // client → server, one user message
	FrameTypeEvent   = "event"   // server → client, one controller event
	FrameTypeError   = "error"   // server → client, protocol error
)

// Frame is the envelope for all WebSocket messages. Type discriminates
// which fields are meaningful.
type Frame struct {
	Type string `json:"type"`

	// connect fields
	Token  string     `json:"token,omitempty"`
	Client ClientInfo `json:"client,omitempty"`

	// message fields
	ChatID  string `json:"chatId,omitempty"`
	Message string `json:"message,omitempty"`

	// hello fields
	ConnID string `json:"connId,omitempty"`

	// event fields
	Seq   int64         `json:"seq,omitempty"`
	Event *domain.Event `json:"event,omitempty"`

	// error fields
	Error *ErrorShape `json:"error,omitempty"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Platform    string `json:"platform,omitempty"`
}

// ErrorShape is the standard error format in error frames.
type ErrorShape struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
