package domain

// EventType tags an output event. Middleware may emit events with types
// outside this list; the controller passes them through verbatim.
type EventType string

const (
	EventMessageStart EventType = "message-start"
	EventMessagePart  EventType = "message-part"
	EventMessageEnd   EventType = "message-end"
	EventAction       EventType = "action"
	EventActionResult EventType = "action-result"
	EventError        EventType = "error"
)

// Event is one element of the ordered, finite event sequence produced
// by a single controller invocation.
type Event struct {
	Type       EventType      `json:"type"`
	Content    string         `json:"content,omitempty"`
	ActionName string         `json:"actionName,omitempty"`
	ActionArgs map[string]any `json:"actionArgs,omitempty"`
	Result     any            `json:"result,omitempty"`
	Error      *ErrorInfo     `json:"error,omitempty"`
}

// ErrorKind classifies terminal error events.
type ErrorKind string

const (
	ErrorKindProvider ErrorKind = "provider"
	ErrorKindInternal ErrorKind = "internal"
)

// ErrorInfo carries a terminal error as data.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Raw     string    `json:"raw,omitempty"`
}
