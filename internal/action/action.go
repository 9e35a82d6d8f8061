// Package action implements the model-invocable action registry. An
// action never surfaces a Go error to the model: every failure is
// rendered as a structured result value so the conversation can
// continue.
package action

import "context"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Property describes one parameter in an action schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Schema is the JSON-schema object advertised to the model for an
// action's arguments.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ObjectSchema builds an object schema with the given required names.
func ObjectSchema(props map[string]Property, required ...string) Schema {
	if props == nil {
		props = map[string]Property{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

// Doc is the advertised description of one action.
type Doc struct {
	Name        string
	Description string
	Parameters  Schema
}

// Params carries the parsed JSON arguments of an invocation.
type Params map[string]any

// String returns the named argument as a string, or "" when absent or
// of another type.
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Int returns the named argument as an int. JSON numbers decode as
// float64, so both forms are accepted.
func (p Params) Int(name string) (int, bool) {
	switch v := p[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Invoker is the behavior of an action. A nil result with a nil error
// is reported to the model as a plain success.
type Invoker func(ctx context.Context, actx *Context, args Params) (any, error)

// Action pairs an advertised Doc with its Invoker.
type Action struct {
	Doc    Doc
	Invoke Invoker
}

// ErrorResult renders a failure as the value the model sees.
func ErrorResult(msg string) map[string]any {
	return map[string]any{"status": StatusError, "error": msg}
}

// SuccessResult is the value reported for actions that return nothing.
func SuccessResult() map[string]any {
	return map[string]any{"status": StatusSuccess}
}
