// Package middleware defines the four lifecycle interception points of
// the conversation loop and the ordered pipeline that runs them.
package middleware

import (
	"context"

	"github.com/soyeahso/beacon/internal/domain"
)

// Cause tells a hook why the current cycle started.
type Cause string

const (
	// CauseMessage marks a cycle started by external input.
	CauseMessage Cause = "message"
	// CauseFunction marks a self-triggered continuation after a tool
	// call.
	CauseFunction Cause = "function"
)

// FunctionCall describes a detected tool call, before invocation.
type FunctionCall struct {
	Name string
	Args map[string]any
}

// FunctionCallResult describes a completed tool call.
type FunctionCallResult struct {
	Name     string
	Args     map[string]any
	Response any
}

// PreResult is the outcome of a PreProcess hook. A nil *PreResult means
// "nothing to add". SuppressReply asks the controller to skip the
// message-start/part/end events for this cycle; the model call still
// runs and its turn is still persisted.
type PreResult struct {
	Event         *domain.Event
	SuppressReply bool
}

// HookResult is the outcome of the function-call hooks; it may carry an
// event for the caller's UI.
type HookResult struct {
	Event *domain.Event
}

// Surface is the narrow controller capability exposed to middleware.
// Its methods are only valid inside a hook invocation.
type Surface interface {
	// SessionID returns the id of the session being processed.
	SessionID() string

	// Model returns the session's current model reference.
	Model() string

	// CreateSystemTurn persists a system turn into the session window.
	CreateSystemTurn(ctx context.Context, content string) error
}

// Middleware observes the turn-processing state machine. All hooks are
// optional; embed Base to implement only some of them.
type Middleware interface {
	// PreProcess runs before the model is queried.
	PreProcess(ctx context.Context, input *domain.Input, cause Cause, s Surface) (*PreResult, error)

	// PostProcess runs after a terminal (non-tool-call) reply completes.
	PostProcess(ctx context.Context, input *domain.Input, cause Cause, s Surface) error

	// PreFunctionCall runs after a tool call is detected, before
	// invocation.
	PreFunctionCall(ctx context.Context, call FunctionCall, s Surface) (*HookResult, error)

	// PostFunctionCall runs after invocation, before the result turn is
	// persisted.
	PostFunctionCall(ctx context.Context, call FunctionCallResult, s Surface) (*HookResult, error)
}

// Base is the no-op Middleware; embed it and override the hooks you
// need.
type Base struct{}

func (Base) PreProcess(context.Context, *domain.Input, Cause, Surface) (*PreResult, error) {
	return nil, nil
}

func (Base) PostProcess(context.Context, *domain.Input, Cause, Surface) error {
	return nil
}

func (Base) PreFunctionCall(context.Context, FunctionCall, Surface) (*HookResult, error) {
	return nil, nil
}

func (Base) PostFunctionCall(context.Context, FunctionCallResult, Surface) (*HookResult, error) {
	return nil, nil
}
