// Package bot implements the conversation controller: one instance
// owns one session's turn window and drives the
// receive → complete → act → reply cycle.
//
// The tool-call loop is an explicit iteration with a depth counter, so
// the recursion bound is enforced in one place and a runaway model
// cannot grow the stack.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/beacon/internal/action"
	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/llm"
	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/middleware"
	"github.com/soyeahso/beacon/internal/plugin"
	"github.com/soyeahso/beacon/internal/store"
	"github.com/soyeahso/beacon/internal/tokens"
)

// Defaults for Config fields left zero.
const (
	DefaultTokenLimit    = 4096
	DefaultSafetyMargin  = 1024
	DefaultProtectedTail = 5
	DefaultMaxToolDepth  = 8
	DefaultHistoryLimit  = 50
)

const toolLimitMessage = "Tool call limit reached. Do not call any more tools; reply to the user with what you have."

// Config holds the per-session knobs of a controller.
type Config struct {
	SessionID string
	Model     string
	Prompt    string

	// Limits maps model references to their context window sizes.
	// Models not listed fall back to TokenLimit.
	Limits     map[string]int
	TokenLimit int

	// SafetyMargin is headroom kept under the model limit so the
	// completion itself has room.
	SafetyMargin int

	// ProtectedTail is how many of the newest turns the budgeter never
	// truncates.
	ProtectedTail int

	// MaxToolDepth bounds consecutive tool invocations in one cycle.
	MaxToolDepth int

	// HistoryLimit caps the in-memory turn window.
	HistoryLimit int

	MaxResponseTokens int
	Temperature       *float64
}

func (c *Config) withDefaults() {
	if c.TokenLimit <= 0 {
		c.TokenLimit = DefaultTokenLimit
	}
	if c.SafetyMargin <= 0 {
		c.SafetyMargin = DefaultSafetyMargin
	}
	if c.ProtectedTail <= 0 {
		c.ProtectedTail = DefaultProtectedTail
	}
	if c.MaxToolDepth <= 0 {
		c.MaxToolDepth = DefaultMaxToolDepth
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
}

// Deps are the collaborators a controller is wired with.
type Deps struct {
	Providers *llm.Registry
	Turns     store.TurnStore
	Senders   store.SenderStore
	Sessions  store.SessionStore // optional, for persisting model switches
	Log       *logging.Logger
	Bundles   []plugin.Bundle
}

// Controller drives one session. Submit serializes processing: a
// second Submit blocks until the first cycle finishes.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	model    string
	window   []domain.Turn
	hydrated bool

	providers *llm.Registry
	turns     store.TurnStore
	senders   store.SenderStore
	sessions  store.SessionStore
	actions   *action.Registry
	pipeline  *middleware.Pipeline
	counter   *tokens.Counter
	budget    *tokens.Budgeter
	log       *logging.Logger

	now func() time.Time
}

func New(cfg Config, deps Deps) *Controller {
	cfg.withDefaults()
	log := deps.Log.Sub("bot")
	counter := tokens.NewCounter(func(msg string, err error) {
		log.Warn().Err(err).Msg(msg)
	})

	c := &Controller{
		cfg:       cfg,
		model:     cfg.Model,
		providers: deps.Providers,
		turns:     deps.Turns,
		senders:   deps.Senders,
		sessions:  deps.Sessions,
		actions:   action.NewRegistry(counter, deps.Log),
		pipeline:  middleware.NewPipeline(deps.Log),
		counter:   counter,
		budget:    tokens.NewBudgeter(counter),
		log:       log,
		now:       time.Now,
	}
	for _, b := range deps.Bundles {
		for _, a := range b.Actions {
			c.actions.Register(a)
		}
		c.pipeline.Add(b.Middlewares...)
	}
	return c
}

// Submit feeds one input to the controller and returns the event
// sequence for this cycle. The channel closes after the terminal
// event. Canceling ctx releases the cycle even if the caller stops
// reading.
func (c *Controller) Submit(ctx context.Context, input *domain.Input) <-chan domain.Event {
	out := make(chan domain.Event, 32)
	go func() {
		defer close(out)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.run(ctx, input, out)
	}()
	return out
}

// TokenTotal returns the current token cost of the turn window.
func (c *Controller) TokenTotal() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter.Sum(c.window)
}

// SessionID implements middleware.Surface.
func (c *Controller) SessionID() string { return c.cfg.SessionID }

// Model implements middleware.Surface.
func (c *Controller) Model() string { return c.model }

// CreateSystemTurn implements middleware.Surface. Only valid inside a
// hook invocation; the running cycle already holds the lock.
func (c *Controller) CreateSystemTurn(ctx context.Context, content string) error {
	return c.createTurn(ctx, &domain.Turn{Role: domain.RoleSystem, Content: content})
}

// run is the whole state machine for one submission. It always emits a
// terminal event (message-end, action-result followed by a reply, or
// error) unless ctx is canceled.
func (c *Controller) run(ctx context.Context, input *domain.Input, out chan<- domain.Event) {
	senderID := ""
	if input != nil {
		senderID = input.SenderID
	}

	if err := c.hydrate(ctx, senderID); err != nil {
		c.emitError(ctx, out, domain.ErrorKindInternal, fmt.Sprintf("loading history: %v", err))
		return
	}
	if input != nil && input.SenderID != "" && c.senders != nil {
		if _, err := c.senders.GetOrCreate(ctx, input.SenderID, ""); err != nil {
			c.log.Warn().Err(err).Str("sender", input.SenderID).Msg("sender upsert failed")
		}
	}

	cause := middleware.CauseMessage
	depth := 0
	toolsExhausted := false

	for {
		preEvents, suppress := c.pipeline.PreProcess(ctx, input, cause, c)
		for _, ev := range preEvents {
			if !c.emit(ctx, out, ev) {
				return
			}
		}

		if input != nil && input.Message != "" {
			turn := domain.Turn{Role: domain.RoleUser, Content: input.Message, SenderID: input.SenderID}
			if err := c.createTurn(ctx, &turn); err != nil {
				c.emitError(ctx, out, domain.ErrorKindInternal, fmt.Sprintf("storing message: %v", err))
				return
			}
		}

		req, err := c.buildRequest(ctx, !toolsExhausted)
		if err != nil {
			c.emitError(ctx, out, domain.ErrorKindInternal, err.Error())
			return
		}
		client, err := c.providers.Resolve(c.model)
		if err != nil {
			c.emitError(ctx, out, domain.ErrorKindInternal, err.Error())
			return
		}
		deltas, err := client.StreamCompletion(ctx, req)
		if err != nil {
			c.emitProviderError(ctx, out, client.Name(), err)
			return
		}

		content, call, finish, ok := c.consume(ctx, out, deltas, !suppress)
		if !ok {
			return
		}

		assistant := domain.Turn{Role: domain.RoleAssistant, Content: content}
		if call != nil {
			assistant.ToolCall = call
		}
		if err := c.createTurn(ctx, &assistant); err != nil {
			c.emitError(ctx, out, domain.ErrorKindInternal, fmt.Sprintf("storing reply: %v", err))
			return
		}

		if finish == llm.FinishReasonToolCall && toolsExhausted {
			// provider kept calling tools although none were offered
			c.log.Warn().Str("model", c.model).Msg("tool call after tool budget exhausted, forcing reply")
			finish = llm.FinishReasonStop
		}

		if finish != llm.FinishReasonToolCall || call == nil {
			if !suppress {
				if !c.emit(ctx, out, domain.Event{Type: domain.EventMessageEnd, Content: content}) {
					return
				}
			}
			c.pipeline.PostProcess(ctx, input, cause, c)
			return
		}

		args := map[string]any{}
		if parsed, err := action.ParseArgs(call.Arguments); err == nil {
			args = parsed
		}
		if !c.emit(ctx, out, domain.Event{Type: domain.EventAction, ActionName: call.Name, ActionArgs: args}) {
			return
		}
		for _, ev := range c.pipeline.PreFunctionCall(ctx, middleware.FunctionCall{Name: call.Name, Args: args}, c) {
			if !c.emit(ctx, out, ev) {
				return
			}
		}

		var result any
		if depth >= c.cfg.MaxToolDepth {
			c.log.Warn().Str("action", call.Name).Int("depth", depth).Msg("tool depth limit reached")
			result = action.ErrorResult(toolLimitMessage)
			toolsExhausted = true
		} else {
			result = c.actions.Invoke(ctx, c.actionContext(ctx, senderID), call.Name, call.Arguments)
		}
		depth++

		if !c.emit(ctx, out, domain.Event{Type: domain.EventActionResult, ActionName: call.Name, Result: result}) {
			return
		}
		for _, ev := range c.pipeline.PostFunctionCall(ctx, middleware.FunctionCallResult{Name: call.Name, Args: args, Response: result}, c) {
			if !c.emit(ctx, out, ev) {
				return
			}
		}

		resultTurn := domain.Turn{Role: domain.RoleFunction, ToolName: call.Name, Content: marshalResult(result)}
		if err := c.createTurn(ctx, &resultTurn); err != nil {
			c.emitError(ctx, out, domain.ErrorKindInternal, fmt.Sprintf("storing action result: %v", err))
			return
		}

		input = nil
		cause = middleware.CauseFunction
	}
}

// consume drains the delta stream, reconstructing content and any tool
// call by plain concatenation. Reply events are only emitted when
// emitReply is set. ok is false when the cycle must stop (error delta
// or canceled context).
func (c *Controller) consume(ctx context.Context, out chan<- domain.Event, deltas <-chan llm.Delta, emitReply bool) (string, *domain.ToolCall, string, bool) {
	var content, callName, callArgs string
	finish := ""
	started := false

	for d := range deltas {
		if d.Err != nil {
			c.emitProviderError(ctx, out, d.Err.Provider, d.Err)
			return "", nil, "", false
		}
		content += d.Content
		callName += d.ToolCallName
		callArgs += d.ToolCallArgs

		if d.Content != "" && emitReply {
			if !started {
				started = true
				if !c.emit(ctx, out, domain.Event{Type: domain.EventMessageStart}) {
					return "", nil, "", false
				}
			}
			if !c.emit(ctx, out, domain.Event{Type: domain.EventMessagePart, Content: d.Content}) {
				return "", nil, "", false
			}
		}
		if d.FinishReason != "" {
			finish = d.FinishReason
			break
		}
	}
	if ctx.Err() != nil {
		return "", nil, "", false
	}
	if finish != llm.FinishReasonToolCall && emitReply && !started {
		// empty reply still opens the message frame
		if !c.emit(ctx, out, domain.Event{Type: domain.EventMessageStart}) {
			return "", nil, "", false
		}
	}

	var call *domain.ToolCall
	if callName != "" {
		call = &domain.ToolCall{Name: callName, Arguments: callArgs}
	}
	return content, call, finish, true
}

// hydrate lazily loads the recent history. The freshly loaded window is
// budgeted to half the model limit so a session dormant since a larger
// model was active cannot blow the first request.
func (c *Controller) hydrate(ctx context.Context, senderID string) error {
	if c.hydrated {
		return nil
	}
	loaded, err := c.turns.Find(ctx, c.cfg.SessionID, c.cfg.HistoryLimit)
	if err != nil {
		return err
	}
	c.window = loaded
	c.hydrated = true
	c.fitWindow(ctx, c.limitFor(c.model)/2)

	if len(c.window) == 0 && senderID != "" && c.actions.Has("get_user_info") {
		// cold start: surface the stored profile as an unpersisted
		// function turn so the model knows who it is talking to
		result := c.actions.Invoke(ctx, c.actionContext(ctx, senderID), "get_user_info", "{}")
		turn := domain.Turn{
			SessionID: c.cfg.SessionID,
			Role:      domain.RoleFunction,
			ToolName:  "get_user_info",
			Content:   marshalResult(result),
			Timestamp: c.now(),
		}
		turn.Tokens = c.counter.CountTurn(turn)
		c.window = append(c.window, turn)
	}

	c.log.Debug().Str("session", c.cfg.SessionID).Int("turns", len(c.window)).Msg("history hydrated")
	return nil
}

// createTurn persists a turn, appends it to the window and re-applies
// the budget so the invariant holds after every mutation.
func (c *Controller) createTurn(ctx context.Context, t *domain.Turn) error {
	t.SessionID = c.cfg.SessionID
	if t.Timestamp.IsZero() {
		t.Timestamp = c.now()
	}
	t.Tokens = c.counter.CountTurn(*t)
	if err := c.turns.Create(ctx, t); err != nil {
		return err
	}
	c.window = append(c.window, *t)
	if len(c.window) > c.cfg.HistoryLimit {
		c.window = c.window[len(c.window)-c.cfg.HistoryLimit:]
	}
	c.fitWindow(ctx, c.effectiveLimit())
	return nil
}

// fitWindow budgets the window to limit and persists any content
// rewrites, so a truncated turn stays truncated across restarts.
func (c *Controller) fitWindow(ctx context.Context, limit int) {
	fitted, report := c.budget.Fit(c.window, limit, c.cfg.ProtectedTail)
	if report.Evicted() {
		c.log.Info().
			Str("session", c.cfg.SessionID).
			Ints64("truncated", report.TruncatedIDs).
			Int("dropped", report.Dropped).
			Msg("window rebudgeted")
		truncated := map[int64]bool{}
		for _, id := range report.TruncatedIDs {
			truncated[id] = true
		}
		for i := range fitted {
			if truncated[fitted[i].ID] && fitted[i].ID > 0 {
				if err := c.turns.Save(ctx, &fitted[i]); err != nil {
					c.log.Warn().Err(err).Int64("turn", fitted[i].ID).Msg("persisting truncation failed")
				}
			}
		}
	}
	c.window = fitted
}

// buildRequest assembles the provider request: system prompt, a clock
// turn, the budgeted window and (unless exhausted) the tool schemas.
func (c *Controller) buildRequest(ctx context.Context, includeTools bool) (llm.Request, error) {
	clockTurn := domain.Turn{
		Role:    domain.RoleSystem,
		Content: "It is now " + c.now().Format(time.RFC1123) + ".",
	}
	overhead := c.counter.CountTurn(clockTurn)

	var promptTurn *domain.Turn
	if c.cfg.Prompt != "" {
		promptTurn = &domain.Turn{Role: domain.RoleSystem, Content: c.cfg.Prompt}
		overhead += c.counter.CountTurn(*promptTurn)
	}
	includeTools = includeTools && c.actions.Len() > 0
	if includeTools {
		overhead += c.actions.SchemaTokens()
	}

	avail := c.effectiveLimit() - overhead
	if avail < 1 {
		return llm.Request{}, fmt.Errorf("model %s leaves no room for history (limit %d, overhead %d)", c.model, c.limitFor(c.model), overhead)
	}
	c.fitWindow(ctx, avail)

	msgs := make([]llm.Message, 0, len(c.window)+2)
	if promptTurn != nil {
		msgs = append(msgs, llm.FromTurn(*promptTurn))
	}
	msgs = append(msgs, llm.FromTurn(clockTurn))
	msgs = append(msgs, llm.FromTurns(c.window)...)

	req := llm.Request{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.cfg.MaxResponseTokens,
		Temperature: c.cfg.Temperature,
	}
	if includeTools {
		for _, doc := range c.actions.Docs() {
			req.Tools = append(req.Tools, llm.ToolDef{
				Name:        doc.Name,
				Description: doc.Description,
				Parameters:  doc.Parameters,
			})
		}
	}
	return req, nil
}

func (c *Controller) actionContext(ctx context.Context, senderID string) *action.Context {
	return &action.Context{
		SessionID: c.cfg.SessionID,
		SenderID:  senderID,
		Model:     c.model,
		Turns:     c.turns,
		Senders:   c.senders,
		SetModel: func(model string) error {
			return c.setModel(ctx, model)
		},
	}
}

// setModel switches the session model and re-applies the budget under
// the new limit. Called from inside a running cycle.
func (c *Controller) setModel(ctx context.Context, model string) error {
	if model == c.model {
		return nil
	}
	if _, err := c.providers.Resolve(model); err != nil {
		return fmt.Errorf("no provider serves model %q", model)
	}
	c.log.Info().Str("from", c.model).Str("to", model).Msg("switching model")
	c.model = model
	if c.sessions != nil {
		if err := c.sessions.SaveModel(ctx, c.cfg.SessionID, model); err != nil {
			c.log.Warn().Err(err).Msg("persisting model switch failed")
		}
	}
	c.fitWindow(ctx, c.effectiveLimit())
	return nil
}

func (c *Controller) limitFor(model string) int {
	if n, ok := c.cfg.Limits[model]; ok && n > 0 {
		return n
	}
	return c.cfg.TokenLimit
}

func (c *Controller) effectiveLimit() int {
	limit := c.limitFor(c.model) - c.cfg.SafetyMargin
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (c *Controller) emit(ctx context.Context, out chan<- domain.Event, ev domain.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Controller) emitError(ctx context.Context, out chan<- domain.Event, kind domain.ErrorKind, msg string) {
	c.log.Error().Str("kind", string(kind)).Msg(msg)
	c.emit(ctx, out, domain.Event{
		Type:  domain.EventError,
		Error: &domain.ErrorInfo{Kind: kind, Message: msg},
	})
}

func (c *Controller) emitProviderError(ctx context.Context, out chan<- domain.Event, provider string, err error) {
	c.log.Error().Err(err).Str("provider", provider).Msg("provider failed")
	c.emit(ctx, out, domain.Event{
		Type:  domain.EventError,
		Error: &domain.ErrorInfo{Kind: domain.ErrorKindProvider, Message: err.Error()},
	})
}

func marshalResult(result any) string {
	raw, err := json.Marshal(result)
	if err != nil {
		return `{"status":"error","error":"unserializable action result"}`
	}
	return string(raw)
}
