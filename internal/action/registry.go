package action

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/tokens"
)

// Registry holds the actions offered to the model for one controller.
// It is not safe for concurrent use; the controller serializes access.
type Registry struct {
	actions map[string]Action
	counter *tokens.Counter
	log     *logging.Logger

	schemaCost int
	schemaOK   bool
}

func NewRegistry(counter *tokens.Counter, log *logging.Logger) *Registry {
	return &Registry{
		actions: map[string]Action{},
		counter: counter,
		log:     log.Sub("action"),
	}
}

// Register adds an action. Registering a name twice overwrites the
// earlier entry and invalidates the memoized schema cost.
func (r *Registry) Register(a Action) {
	if _, dup := r.actions[a.Doc.Name]; dup {
		r.log.Warn().Str("action", a.Doc.Name).Msg("action re-registered, overwriting")
	}
	r.actions[a.Doc.Name] = a
	r.schemaOK = false
}

// Has reports whether an action with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.actions[name]
	return ok
}

// Len reports the number of registered actions.
func (r *Registry) Len() int { return len(r.actions) }

// Docs returns the advertised definitions, sorted by name so the wire
// payload is stable.
func (r *Registry) Docs() []Doc {
	docs := make([]Doc, 0, len(r.actions))
	for _, a := range r.actions {
		docs = append(docs, a.Doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

// SchemaTokens returns the token cost of the serialized action schemas.
// The value is memoized until the next Register call.
func (r *Registry) SchemaTokens() int {
	if r.schemaOK {
		return r.schemaCost
	}
	var sb strings.Builder
	for _, doc := range r.Docs() {
		raw, err := json.Marshal(map[string]any{
			"name":        doc.Name,
			"description": doc.Description,
			"parameters":  doc.Parameters,
		})
		if err != nil {
			continue
		}
		sb.Write(raw)
	}
	r.schemaCost = r.counter.CountText(sb.String())
	r.schemaOK = true
	return r.schemaCost
}

// Invoke runs the named action against rawArgs. It never returns an
// error: unknown names, malformed arguments and invoker failures all
// come back as structured error values for the model to read.
func (r *Registry) Invoke(ctx context.Context, actx *Context, name, rawArgs string) any {
	a, ok := r.actions[name]
	if !ok {
		r.log.Warn().Str("action", name).Msg("model requested unknown action")
		return ErrorResult(fmt.Sprintf("unknown action %q", name))
	}
	args, err := ParseArgs(rawArgs)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to parse arguments: %v", err))
	}
	result, err := a.Invoke(ctx, actx, args)
	if err != nil {
		r.log.Warn().Err(err).Str("action", name).Msg("action failed")
		return ErrorResult(err.Error())
	}
	if result == nil {
		return SuccessResult()
	}
	return result
}

// ParseArgs decodes the model-supplied argument string. An empty string
// parses as no arguments.
func ParseArgs(raw string) (Params, error) {
	if strings.TrimSpace(raw) == "" {
		return Params{}, nil
	}
	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Params{}
	}
	return p, nil
}
