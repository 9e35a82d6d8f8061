package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/tokens"
)

func testRegistry() *Registry {
	return NewRegistry(tokens.NewCounter(nil), logging.Silent())
}

func echoAction(name string) Action {
	return Action{
		Doc: Doc{
			Name:        name,
			Description: "echoes its input",
			Parameters: ObjectSchema(map[string]Property{
				"text": {Type: "string", Description: "text to echo"},
			}, "text"),
		},
		Invoke: func(ctx context.Context, actx *Context, args Params) (any, error) {
			return map[string]any{"status": StatusSuccess, "text": args.String("text")}, nil
		},
	}
}

func TestInvokeSuccess(t *testing.T) {
	r := testRegistry()
	r.Register(echoAction("echo"))

	res := r.Invoke(context.Background(), &Context{}, "echo", `{"text":"hi"}`)

	m, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, m["status"])
	assert.Equal(t, "hi", m["text"])
}

func TestInvokeUnknownAction(t *testing.T) {
	r := testRegistry()

	res := r.Invoke(context.Background(), &Context{}, "nope", "{}")

	m, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, StatusError, m["status"])
	assert.Contains(t, m["error"], "nope")
}

func TestInvokeMalformedArguments(t *testing.T) {
	r := testRegistry()
	r.Register(echoAction("echo"))

	res := r.Invoke(context.Background(), &Context{}, "echo", `{"text":`)

	m, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, StatusError, m["status"])
	assert.Contains(t, m["error"], "parse")
}

func TestInvokeEmptyArguments(t *testing.T) {
	r := testRegistry()
	r.Register(echoAction("echo"))

	res := r.Invoke(context.Background(), &Context{}, "echo", "")

	m, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, m["status"])
	assert.Equal(t, "", m["text"])
}

func TestInvokeErrorBecomesValue(t *testing.T) {
	r := testRegistry()
	r.Register(Action{
		Doc: Doc{Name: "flaky", Parameters: ObjectSchema(nil)},
		Invoke: func(ctx context.Context, actx *Context, args Params) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	})

	res := r.Invoke(context.Background(), &Context{}, "flaky", "{}")

	m, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, StatusError, m["status"])
	assert.Equal(t, "backend unavailable", m["error"])
}

func TestInvokeNilResultIsSuccess(t *testing.T) {
	r := testRegistry()
	r.Register(Action{
		Doc: Doc{Name: "quiet", Parameters: ObjectSchema(nil)},
		Invoke: func(ctx context.Context, actx *Context, args Params) (any, error) {
			return nil, nil
		},
	})

	res := r.Invoke(context.Background(), &Context{}, "quiet", "{}")

	assert.Equal(t, SuccessResult(), res)
}

func TestRegisterOverwritesDuplicate(t *testing.T) {
	r := testRegistry()
	r.Register(echoAction("echo"))
	r.Register(Action{
		Doc: Doc{Name: "echo", Description: "replacement", Parameters: ObjectSchema(nil)},
		Invoke: func(ctx context.Context, actx *Context, args Params) (any, error) {
			return map[string]any{"status": StatusSuccess, "v": 2}, nil
		},
	})

	require.Equal(t, 1, r.Len())
	res := r.Invoke(context.Background(), &Context{}, "echo", "{}")
	m := res.(map[string]any)
	assert.Equal(t, 2, m["v"])
}

func TestSchemaTokensMemoized(t *testing.T) {
	r := testRegistry()
	r.Register(echoAction("echo"))

	first := r.SchemaTokens()
	assert.Positive(t, first)
	assert.Equal(t, first, r.SchemaTokens())

	r.Register(echoAction("another_action_with_a_long_name"))
	second := r.SchemaTokens()
	assert.Greater(t, second, first)
}

func TestDocsSortedByName(t *testing.T) {
	r := testRegistry()
	r.Register(echoAction("zeta"))
	r.Register(echoAction("alpha"))

	docs := r.Docs()
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha", docs[0].Name)
	assert.Equal(t, "zeta", docs[1].Name)
}

func TestParamsAccessors(t *testing.T) {
	p, err := ParseArgs(`{"id": 42, "q": "hello"}`)
	require.NoError(t, err)

	id, ok := p.Int("id")
	require.True(t, ok)
	assert.Equal(t, 42, id)
	assert.Equal(t, "hello", p.String("q"))

	_, ok = p.Int("missing")
	assert.False(t, ok)
	assert.Equal(t, "", p.String("missing"))
}
