package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/soyeahso/beacon/internal/domain"
)

func testCounter() *Counter {
	return NewCounter(nil)
}

func turn(role domain.Role, content string) domain.Turn {
	return domain.Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func TestCountTurnDeterministic(t *testing.T) {
	c := testCounter()
	tr := turn(domain.RoleUser, "hello there, how are you today?")

	first := c.CountTurn(tr)
	second := c.CountTurn(tr)
	assert.Equal(t, first, second)
	assert.Positive(t, first)
}

func TestCountTurnGrowsWithContent(t *testing.T) {
	c := testCounter()
	short := c.CountTurn(turn(domain.RoleUser, "hi"))
	long := c.CountTurn(turn(domain.RoleUser, strings.Repeat("a longer message ", 50)))
	assert.Greater(t, long, short)
}

func TestCountTurnIncludesToolCall(t *testing.T) {
	c := testCounter()
	plain := turn(domain.RoleAssistant, "")
	withCall := plain
	withCall.ToolCall = &domain.ToolCall{
		Name:      "search_chat_history",
		Arguments: `{"keyword":"deployment failures last week","page":1}`,
	}
	assert.Greater(t, c.CountTurn(withCall), c.CountTurn(plain))
}

func TestCountTurnIncludesSenderEnvelope(t *testing.T) {
	c := testCounter()
	anon := turn(domain.RoleUser, "hello")
	named := anon
	named.SenderID = "sender-12345"
	assert.Greater(t, c.CountTurn(named), c.CountTurn(anon))
}

func TestSumUsesCachedCounts(t *testing.T) {
	c := testCounter()
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "ignored", Tokens: 10},
		{Role: domain.RoleAssistant, Content: "also ignored", Tokens: 7},
	}
	assert.Equal(t, 17, c.Sum(turns))
	assert.Equal(t, 0, c.Sum(nil))
}

func TestCountTextFallbackHeuristic(t *testing.T) {
	c := &Counter{} // no encoding loaded
	ascii := c.countText("abcdefgh") // 8/4 + 4
	assert.Equal(t, 6, ascii)

	cjk := c.countText("日本") // 2*2 + 4
	assert.Equal(t, 8, cjk)
}
