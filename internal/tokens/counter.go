// Package tokens measures turn cost in model tokens and enforces the
// context budget through content eviction.
package tokens

import (
	"encoding/json"

	"github.com/pkoukk/tiktoken-go"

	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/llm"
)

// Counter maps turns to their token cost. Counting happens on the
// serialized wire representation (role, content, tool-call fields),
// because that is what the model is billed on.
type Counter struct {
	enc  *tiktoken.Tiktoken
	warn func(msg string, err error)
}

// NewCounter creates a counter using the cl100k_base encoding. When the
// encoding cannot be loaded (offline environments), a character
// heuristic takes over; warn, if non-nil, is called once to report it.
func NewCounter(warn func(msg string, err error)) *Counter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		if warn != nil {
			warn("token encoding unavailable, falling back to heuristic", err)
		}
		enc = nil
	}
	return &Counter{enc: enc, warn: warn}
}

// CountTurn returns the token cost of one turn. Malformed turns count
// as zero; counting never fails.
func (c *Counter) CountTurn(t domain.Turn) int {
	serialized, err := json.Marshal(llm.FromTurn(t))
	if err != nil {
		if c.warn != nil {
			c.warn("turn serialization failed, counting as zero", err)
		}
		return 0
	}
	return c.countText(string(serialized))
}

// Sum totals the cached token counts of a turn window. It deliberately
// reads the Tokens field instead of re-encoding: budget checks run on
// every mutation and must stay cheap, and the controller recomputes
// Tokens whenever content changes.
func (c *Counter) Sum(turns []domain.Turn) int {
	total := 0
	for _, t := range turns {
		total += t.Tokens
	}
	return total
}

// CountText counts tokens in a raw string, for payloads that are not
// history turns (tool schemas, prompt fragments).
func (c *Counter) CountText(s string) int {
	return c.countText(s)
}

func (c *Counter) countText(s string) int {
	if c.enc != nil {
		return len(c.enc.Encode(s, nil, nil))
	}
	// Rough estimate: ASCII ~4 chars/token, non-ASCII (e.g. CJK) ~2
	// tokens/char, plus fixed message overhead.
	ascii, wide := 0, 0
	for _, r := range s {
		if r <= 127 {
			ascii++
		} else {
			wide++
		}
	}
	return ascii/4 + wide*2 + 4
}
