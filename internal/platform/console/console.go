// Package console implements the interactive terminal surface: one
// session, streamed replies, action traces inline.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/beacon/internal/bot"
	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/platform"
)

const platformID = "console"

// Console is a line-oriented REPL over a single session.
type Console struct {
	hub *platform.Hub
	in  io.Reader
	out io.Writer
	log *logging.Logger

	// SenderID defaults to "local".
	SenderID string
}

func New(hub *platform.Hub, in io.Reader, out io.Writer, log *logging.Logger) *Console {
	return &Console{
		hub:      hub,
		in:       in,
		out:      out,
		log:      log.Sub("console"),
		SenderID: "local",
	}
}

func (c *Console) Name() string { return platformID }

// Run reads lines until EOF or ctx cancellation. Empty lines are
// skipped; "/quit" exits.
func (c *Console) Run(ctx context.Context) error {
	key := domain.SessionKey{PlatformID: platformID, ChatID: "repl", SenderID: c.SenderID}
	ctrl, err := c.hub.Controller(ctx, key)
	if err != nil {
		return fmt.Errorf("console: %w", err)
	}
	if err := c.hub.Seed(ctx, c.SenderID, c.SenderID, true); err != nil {
		c.log.Warn().Err(err).Msg("seeding local sender failed")
	}

	scanner := bufio.NewScanner(c.in)
	fmt.Fprint(c.out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return nil
		}
		if line != "" {
			c.converse(ctx, ctrl, line)
		}
		fmt.Fprint(c.out, "> ")
	}
	return scanner.Err()
}

func (c *Console) converse(ctx context.Context, ctrl *bot.Controller, line string) {
	events := ctrl.Submit(ctx, &domain.Input{SenderID: c.SenderID, Message: line})
	for ev := range events {
		c.render(ev)
	}
}

func (c *Console) render(ev domain.Event) {
	switch ev.Type {
	case domain.EventMessagePart:
		fmt.Fprint(c.out, ev.Content)
	case domain.EventMessageEnd:
		fmt.Fprintln(c.out)
	case domain.EventAction:
		fmt.Fprintf(c.out, "[%s]\n", ev.ActionName)
	case domain.EventActionResult:
		// results are visible to the model, not echoed to the terminal
	case domain.EventError:
		if ev.Error != nil {
			fmt.Fprintf(c.out, "error (%s): %s\n", ev.Error.Kind, ev.Error.Message)
		}
	case domain.EventMessageStart:
	default:
		if ev.Content != "" {
			fmt.Fprintf(c.out, "(%s) %s\n", ev.Type, ev.Content)
		}
	}
}
