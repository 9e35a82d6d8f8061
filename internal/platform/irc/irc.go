// Package irc bridges IRC channels and direct messages to the
// conversation hub using the girc library. Channel messages share one
// session per channel; direct messages get a session per nick.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"github.com/lrstanley/girc"

	"github.com/soyeahso/beacon/internal/config"
	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/platform"
)

const platformID = "irc"

// Bridge connects an IRC network to the hub.
type Bridge struct {
	cfg config.IRCConfig
	hub *platform.Hub
	log *logging.Logger

	mu      sync.RWMutex
	client  *girc.Client
	ctx     context.Context
	running bool
}

func New(cfg config.IRCConfig, hub *platform.Hub, log *logging.Logger) *Bridge {
	return &Bridge{
		cfg: cfg,
		hub: hub,
		log: log.Sub("irc"),
	}
}

func (b *Bridge) Name() string { return platformID }

// Run connects to the IRC server and serves until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	for _, nick := range b.cfg.Admins {
		if err := b.hub.Seed(ctx, platformID+":"+nick, nick, true); err != nil {
			return fmt.Errorf("seed admin %q: %w", nick, err)
		}
	}

	port := b.cfg.Port
	if port == 0 {
		if b.cfg.UseTLS {
			port = 6697
		} else {
			port = 6667
		}
	}

	gircCfg := girc.Config{
		Server:  b.cfg.Server,
		Port:    port,
		Nick:    b.cfg.Nick,
		User:    b.cfg.Nick,
		Name:    "Beacon IRC Bot",
		SSL:     b.cfg.UseTLS,
		Version: "Beacon/1.0",
	}
	if b.cfg.UseTLS {
		gircCfg.TLSConfig = &tls.Config{ServerName: b.cfg.Server}
	}
	if b.cfg.SASL && b.cfg.Password != "" {
		gircCfg.SASL = &girc.SASLPlain{User: b.cfg.Nick, Pass: b.cfg.Password}
	} else if b.cfg.Password != "" {
		gircCfg.ServerPass = b.cfg.Password
	}

	client := girc.New(gircCfg)
	client.Handlers.Add(girc.CONNECTED, b.onConnected)
	client.Handlers.Add(girc.PRIVMSG, b.onPrivmsg)
	client.Handlers.Add(girc.DISCONNECTED, b.onDisconnected)

	b.mu.Lock()
	b.client = client
	b.ctx = ctx
	b.running = true
	b.mu.Unlock()

	b.log.Info().
		Str("server", b.cfg.Server).
		Int("port", port).
		Str("nick", b.cfg.Nick).
		Strs("channels", b.cfg.Channels).
		Bool("tls", b.cfg.UseTLS).
		Msg("connecting to IRC")

	// Connect blocks until the connection drops.
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Connect()
	}()

	select {
	case err := <-errCh:
		b.setRunning(false)
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		client.Quit("Beacon shutting down")
		client.Close()
		b.setRunning(false)
		return ctx.Err()
	}
}

func (b *Bridge) setRunning(v bool) {
	b.mu.Lock()
	b.running = v
	b.mu.Unlock()
}

func (b *Bridge) onConnected(_ *girc.Client, _ girc.Event) {
	b.log.Info().Str("nick", b.client.GetNick()).Msg("connected to IRC")
	for _, ch := range b.cfg.Channels {
		b.log.Info().Str("channel", ch).Msg("joining channel")
		b.client.Cmd.Join(ch)
	}
}

func (b *Bridge) onDisconnected(_ *girc.Client, _ girc.Event) {
	b.log.Warn().Msg("disconnected from IRC")
	b.setRunning(false)
}

func (b *Bridge) onPrivmsg(_ *girc.Client, e girc.Event) {
	if e.Source == nil || e.Source.Name == b.client.GetNick() {
		return
	}

	body := e.Last()
	if e.IsAction() {
		body = e.StripAction()
	}

	nick := e.Source.Name
	var chatID string
	if e.IsFromChannel() {
		// In a channel the bot only answers when addressed by nick.
		if !mentions(body, b.cfg.Nick) {
			return
		}
		chatID = e.Params[0]
	} else {
		chatID = nick
	}

	b.mu.RLock()
	ctx := b.ctx
	b.mu.RUnlock()

	go b.respond(ctx, nick, chatID, body)
}

// respond runs one conversation cycle and sends the final reply back
// to the originating channel or nick.
func (b *Bridge) respond(ctx context.Context, nick, chatID, body string) {
	key := domain.SessionKey{PlatformID: platformID, ChatID: chatID}
	ctrl, err := b.hub.Controller(ctx, key)
	if err != nil {
		b.log.Error().Err(err).Str("chat", chatID).Msg("controller unavailable")
		return
	}

	input := &domain.Input{
		SenderID: platformID + ":" + nick,
		Message:  body,
	}

	var reply string
	for ev := range ctrl.Submit(ctx, input) {
		switch ev.Type {
		case domain.EventMessageEnd:
			reply = ev.Content
		case domain.EventError:
			b.log.Warn().
				Str("kind", string(ev.Error.Kind)).
				Str("chat", chatID).
				Msg(ev.Error.Message)
			reply = "something went wrong, try again later"
		}
	}

	if reply == "" {
		return
	}
	b.send(chatID, reply)
}

func (b *Bridge) send(target, body string) {
	b.mu.RLock()
	client := b.client
	b.mu.RUnlock()
	if client == nil || !client.IsConnected() {
		b.log.Warn().Str("to", target).Msg("dropping reply, not connected")
		return
	}

	lines := splitMessage(body, 400)
	for _, line := range lines {
		client.Cmd.Message(target, line)
	}
	b.log.Debug().Str("to", target).Int("lines", len(lines)).Msg("sent IRC reply")
}

// mentions reports whether the body addresses the given nick.
func mentions(body, nick string) bool {
	return strings.Contains(strings.ToLower(body), strings.ToLower(nick))
}

// splitMessage breaks a reply into lines suitable for PRIVMSG. IRC
// cannot carry embedded newlines and caps lines at roughly 512 bytes,
// so each input line becomes its own chunk and long lines are cut at
// maxLen bytes.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLen {
			chunks = append(chunks, line[:maxLen])
			line = line[maxLen:]
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}
