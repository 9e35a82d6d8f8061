// Package platform connects chat surfaces (console, WebSocket gateway,
// IRC) to conversation controllers. The Hub owns one controller per
// session key and hands the same instance to every adapter asking for
// that key.
package platform

import (
	"context"
	"sync"

	"github.com/soyeahso/beacon/internal/bot"
	"github.com/soyeahso/beacon/internal/config"
	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/llm"
	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/plugin"
	"github.com/soyeahso/beacon/internal/store"
)

// Platform is a chat surface that feeds a Hub.
type Platform interface {
	// Name identifies the adapter ("console", "gateway", "irc").
	Name() string

	// Run serves the platform until ctx is canceled.
	Run(ctx context.Context) error
}

// Hub builds and caches controllers keyed by session.
type Hub struct {
	cfg       config.Config
	providers *llm.Registry
	sessions  store.SessionStore
	turns     store.TurnStore
	senders   store.SenderStore
	log       *logging.Logger

	mu          sync.Mutex
	controllers map[string]*bot.Controller
}

func NewHub(cfg config.Config, providers *llm.Registry, sessions store.SessionStore, turns store.TurnStore, senders store.SenderStore, log *logging.Logger) *Hub {
	return &Hub{
		cfg:         cfg,
		providers:   providers,
		sessions:    sessions,
		turns:       turns,
		senders:     senders,
		log:         log,
		controllers: map[string]*bot.Controller{},
	}
}

// Controller returns the controller owning the session for key,
// creating session and controller on first contact.
func (h *Hub) Controller(ctx context.Context, key domain.SessionKey) (*bot.Controller, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.controllers[key.String()]; ok {
		return c, nil
	}

	sess, err := h.sessions.GetOrCreate(ctx, key, h.cfg.Bot.Model, h.cfg.Bot.Prompt)
	if err != nil {
		return nil, err
	}

	bundles := []plugin.Bundle{plugin.Default()}
	if h.cfg.Bot.UserInfo == nil || *h.cfg.Bot.UserInfo {
		bundles = append(bundles, plugin.UserInfo(h.cfg.Bot.UserInfoInterval))
	}

	c := bot.New(bot.Config{
		SessionID:         sess.ID,
		Model:             sess.Model,
		Prompt:            sess.Prompt,
		Limits:            h.cfg.Models.Limits,
		SafetyMargin:      h.cfg.Bot.SafetyMargin,
		ProtectedTail:     h.cfg.Bot.ProtectedTail,
		MaxToolDepth:      h.cfg.Bot.MaxToolDepth,
		HistoryLimit:      h.cfg.Bot.HistoryLimit,
		MaxResponseTokens: h.cfg.Bot.MaxResponseTokens,
		Temperature:       h.cfg.Bot.Temperature,
	}, bot.Deps{
		Providers: h.providers,
		Turns:     h.turns,
		Senders:   h.senders,
		Sessions:  h.sessions,
		Log:       h.log,
		Bundles:   bundles,
	})

	h.controllers[key.String()] = c
	h.log.Info().Str("key", key.String()).Str("session", sess.ID).Msg("controller created")
	return c, nil
}

// Seed marks a sender as admin, typically from a config allowlist.
func (h *Hub) Seed(ctx context.Context, senderID, name string, admin bool) error {
	if _, err := h.senders.GetOrCreate(ctx, senderID, name); err != nil {
		return err
	}
	if admin {
		return h.senders.SetAdmin(ctx, senderID, true)
	}
	return nil
}
