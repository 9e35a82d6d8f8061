package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/soyeahso/beacon/internal/config"
	"github.com/soyeahso/beacon/internal/llm"
	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/platform"
	"github.com/soyeahso/beacon/internal/store"
)

// runtime bundles everything a serving command needs.
type runtime struct {
	cfg config.Config
	log *logging.Logger
	hub *platform.Hub

	db      *store.DB
	logFile *os.File
}

func (r *runtime) Close() {
	if r.db != nil {
		r.db.Close()
	}
	if r.logFile != nil {
		r.logFile.Close()
	}
}

// buildRuntime loads and validates configuration, then wires the
// provider registry, session stores and hub from it.
func buildRuntime() (*runtime, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	r := &runtime{cfg: cfg}
	r.log, r.logFile, err = newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			r.log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		r.Close()
		return nil, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}

	providers := llm.NewRegistry(r.log)
	for name, entry := range cfg.Providers {
		providers.Register(name, llm.NewOpenAIClient(entry.BaseURL, entry.APIKey))
		for _, model := range entry.Models {
			providers.Alias(model, name)
		}
	}
	if cfg.Models.Fallback != "" {
		providers.SetFallback(cfg.Models.Fallback)
	}

	var (
		sessions store.SessionStore
		turns    store.TurnStore
		senders  store.SenderStore
	)
	if cfg.Session.Store == "memory" {
		sessions = store.NewMemorySessionStore()
		turns = store.NewMemoryTurnStore()
		senders = store.NewMemorySenderStore()
		r.log.Info().Msg("using in-memory session store")
	} else {
		if err := paths.EnsureDirs(); err != nil {
			r.Close()
			return nil, err
		}
		dbPath := paths.DatabasePath(&cfg)
		r.db, err = store.Open(dbPath, r.log)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		sessions = store.NewSQLiteSessionStore(r.db)
		turns = store.NewSQLiteTurnStore(r.db)
		senders = store.NewSQLiteSenderStore(r.db)
		r.log.Info().Str("path", dbPath).Msg("using SQLite session store")
	}

	r.hub = platform.NewHub(cfg, providers, sessions, turns, senders, r.log)
	return r, nil
}

// newLogger builds the root logger from config, honoring the
// --log-level flag over the configured level.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, *os.File, error) {
	level := cfg.Level
	if logLevel != "" {
		level = logLevel
	}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return logging.New(f, level), f, nil
	}

	var w io.Writer
	if cfg.ConsoleStyle == "json" {
		w = os.Stderr
	}
	return logging.New(w, level), nil, nil
}
