package cli

import (
	"fmt"
	"time"

	"github.com/petwell/pawchat/internal/config"
	"github.com/petwell/pawchat/internal/hooks"
	"github.com/petwell/pawchat/internal/logging"
	"github.com/petwell/pawchat/internal/session"
	"github.com/petwell/pawchat/internal/store"
	"github.com/petwell/pawchat/internal/transport"
)

// app bundles the wired session stack behind the chat-facing commands.
type app struct {
	cfg        config.Config
	rest       *transport.REST
	socket     *transport.Socket
	db         *store.DB
	hooks      *hooks.Manager
	controller *session.Controller
}

// buildApp loads configuration and wires the transport, cache, hooks and
// session controller. The socket and transcript cache are both optional;
// the stack degrades rather than failing when either is unavailable.
func buildApp() (*app, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	if cfg.User.ID == "" {
		return nil, fmt.Errorf("user.id is not configured; run: pawchat config set user.id <id>")
	}
	for _, issue := range config.Validate(&cfg) {
		log.Warn().Str("path", issue.Path).Str("issue", issue.Message).Msg("config issue")
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	// Logging per config once paths exist; the early root logger only
	// covered flag parsing.
	logFile := cfg.Logging.File
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log = logging.NewFromOptions(logging.Options{Level: level, Style: cfg.Logging.ConsoleStyle, File: logFile})

	token := config.ResolveToken(&cfg, paths)
	rest := transport.NewREST(
		cfg.API.BaseURL,
		token,
		time.Duration(cfg.API.TimeoutSeconds)*time.Second,
		transport.UploadLimits{MaxBytes: cfg.Upload.MaxBytes, AllowedTypes: cfg.Upload.AllowedTypes},
		log,
	)

	a := &app{cfg: cfg, rest: rest}

	var push session.Push
	if cfg.SocketEnabled() {
		a.socket = transport.NewSocket(cfg.SocketURL(), log)
		push = a.socket
	}

	var transcripts *store.TranscriptStore
	if cfg.CacheEnabled() {
		dbPath := cfg.Cache.Path
		if dbPath == "" {
			dbPath = paths.TranscriptDB()
		}
		db, err := store.Open(dbPath, log)
		if err != nil {
			log.Warn().Err(err).Msg("transcript cache unavailable, continuing without it")
		} else {
			a.db = db
			transcripts = store.NewTranscriptStore(db)
		}
	}

	a.hooks = hooks.NewManager(log)
	registerConfigHooks(a.hooks, &cfg)

	a.controller = session.New(session.FromConfig(&cfg), rest, push, transcripts, a.hooks, log)
	return a, nil
}

func (a *app) close() {
	a.controller.Close()
	if a.db != nil {
		_ = a.db.Close()
	}
}

// registerConfigHooks attaches the shell commands from the hooks config
// section to their events.
func registerConfigHooks(hk *hooks.Manager, cfg *config.Config) {
	attach := func(event string, entries []config.HookEntry) {
		for _, e := range entries {
			if e.Command == "" {
				continue
			}
			hk.On(event, "config", hooks.ShellHandler(e.Command, time.Duration(e.Timeout)*time.Millisecond))
		}
	}
	attach(hooks.EventMessageReceived, cfg.Hooks.MessageReceived)
	attach(hooks.EventMessageFailed, cfg.Hooks.MessageFailed)
}
