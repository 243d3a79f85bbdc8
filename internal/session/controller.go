// Package session coordinates one signed-in chat session: it owns the active
// conversation, drives history refreshes through a request epoch so stale
// responses never clobber newer state, and folds push events, polling and
// optimistic sends into a single timeline stream.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/petwell/pawchat/internal/config"
	"github.com/petwell/pawchat/internal/domain"
	"github.com/petwell/pawchat/internal/hooks"
	"github.com/petwell/pawchat/internal/logging"
	"github.com/petwell/pawchat/internal/store"
	"github.com/petwell/pawchat/internal/timeline"
	"github.com/petwell/pawchat/internal/transport"
)

// API is the request/response surface the controller needs from the backend.
// *transport.REST satisfies it.
type API interface {
	History(ctx context.Context, conversationID string) ([]domain.Message, error)
	Send(ctx context.Context, conversationID string, req transport.SendRequest) (domain.Message, error)
	CreateConversation(ctx context.Context, req transport.CreateConversationRequest) (domain.Conversation, error)
	UserConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	DoctorConversations(ctx context.Context, doctorID string) ([]domain.Conversation, error)
}

// Push is the event surface the controller needs from the socket layer.
// *transport.Socket satisfies it. A nil Push means polling only.
type Push interface {
	Connect(ctx context.Context, userID string) error
	Connected() bool
	JoinConversation(conversationID string)
	LeaveConversation(conversationID string)
	Typing(conversationID string, isTyping bool)
	OnNewMessage(name string, fn transport.MessageHandler)
	OnTyping(name string, fn transport.TypingHandler)
	OnConnectionChange(name string, fn transport.ConnHandler)
	Close() error
}

// Config carries the per-session settings the controller needs.
type Config struct {
	UserID        string
	UserName      string
	Role          string
	DoctorID      string
	ClinicID      string
	AppointmentID string

	CorrelationWindow time.Duration
	MaxSendAttempts   int
}

// FromConfig derives session settings from the loaded configuration.
func FromConfig(cfg *config.Config) Config {
	return Config{
		UserID:            cfg.User.ID,
		UserName:          cfg.User.Name,
		Role:              cfg.User.Role,
		DoctorID:          cfg.User.DoctorID,
		ClinicID:          cfg.User.ClinicID,
		AppointmentID:     cfg.User.AppointmentID,
		CorrelationWindow: time.Duration(cfg.Chat.CorrelationWindowMs) * time.Millisecond,
		MaxSendAttempts:   cfg.Chat.MaxSendAttempts,
	}
}

// TimelineUpdate is pushed to the view every time the merged timeline
// changes. Appended is true when the entry count grew, the cue for the view
// to scroll to the latest entry.
type TimelineUpdate struct {
	ConversationID string
	Entries        []domain.TimelineEntry
	Appended       bool
}

// Controller is the session coordinator. All exported methods are safe for
// concurrent use; view callbacks are invoked from whichever goroutine
// triggered the change.
type Controller struct {
	cfg         Config
	api         API
	push        Push
	transcripts *store.TranscriptStore
	hooks       *hooks.Manager
	reconciler  *timeline.Reconciler
	messages    *store.MessageStore
	log         *logging.Logger

	mu        sync.Mutex
	active    domain.Conversation
	hasActive bool
	epoch     uint64
	lastCount int

	ctx context.Context

	// OnTimeline receives every rebuilt timeline for the active conversation.
	OnTimeline func(update TimelineUpdate)
	// OnTyping receives peer typing signals for the active conversation.
	OnTyping func(sig domain.TypingSignal)
	// Notify receives short user-facing notices (send failures, retry caps).
	Notify func(text string)
}

// New creates a session controller. transcripts may be nil to disable the
// local cache, push may be nil to run polling-only.
func New(cfg Config, api API, push Push, transcripts *store.TranscriptStore, hk *hooks.Manager, log *logging.Logger) *Controller {
	if cfg.MaxSendAttempts <= 0 {
		cfg.MaxSendAttempts = 3
	}
	if cfg.Role == "" {
		cfg.Role = string(domain.RoleCustomer)
	}
	return &Controller{
		cfg:         cfg,
		api:         api,
		push:        push,
		transcripts: transcripts,
		hooks:       hk,
		reconciler:  timeline.New(cfg.CorrelationWindow),
		messages:    store.NewMessageStore(),
		log:         log.Sub("session"),
	}
}

// Start connects the push layer and registers the session's event handlers.
// A failed socket connect is logged, not returned; the session still works
// over polling alone.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	if c.push == nil {
		c.log.Info().Msg("push disabled, polling only")
		return
	}

	c.push.OnNewMessage("session", c.handlePushMessage)
	c.push.OnTyping("session", c.handleTyping)
	c.push.OnConnectionChange("session", c.handleConnChange)

	if err := c.push.Connect(ctx, c.cfg.UserID); err != nil {
		c.log.Warn().Err(err).Msg("socket connect failed, continuing with polling")
	}
}

// Close leaves the active conversation room and tears down the push
// connection.
func (c *Controller) Close() {
	c.mu.Lock()
	active := c.active
	hasActive := c.hasActive
	c.hasActive = false
	c.mu.Unlock()

	if c.push != nil {
		if hasActive {
			c.push.LeaveConversation(active.ID)
		}
		_ = c.push.Close()
	}
}

// PushHealthy reports whether push delivery is currently trusted. Wired as
// the poller's health check so the cadence relaxes while the socket is up.
func (c *Controller) PushHealthy() bool {
	return c.push != nil && c.push.Connected()
}

// Active returns the currently selected conversation, if any.
func (c *Controller) Active() (domain.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.hasActive
}

// Refresh fetches the active conversation's history and replaces the
// confirmed list wholesale. A response that arrives after the conversation
// changed is discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.hasActive {
		c.mu.Unlock()
		return nil
	}
	conv := c.active
	epoch := c.epoch
	c.mu.Unlock()

	msgs, err := c.api.History(ctx, conv.ID)
	if err != nil {
		return err
	}

	// The epoch check and the store swap stay under one lock so a Select
	// racing this response cannot see its state clobbered afterwards.
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.log.Debug().Str("conversationId", conv.ID).Msg("discarding stale history response")
		return nil
	}
	c.messages.ReplaceConfirmed(msgs)
	c.pruneSuperseded(msgs)
	c.mu.Unlock()

	if c.transcripts != nil {
		c.transcripts.ReplaceMessages(conv.ID, msgs)
	}

	c.emitTimeline(conv.ID)
	return nil
}

// pruneSuperseded removes local entries whose confirmed copy is now present,
// so the optimistic record does not linger once the server echoes it back.
func (c *Controller) pruneSuperseded(confirmed []domain.Message) {
	_, local := c.messages.Snapshot()
	for _, lm := range local {
		if c.reconciler.Superseded(lm, confirmed) {
			c.messages.DropLocal(lm.TempID)
		}
	}
}

// emitTimeline rebuilds the merged view and pushes it to the renderer.
func (c *Controller) emitTimeline(conversationID string) {
	confirmed, local := c.messages.Snapshot()
	entries := c.reconciler.Build(confirmed, local)

	c.mu.Lock()
	appended := len(entries) > c.lastCount
	c.lastCount = len(entries)
	onTimeline := c.OnTimeline
	c.mu.Unlock()

	if onTimeline != nil {
		onTimeline(TimelineUpdate{ConversationID: conversationID, Entries: entries, Appended: appended})
	}
}

func (c *Controller) handlePushMessage(msg domain.Message) {
	c.hooks.EmitAsync(c.sessionContext(), hooks.EventMessageReceived, map[string]any{
		"conversationId": msg.ConversationID,
		"senderId":       msg.SenderID,
		"content":        msg.Content,
	})

	c.mu.Lock()
	isActive := c.hasActive && c.active.ID == msg.ConversationID
	c.mu.Unlock()

	if !isActive {
		c.log.Debug().Str("conversationId", msg.ConversationID).Msg("push for inactive conversation")
		return
	}

	// Push is a hint, not a source of truth. Re-fetch instead of patching
	// the confirmed list in place.
	if err := c.Refresh(c.sessionContext()); err != nil {
		c.log.Debug().Err(err).Msg("refresh after push failed")
	}
}

func (c *Controller) handleTyping(sig domain.TypingSignal) {
	c.mu.Lock()
	isActive := c.hasActive && c.active.ID == sig.ConversationID
	onTyping := c.OnTyping
	c.mu.Unlock()

	if isActive && sig.UserID != c.cfg.UserID && onTyping != nil {
		onTyping(sig)
	}
}

func (c *Controller) handleConnChange(connected bool) {
	event := hooks.EventConnectionDown
	if connected {
		event = hooks.EventConnectionUp
	}
	c.hooks.EmitAsync(c.sessionContext(), event, map[string]any{"userId": c.cfg.UserID})
}

func (c *Controller) sessionContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

func (c *Controller) notify(text string) {
	c.mu.Lock()
	fn := c.Notify
	c.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}
