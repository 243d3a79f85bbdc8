package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petwell/pawchat/internal/domain"
	"github.com/petwell/pawchat/internal/hooks"
	"github.com/petwell/pawchat/internal/transport"
)

// ErrNoActiveConversation is returned when a send is attempted before a
// conversation has been selected.
var ErrNoActiveConversation = errors.New("no active conversation")

// ErrRetryLimit is returned when a failed message has used up its
// configured send attempts.
var ErrRetryLimit = errors.New("retry limit reached")

// Send submits a message optimistically: the timeline shows it as sending
// immediately, then flips it to delivered or failed when the request
// resolves. The returned temp id identifies the entry for Retry. Text is
// never lost on failure; a failed entry stays on the timeline with its
// content intact until retried or the view is closed.
func (c *Controller) Send(ctx context.Context, content, imageURL string) (string, error) {
	if strings.TrimSpace(content) == "" && imageURL == "" {
		return "", &transport.ValidationError{Message: "message has no text and no image"}
	}

	c.mu.Lock()
	if !c.hasActive {
		c.mu.Unlock()
		return "", ErrNoActiveConversation
	}
	conv := c.active
	c.mu.Unlock()

	local := domain.LocalMessage{
		TempID:         uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       c.cfg.UserID,
		Content:        content,
		ImageURL:       imageURL,
		ClientTag:      uuid.New().String(),
		Status:         domain.StatusSending,
		Attempts:       1,
		CreatedAt:      time.Now(),
	}
	c.messages.AppendLocal(local)
	c.emitTimeline(conv.ID)

	c.hooks.EmitAsync(ctx, hooks.EventMessageSending, map[string]any{
		"conversationId": conv.ID,
		"tempId":         local.TempID,
	})

	c.deliver(ctx, conv.ID, local)
	return local.TempID, nil
}

// Retry re-attempts a failed send, reusing the original client tag so the
// server sees it as the same logical message. Attempts are capped; past the
// cap the entry stays failed and the user is told to give up or rephrase.
func (c *Controller) Retry(ctx context.Context, tempID string) error {
	local, ok := c.messages.Local(tempID)
	if !ok {
		return fmt.Errorf("no pending message %s", tempID)
	}
	if local.Status != domain.StatusFailed {
		return fmt.Errorf("message %s is not in a failed state", tempID)
	}

	attempts := c.messages.BumpLocalAttempts(tempID)
	if attempts > c.cfg.MaxSendAttempts {
		c.notify("Message could not be delivered after repeated attempts")
		return ErrRetryLimit
	}

	c.messages.MarkLocalStatus(tempID, domain.StatusSending)
	c.emitTimeline(local.ConversationID)

	local.Attempts = attempts
	c.deliver(ctx, local.ConversationID, local)
	return nil
}

// Typing forwards a typing signal for the active conversation. No-op when
// nothing is selected or push is down.
func (c *Controller) Typing(isTyping bool) {
	c.mu.Lock()
	conv := c.active
	hasActive := c.hasActive
	c.mu.Unlock()

	if hasActive && c.push != nil {
		c.push.Typing(conv.ID, isTyping)
	}
}

// FailedMessages lists the local entries awaiting a manual retry.
func (c *Controller) FailedMessages() []domain.LocalMessage {
	return c.messages.FailedLocals()
}

// deliver runs one send attempt and resolves the local entry's status.
func (c *Controller) deliver(ctx context.Context, conversationID string, local domain.LocalMessage) {
	_, err := c.api.Send(ctx, conversationID, transport.SendRequest{
		SenderID:  c.cfg.UserID,
		Content:   local.Content,
		ImageURL:  local.ImageURL,
		ClientTag: local.ClientTag,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("tempId", local.TempID).Int("attempt", local.Attempts).Msg("send failed")
		c.messages.MarkLocalStatus(local.TempID, domain.StatusFailed)
		c.emitTimeline(conversationID)
		c.hooks.EmitAsync(ctx, hooks.EventMessageFailed, map[string]any{
			"conversationId": conversationID,
			"tempId":         local.TempID,
			"error":          err.Error(),
		})
		c.notify("Message failed to send")
		return
	}

	c.messages.MarkLocalStatus(local.TempID, domain.StatusDelivered)
	c.emitTimeline(conversationID)

	// The authoritative copy comes from the next history fetch, which will
	// supersede the local entry by client tag.
	if err := c.Refresh(ctx); err != nil {
		c.log.Debug().Err(err).Msg("refresh after send failed")
	}
}
