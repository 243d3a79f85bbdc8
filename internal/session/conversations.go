package session

import (
	"context"

	"github.com/petwell/pawchat/internal/domain"
	"github.com/petwell/pawchat/internal/hooks"
	"github.com/petwell/pawchat/internal/transport"
)

// Conversations lists the user's conversations for the selector. A customer
// with no conversation yet and a known doctor gets one created on the spot,
// so first contact needs no separate setup step. When the backend is
// unreachable the cached list is returned instead.
func (c *Controller) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	convs, err := c.listConversations(ctx)
	if err != nil {
		if cached := c.cachedConversations(); cached != nil {
			c.log.Warn().Err(err).Msg("listing failed, serving cached conversations")
			return cached, nil
		}
		return nil, err
	}

	if len(convs) == 0 && c.cfg.Role == string(domain.RoleCustomer) && c.cfg.DoctorID != "" {
		if _, err := c.EnsureConversation(ctx); err != nil {
			return nil, err
		}
		convs, err = c.listConversations(ctx)
		if err != nil {
			return nil, err
		}
	}

	if c.transcripts != nil {
		for _, conv := range convs {
			c.transcripts.SaveConversation(conv)
		}
	}
	return convs, nil
}

// EnsureConversation performs the idempotent get-or-create for the
// configured customer/doctor pair. Calling it twice yields the same
// conversation; the backend deduplicates on the participant pair.
func (c *Controller) EnsureConversation(ctx context.Context) (domain.Conversation, error) {
	conv, err := c.api.CreateConversation(ctx, transport.CreateConversationRequest{
		CustomerID:    c.cfg.UserID,
		DoctorID:      c.cfg.DoctorID,
		ClinicID:      c.cfg.ClinicID,
		AppointmentID: c.cfg.AppointmentID,
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	if c.transcripts != nil {
		c.transcripts.SaveConversation(conv)
	}
	return conv, nil
}

// Select makes a conversation the active one: the previous room is left,
// both message lists are cleared, the request epoch advances so in-flight
// responses for the old conversation are discarded, and a fresh history
// fetch starts immediately. The cached transcript, if any, is rendered
// first so the view is never blank while the fetch runs.
func (c *Controller) Select(ctx context.Context, conv domain.Conversation) error {
	c.mu.Lock()
	previous := c.active
	hadPrevious := c.hasActive
	c.active = conv
	c.hasActive = true
	c.epoch++
	c.lastCount = 0
	c.mu.Unlock()

	c.messages.Clear()

	if c.push != nil {
		if hadPrevious && previous.ID != conv.ID {
			c.push.LeaveConversation(previous.ID)
		}
		c.push.JoinConversation(conv.ID)
	}

	if c.transcripts != nil {
		if cached := c.transcripts.Messages(conv.ID); len(cached) > 0 {
			c.messages.ReplaceConfirmed(cached)
			c.emitTimeline(conv.ID)
		}
	}

	c.hooks.EmitAsync(ctx, hooks.EventConversationOpened, map[string]any{"conversationId": conv.ID})
	c.log.Info().Str("conversationId", conv.ID).Msg("conversation selected")

	return c.Refresh(ctx)
}

func (c *Controller) listConversations(ctx context.Context) ([]domain.Conversation, error) {
	if c.cfg.Role == string(domain.RoleDoctor) {
		return c.api.DoctorConversations(ctx, c.cfg.UserID)
	}
	return c.api.UserConversations(ctx, c.cfg.UserID)
}

func (c *Controller) cachedConversations() []domain.Conversation {
	if c.transcripts == nil {
		return nil
	}
	return c.transcripts.Conversations()
}
