package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/petwell/pawchat/internal/domain"
	"github.com/petwell/pawchat/internal/poller"
	"github.com/petwell/pawchat/internal/session"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat session",
		Long:  "Opens a conversation and streams its timeline to the terminal. Type to send; /retry <id> re-sends a failed message, /failed lists them, /quit exits.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := &renderer{selfID: a.cfg.User.ID, selfName: a.cfg.User.Name}
			a.controller.OnTimeline = r.render
			a.controller.OnTyping = r.typing
			a.controller.Notify = r.notice

			a.controller.Start(ctx)

			conv, err := pickConversation(ctx, a, conversationID)
			if err != nil {
				return err
			}

			peer := "conversation"
			if p := conv.Peer(a.cfg.User.ID); p != nil && p.Name != "" {
				peer = p.Name
			}
			fmt.Printf("Chatting with %s. /quit to exit.\n", peer)

			if err := a.controller.Select(ctx, conv); err != nil {
				// The cached transcript already rendered; polling recovers.
				log.Warn().Err(err).Msg("initial history fetch failed")
			}

			p := poller.New(
				poller.Config{
					Active:  time.Duration(a.cfg.Chat.PollActiveMs) * time.Millisecond,
					Relaxed: time.Duration(a.cfg.Chat.PollRelaxedMs) * time.Millisecond,
				},
				a.controller.Refresh,
				a.controller.PushHealthy,
				log,
			)
			go p.Run(ctx)

			go readInput(ctx, a.controller, stop)

			<-ctx.Done()
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation id to open (default: most recent)")
	return cmd
}

// pickConversation resolves the conversation to open: by id when given,
// otherwise the first in the user's list.
func pickConversation(ctx context.Context, a *app, id string) (domain.Conversation, error) {
	convs, err := a.controller.Conversations(ctx)
	if err != nil {
		return domain.Conversation{}, err
	}
	if len(convs) == 0 {
		return domain.Conversation{}, fmt.Errorf("no conversations; run: pawchat conversations ensure")
	}

	if id == "" {
		return convs[0], nil
	}
	for _, conv := range convs {
		if conv.ID == id {
			return conv, nil
		}
	}
	return domain.Conversation{}, fmt.Errorf("conversation %q not found", id)
}

// readInput consumes stdin lines until EOF or cancellation.
func readInput(ctx context.Context, c *session.Controller, stop func()) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/q":
			stop()
			return
		case line == "/failed":
			failed := c.FailedMessages()
			if len(failed) == 0 {
				fmt.Println("(no failed messages)")
				continue
			}
			for _, m := range failed {
				fmt.Printf("%s  %s\n", m.TempID, m.Content)
			}
		case strings.HasPrefix(line, "/retry "):
			tempID := strings.TrimSpace(strings.TrimPrefix(line, "/retry "))
			if err := c.Retry(ctx, tempID); err != nil {
				fmt.Printf("retry: %v\n", err)
			}
		case strings.HasPrefix(line, "/"):
			fmt.Printf("unknown command %s\n", line)
		default:
			if _, err := c.Send(ctx, line, ""); err != nil {
				fmt.Printf("send: %v\n", err)
			}
		}
	}
	stop()
}

// renderer prints timeline growth to the terminal. Already-printed entries
// are not repainted; status changes surface through notices instead.
type renderer struct {
	mu       sync.Mutex
	shown    int
	selfID   string
	selfName string
}

func (r *renderer) render(u session.TimelineUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(u.Entries) < r.shown {
		r.shown = 0
	}
	for _, e := range u.Entries[r.shown:] {
		r.printEntry(e)
	}
	r.shown = len(u.Entries)
}

func (r *renderer) printEntry(e domain.TimelineEntry) {
	who := e.SenderID
	if e.SenderID == r.selfID {
		who = "you"
		if r.selfName != "" {
			who = r.selfName
		}
	}

	marker := ""
	switch {
	case e.Local && e.Status == domain.StatusSending:
		marker = " [sending " + e.ID + "]"
	case e.Local && e.Status == domain.StatusFailed:
		marker = " [failed " + e.ID + "]"
	}

	body := e.Content
	if e.ImageURL != "" {
		body = strings.TrimSpace(body + " <image: " + e.ImageURL + ">")
	}

	fmt.Printf("%s %s: %s%s\n", e.Timestamp.Local().Format("15:04"), who, body, marker)
}

func (r *renderer) typing(sig domain.TypingSignal) {
	if sig.IsTyping {
		fmt.Printf("(%s is typing...)\n", sig.UserID)
	}
}

func (r *renderer) notice(text string) {
	fmt.Printf("! %s\n", text)
}
