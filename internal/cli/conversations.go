package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/petwell/pawchat/internal/domain"
	"github.com/spf13/cobra"
)

func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List and manage conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			convs, err := a.controller.Conversations(ctx)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Println("No conversations yet.")
				return nil
			}

			for _, conv := range convs {
				printConversation(conv, a.cfg.User.ID)
			}
			return nil
		},
	}

	cmd.AddCommand(newConversationsEnsureCmd())
	return cmd
}

func newConversationsEnsureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Get or create the conversation for the configured appointment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.User.DoctorID == "" {
				return fmt.Errorf("user.doctorId is not configured")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conv, err := a.controller.EnsureConversation(ctx)
			if err != nil {
				return err
			}
			fmt.Println(conv.ID)
			return nil
		},
	}
}

func printConversation(conv domain.Conversation, selfID string) {
	peer := "(unknown)"
	if p := conv.Peer(selfID); p != nil {
		peer = p.Name
		if peer == "" {
			peer = p.ID
		}
	}

	state := ""
	if conv.Closed {
		state = " [closed]"
	}

	last := ""
	if conv.LastMessage != nil {
		last = conv.LastMessage.Content
		if len(last) > 48 {
			last = last[:48] + "..."
		}
		last = "  " + last
	}

	fmt.Printf("%s  %s%s%s\n", conv.ID, peer, state, last)
}
