package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		conversationID string
		imagePath      string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a single message and exit",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if message == "" && imagePath == "" {
				return fmt.Errorf("nothing to send: provide a message, --image, or both")
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var imageURL string
			if imagePath != "" {
				imageURL, err = uploadImage(ctx, a, imagePath)
				if err != nil {
					return err
				}
			}

			conv, err := pickConversation(ctx, a, conversationID)
			if err != nil {
				return err
			}
			if err := a.controller.Select(ctx, conv); err != nil {
				log.Warn().Err(err).Msg("history fetch failed before send")
			}

			tempID, err := a.controller.Send(ctx, message, imageURL)
			if err != nil {
				return err
			}

			for _, m := range a.controller.FailedMessages() {
				if m.TempID == tempID {
					return fmt.Errorf("message failed to send")
				}
			}

			fmt.Println("sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation id (default: most recent)")
	cmd.Flags().StringVar(&imagePath, "image", "", "attach an image file")
	return cmd
}

// uploadImage pushes a local file to the backend and returns the stored URL.
// The content type comes from the file extension; size and type limits are
// enforced before any bytes leave the machine.
func uploadImage(ctx context.Context, a *app, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return a.rest.UploadImage(ctx, filepath.Base(path), contentType, info.Size(), f)
}
