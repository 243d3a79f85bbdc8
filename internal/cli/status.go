package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/petwell/pawchat/internal/config"
	"github.com/petwell/pawchat/internal/transport"
	"github.com/petwell/pawchat/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pawchat status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("PawChat %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			fmt.Printf("API:     %s (timeout %ds)\n", cfg.API.BaseURL, cfg.API.TimeoutSeconds)
			if config.ResolveToken(&cfg, paths) != "" {
				fmt.Println("Token:   configured")
			} else {
				fmt.Println("Token:   (not set)")
			}

			rest := transport.NewREST(
				cfg.API.BaseURL,
				config.ResolveToken(&cfg, paths),
				time.Duration(cfg.API.TimeoutSeconds)*time.Second,
				transport.UploadLimits{},
				log,
			)
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			if err := rest.Ping(ctx); err != nil {
				fmt.Println("Backend: unreachable")
			} else {
				fmt.Println("Backend: reachable")
			}

			if cfg.SocketEnabled() {
				fmt.Printf("Push:    %s\n", cfg.SocketURL())
			} else {
				fmt.Println("Push:    disabled (polling only)")
			}

			user := cfg.User.ID
			if user == "" {
				user = "(not set)"
			}
			role := cfg.User.Role
			if role == "" {
				role = "customer"
			}
			fmt.Printf("User:    id=%s role=%s\n", user, role)
			if cfg.User.AppointmentID != "" || cfg.User.DoctorID != "" {
				fmt.Printf("Visit:   appointment=%s doctor=%s clinic=%s\n",
					cfg.User.AppointmentID, cfg.User.DoctorID, cfg.User.ClinicID)
			}

			fmt.Printf("Chat:    poll=%dms/%dms window=%dms attempts=%d\n",
				cfg.Chat.PollActiveMs, cfg.Chat.PollRelaxedMs,
				cfg.Chat.CorrelationWindowMs, cfg.Chat.MaxSendAttempts)

			fmt.Printf("Upload:  max=%d types=%s\n",
				cfg.Upload.MaxBytes, strings.Join(cfg.Upload.AllowedTypes, ","))

			if cfg.CacheEnabled() {
				cache := cfg.Cache.Path
				if cache == "" {
					cache = paths.TranscriptDB()
				}
				fmt.Printf("Cache:   %s\n", cache)
			} else {
				fmt.Println("Cache:   disabled")
			}

			if n := len(cfg.Hooks.MessageReceived) + len(cfg.Hooks.MessageFailed); n > 0 {
				fmt.Printf("Hooks:   %d configured\n", n)
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
