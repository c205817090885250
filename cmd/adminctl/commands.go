package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akagifreeez/stream-admin/internal/dashboard"
	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		owner      string
		dailyLimit int
		expiryDays int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long: `Create a new API key for an owner. The key is printed once and
cannot be retrieved again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.dashboard(nil, false)
			record, err := d.CreateKey(cmd.Context(), owner, dailyLimit, expiryDays)
			if err != nil {
				return fmt.Errorf("error creating API key: %s", adminapi.Message(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"API Key created successfully!\n\nAPI Key: %s\n\nPlease copy this key now, it won't be shown again.\n",
				record.APIKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner name")
	cmd.Flags().IntVar(&dailyLimit, "daily-limit", 1000, "Daily request limit")
	cmd.Flags().IntVar(&expiryDays, "expiry-days", 30, "Days until the key expires")

	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <api-key>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			if yes {
				confirm = dashboard.ConfirmFunc(func(string) bool { return true })
			}

			d := a.dashboard(nil, false)
			err := d.DeleteKey(cmd.Context(), args[0], confirm)
			if errors.Is(err, dashboard.ErrNotConfirmed) {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled.")
				return nil
			}
			if errors.Is(err, adminapi.ErrNotFound) {
				return fmt.Errorf("API key not found")
			}
			if err != nil {
				return fmt.Errorf("error deleting API key: %s", adminapi.Message(err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "API key deleted successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

// promptConfirmer asks on out and accepts "yes" or "y" from in
func promptConfirmer(in io.Reader, out io.Writer) dashboard.Confirmer {
	return dashboard.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s (yes/no): ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "yes", "y":
			return true
		default:
			return false
		}
	})
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the current admin stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.FetchStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("error fetching stats: %s", adminapi.Message(err))
			}
			writeStats(cmd.OutOrStdout(), *stats)
			return nil
		},
	}
}

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List API keys with their secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.client.ListKeys(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing keys: %s", adminapi.Message(err))
			}
			return writeKeys(cmd.OutOrStdout(), keys, time.Now())
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the admin API health once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := a.client.CheckHealth(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), status)
			if status != adminapi.HealthOnline {
				return fmt.Errorf("admin API is %s", status)
			}
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var listKeys bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep stats and health fresh until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// SIGINT/SIGTERM cancel ctx, including during the first refresh
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cmd.Flags().Changed("keys") {
				a.cfg.ListKeys = listKeys
			}
			d := a.dashboard(newLineRenderer(cmd.OutOrStdout()), true)
			defer d.Stop()

			log.Info().
				Str("base_url", a.cfg.AdminBaseURL).
				Dur("stats_interval", a.cfg.StatsPollInterval).
				Dur("health_interval", a.cfg.HealthPollInterval).
				Msg("Watching admin API")

			err := d.Run(ctx)
			if errors.Is(err, context.Canceled) {
				log.Info().Msg("Shutdown signal received, pollers stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&listKeys, "keys", false, "Also refresh the masked key list (overrides ADMIN_LIST_KEYS)")

	return cmd
}
