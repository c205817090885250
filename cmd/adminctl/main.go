package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akagifreeez/stream-admin/internal/config"
	"github.com/akagifreeez/stream-admin/internal/dashboard"
	"github.com/akagifreeez/stream-admin/internal/events"
	"github.com/akagifreeez/stream-admin/internal/notify"
	"github.com/akagifreeez/stream-admin/internal/ratelimit"
	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

// app carries what every subcommand needs once the root has set up
type app struct {
	cfg    *config.Config
	client *adminapi.Client
	bus    *events.Bus
	window *ratelimit.Window
}

func main() {
	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	a := &app{}
	err := newRootCmd(a).Execute()
	// also after failed commands, which skip PersistentPostRun
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "Manage API keys and watch the streaming API admin stats",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("base-url", "", "Admin API base URL (overrides ADMIN_BASE_URL)")
	root.PersistentFlags().Duration("timeout", 0, "Per-request timeout, 0 for none (overrides REQUEST_TIMEOUT)")

	root.AddCommand(
		newCreateCmd(a),
		newDeleteCmd(a),
		newStatsCmd(a),
		newKeysCmd(a),
		newHealthCmd(a),
		newWatchCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("base-url") {
		cfg.AdminBaseURL, _ = cmd.Flags().GetString("base-url")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.RequestTimeout, _ = cmd.Flags().GetDuration("timeout")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	a.cfg = cfg
	opts := adminapi.Options{
		BaseURL:     cfg.AdminBaseURL,
		Timeout:     cfg.RequestTimeout,
		RateLimit:   cfg.RequestRateLimit,
		TokenSecret: cfg.AdminTokenSecret,
	}

	if cfg.RedisURL != "" {
		bus, err := events.NewBus(cfg.RedisURL, cfg.KeyEventsChannel)
		if err != nil {
			log.Warn().Err(err).Msg("Key events disabled")
		} else {
			a.bus = bus
		}

		if cfg.SharedRateLimit > 0 {
			window, err := ratelimit.NewWindow(cfg.RedisURL, cfg.SharedRateLimit, ratelimit.DefaultKey)
			if err != nil {
				log.Warn().Err(err).Msg("Shared rate limit disabled")
			} else {
				a.window = window
				opts.Limiter = window
			}
		}
	}

	a.client = adminapi.NewClient(opts)

	if cfg.AdminUsername != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := a.client.Login(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return err
		}
	}

	return nil
}

// close releases the Redis clients. It is safe to call more than once.
func (a *app) close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close key event bus")
		}
		a.bus = nil
	}
	if a.window != nil {
		if err := a.window.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close rate limiter")
		}
		a.window = nil
	}
}

// dashboard wires the optional collaborators from configuration
func (a *app) dashboard(renderer dashboard.Renderer, refreshOnStart bool) *dashboard.Dashboard {
	opts := dashboard.Options{
		StatsInterval:  a.cfg.StatsPollInterval,
		HealthInterval: a.cfg.HealthPollInterval,
		RefreshOnStart: refreshOnStart,
		ListKeys:       a.cfg.ListKeys,
		Renderer:       renderer,
		Origin:         a.cfg.InstanceID,
	}
	if a.bus != nil {
		opts.Publisher = a.bus
		opts.Subscriber = a.bus
	}
	if a.cfg.DiscordWebhookURL != "" {
		opts.Alerter = notify.NewDiscordWebhook(a.cfg.DiscordWebhookURL, a.cfg.AdminBaseURL)
	}
	return dashboard.New(a.client, opts)
}
