package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akagifreeez/stream-admin/internal/config"
	"github.com/akagifreeez/stream-admin/internal/discordbot"
	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

func main() {
	// Setup zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if cfg.DiscordBotToken == "" {
		log.Fatal().Msg("DISCORD_BOT_TOKEN environment variable is required")
	}
	if cfg.DiscordClientID == "" {
		log.Fatal().Msg("DISCORD_CLIENT_ID environment variable is required")
	}

	client := adminapi.NewClient(adminapi.Options{
		BaseURL:     cfg.AdminBaseURL,
		Timeout:     cfg.RequestTimeout,
		RateLimit:   cfg.RequestRateLimit,
		TokenSecret: cfg.AdminTokenSecret,
	})
	if cfg.AdminUsername != "" {
		if err := client.Login(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("Admin login failed")
		}
	}

	// Create a new Discord session using the provided bot token.
	dg, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating Discord session")
	}

	botHandler := discordbot.NewBotHandler(client, cfg.AdminBaseURL)
	botHandler.RegisterHandlers(dg)

	// Open a websocket connection to Discord and begin listening.
	if err := dg.Open(); err != nil {
		log.Fatal().Err(err).Msg("error opening connection")
	}

	log.Info().Msg("Registering commands...")
	if _, err := botHandler.RegisterCommands(dg, cfg.DiscordClientID, cfg.DiscordGuildID); err != nil {
		log.Fatal().Err(err).Msg("error registering commands")
	}

	log.Info().Str("base_url", cfg.AdminBaseURL).Msg("Bot is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Info().Msg("Gracefully shutting down.")

	if cfg.AdminUsername != "" {
		if err := client.Logout(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Admin logout failed")
		}
	}
	dg.Close()
}
