package discordbot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/akagifreeez/stream-admin/internal/notify"
	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

const requestTimeout = 10 * time.Second

// StatsSource is the read-only part of the admin client the bot needs
type StatsSource interface {
	FetchStats(ctx context.Context) (*adminapi.StatsSnapshot, error)
	CheckHealth(ctx context.Context) adminapi.HealthStatus
}

type BotHandler struct {
	source StatsSource
	target string
	now    func() time.Time
}

// NewBotHandler answers slash commands with data from source. target names
// the admin API in replies.
func NewBotHandler(source StatsSource, target string) *BotHandler {
	return &BotHandler{
		source: source,
		target: target,
		now:    time.Now,
	}
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "stats",
		Description: "Show API key and usage totals",
	},
	{
		Name:        "health",
		Description: "Check whether the admin API is reachable",
	},
	{
		Name:        "help",
		Description: "Display help information about the admin bot",
	},
}

func (h *BotHandler) RegisterHandlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		switch i.ApplicationCommandData().Name {
		case "stats":
			h.handleStats(s, i)
		case "health":
			h.handleHealth(s, i)
		case "help":
			h.handleHelp(s, i)
		}
	})
}

func (h *BotHandler) RegisterCommands(s *discordgo.Session, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	registeredCommands := make([]*discordgo.ApplicationCommand, len(commands))
	var err error
	for idx, cmd := range commands {
		registeredCommands[idx], err = s.ApplicationCommandCreate(appID, guildID, cmd)
		if err != nil {
			return nil, fmt.Errorf("cannot create '%v' command: %w", cmd.Name, err)
		}
	}
	return registeredCommands, nil
}

func (h *BotHandler) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Acknowledge the interaction immediately to avoid timeout
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := h.source.FetchStats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Bot stats request failed")
		content := fmt.Sprintf("Error fetching stats: %s", adminapi.Message(err))
		s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
		return
	}

	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{h.statsEmbed(*stats)},
	})
}

func (h *BotHandler) handleHealth(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	status := h.source.CheckHealth(ctx)
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{h.healthEmbed(status)},
	})
}

func (h *BotHandler) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{helpEmbed()},
		},
	})
}

func (h *BotHandler) statsEmbed(st adminapi.StatsSnapshot) *discordgo.MessageEmbed {
	p := message.NewPrinter(language.English)
	return &discordgo.MessageEmbed{
		Title:       "Admin Stats",
		Description: h.target,
		Color:       0x0099ff,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Keys", Value: p.Sprintf("%d", st.TotalKeys), Inline: true},
			{Name: "Total Requests", Value: p.Sprintf("%d", st.TotalRequests), Inline: true},
			{Name: "Active Users", Value: p.Sprintf("%d", st.ActiveUsers), Inline: true},
			{Name: "Revenue", Value: p.Sprintf("₹%.2f", st.Revenue), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Fetched: %s", h.now().UTC().Format("2006-01-02 15:04:05 UTC")),
		},
	}
}

func (h *BotHandler) healthEmbed(status adminapi.HealthStatus) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Admin API is %s", status),
		Description: h.target,
		Color:       notify.StatusColor(status),
	}
}

func helpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Admin Bot Help",
		Description: "Read-only view of the streaming API admin surface. Keys are managed with adminctl.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "/stats", Value: "Key count, request totals, active users and revenue."},
			{Name: "/health", Value: "Probe the admin health endpoint once."},
		},
	}
}
