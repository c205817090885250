// Package notify posts health transitions of the admin API to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

const (
	colorGreen  = 0x1DB954
	colorOrange = 0xF39C12
	colorRed    = 0xE74C3C
)

// DiscordWebhook sends health transition messages
type DiscordWebhook struct {
	url        string
	target     string
	httpClient *http.Client
}

// NewDiscordWebhook creates a notifier posting to webhookURL. target names
// the monitored admin API in messages.
func NewDiscordWebhook(webhookURL, target string) *DiscordWebhook {
	return &DiscordWebhook{
		url:    webhookURL,
		target: target,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HealthChanged posts one message describing the transition
func (d *DiscordWebhook) HealthChanged(ctx context.Context, from, to adminapi.HealthStatus) error {
	payload := d.buildPayload(from, to, time.Now())

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error (status %d): %s", resp.StatusCode, string(body))
	}

	log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Health transition sent to Discord")
	return nil
}

func (d *DiscordWebhook) buildPayload(from, to adminapi.HealthStatus, at time.Time) *discordgo.WebhookParams {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Admin API is %s", to),
		Color: StatusColor(to),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Target", Value: d.target, Inline: false},
			{Name: "Previous", Value: from.String(), Inline: true},
			{Name: "Current", Value: to.String(), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "stream-admin"},
		Timestamp: at.Format(time.RFC3339),
	}

	return &discordgo.WebhookParams{
		Content: fmt.Sprintf("Admin API health changed: %s -> %s", from, to),
		Embeds:  []*discordgo.MessageEmbed{embed},
	}
}

// StatusColor maps a health status to the embed color used for it
func StatusColor(status adminapi.HealthStatus) int {
	switch status {
	case adminapi.HealthOnline:
		return colorGreen
	case adminapi.HealthOffline:
		return colorOrange
	default:
		return colorRed
	}
}
