package discordbot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akagifreeez/stream-admin/internal/notify"
	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

func newTestHandler() *BotHandler {
	h := NewBotHandler(nil, "http://admin.local")
	h.now = func() time.Time { return time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC) }
	return h
}

func TestStatsEmbed(t *testing.T) {
	embed := newTestHandler().statsEmbed(adminapi.StatsSnapshot{
		TotalKeys:     12,
		TotalRequests: 1234567,
		ActiveUsers:   3,
		Revenue:       499,
	})

	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "12", embed.Fields[0].Value)
	assert.Equal(t, "1,234,567", embed.Fields[1].Value)
	assert.Equal(t, "3", embed.Fields[2].Value)
	assert.Contains(t, embed.Fields[3].Value, "₹499")
	assert.Equal(t, "http://admin.local", embed.Description)
	assert.Equal(t, "Fetched: 2026-10-19 08:30:00 UTC", embed.Footer.Text)
}

func TestHealthEmbed(t *testing.T) {
	h := newTestHandler()

	for _, status := range []adminapi.HealthStatus{adminapi.HealthOnline, adminapi.HealthOffline, adminapi.HealthError} {
		embed := h.healthEmbed(status)
		assert.Equal(t, "Admin API is "+status.String(), embed.Title)
		assert.Equal(t, notify.StatusColor(status), embed.Color)
	}
}

func TestCommandsMatchHandlers(t *testing.T) {
	var names []string
	for _, c := range commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"stats", "health", "help"}, names)
	assert.Len(t, helpEmbed().Fields, 2)
}
