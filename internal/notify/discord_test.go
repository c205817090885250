package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

func TestHealthChanged_PostsEmbed(t *testing.T) {
	var got discordgo.WebhookParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewDiscordWebhook(srv.URL, "http://admin.local")
	require.NoError(t, hook.HealthChanged(testContext(t), adminapi.HealthOnline, adminapi.HealthOffline))

	assert.Contains(t, got.Content, "Online -> Offline")
	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "Admin API is Offline", embed.Title)
	assert.Equal(t, colorOrange, embed.Color)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "http://admin.local", embed.Fields[0].Value)
}

func TestHealthChanged_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	hook := NewDiscordWebhook(srv.URL, "http://admin.local")
	err := hook.HealthChanged(testContext(t), adminapi.HealthOffline, adminapi.HealthError)
	assert.ErrorContains(t, err, "429")
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, colorGreen, StatusColor(adminapi.HealthOnline))
	assert.Equal(t, colorOrange, StatusColor(adminapi.HealthOffline))
	assert.Equal(t, colorRed, StatusColor(adminapi.HealthError))
}
