package adminapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// KeyRecord is the transient view of a freshly created API key.
// APIKey is only ever populated by CreateKey and must not be stored.
type KeyRecord struct {
	OwnerName  string `json:"owner_name"`
	DailyLimit int    `json:"daily_limit"`
	ExpiryDays int    `json:"expiry_days"`
	APIKey     string `json:"api_key"`
}

// String masks the secret so a record never leaks through %v.
func (k KeyRecord) String() string {
	return fmt.Sprintf("KeyRecord{owner=%q daily_limit=%d expiry_days=%d api_key=%s}",
		k.OwnerName, k.DailyLimit, k.ExpiryDays, MaskKey(k.APIKey))
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (k KeyRecord) MarshalZerologObject(e *zerolog.Event) {
	e.Str("owner_name", k.OwnerName).
		Int("daily_limit", k.DailyLimit).
		Int("expiry_days", k.ExpiryDays).
		Str("api_key", MaskKey(k.APIKey))
}

// MaskKey hides all but the last four characters of a key
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// KeySummary is one row of the admin key list. The key itself only ever
// arrives masked; ListKeys re-masks anything that does not look masked.
type KeySummary struct {
	OwnerName     string     `json:"owner_name"`
	MaskedKey     string     `json:"api_key"`
	DailyLimit    int        `json:"daily_limit"`
	RequestsToday int64      `json:"requests_today"`
	TotalRequests int64      `json:"total_requests"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	IsActive      bool       `json:"is_active"`
	LastUsed      *time.Time `json:"last_used"`
}

// Expired reports whether the key is past its expiry at now
func (k KeySummary) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && !k.ExpiresAt.After(now)
}

func isMasked(key string) bool {
	return key == "" || strings.HasPrefix(key, "****")
}

// StatsSnapshot is one full set of aggregate metrics from /admin/stats
type StatsSnapshot struct {
	TotalKeys     int64   `json:"total_keys"`
	TotalRequests int64   `json:"total_requests"`
	ActiveUsers   int64   `json:"active_users"`
	Revenue       float64 `json:"revenue"`
}

// HealthStatus is derived from the transport outcome of a /admin/health call
type HealthStatus int

const (
	HealthUnknown HealthStatus = iota
	HealthOnline
	HealthOffline
	HealthError
)

func (h HealthStatus) String() string {
	switch h {
	case HealthOnline:
		return "Online"
	case HealthOffline:
		return "Offline"
	case HealthError:
		return "Error"
	default:
		return "Unknown"
	}
}

type createKeyRequest struct {
	OwnerName  string `json:"owner_name"`
	DailyLimit int    `json:"daily_limit"`
	ExpiryDays int    `json:"expiry_days"`
}

type deleteKeyRequest struct {
	APIKey string `json:"api_key"`
}

// mutationResponse covers both create_key and delete_key replies
type mutationResponse struct {
	Success bool   `json:"success"`
	APIKey  string `json:"api_key,omitempty"`
	Error   string `json:"error,omitempty"`
}

type keyListResponse struct {
	Keys  []KeySummary `json:"keys"`
	Error string       `json:"error,omitempty"`
}
