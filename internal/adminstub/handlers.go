package adminstub

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": msg})
}

// requireAdmin accepts either a valid session cookie or a valid bearer token
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Username == "" && s.opts.TokenSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		if s.opts.TokenSecret != "" {
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				bearerToken := strings.Split(authHeader, " ")
				if len(bearerToken) == 2 && bearerToken[0] == "Bearer" {
					if _, err := adminapi.ParseToken(s.opts.TokenSecret, bearerToken[1]); err == nil {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
		}

		if cookie, err := r.Cookie(sessionCookie); err == nil {
			s.mu.RLock()
			_, ok := s.sessions[cookie.Value]
			s.mu.RUnlock()
			if ok {
				next.ServeHTTP(w, r)
				return
			}
		}

		writeError(w, http.StatusUnauthorized, "Unauthorized")
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if s.opts.Username == "" || username != s.opts.Username || password != s.opts.Password {
		log.Warn().Str("username", username).Msg("Rejected admin login")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	id, err := newSessionID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	s.sessions[id] = struct{}{}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.unhealthy.Load() {
		http.Error(w, "Unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var input struct {
		OwnerName  string `json:"owner_name"`
		DailyLimit *int   `json:"daily_limit"`
		ExpiryDays *int   `json:"expiry_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if input.OwnerName == "" {
		writeError(w, http.StatusBadRequest, "Owner name is required")
		return
	}

	dailyLimit := defaultDailyLimit
	if input.DailyLimit != nil {
		dailyLimit = *input.DailyLimit
	}
	expiryDays := defaultExpiryDays
	if input.ExpiryDays != nil {
		expiryDays = *input.ExpiryDays
	}

	apiKey, err := generateKey()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate key")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := s.now().UTC()
	s.mu.Lock()
	s.keys[apiKey] = &keyEntry{
		OwnerName:  input.OwnerName,
		DailyLimit: dailyLimit,
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, 0, expiryDays),
		IsActive:   true,
	}
	s.mu.Unlock()

	log.Info().Str("owner_name", input.OwnerName).Str("api_key", adminapi.MaskKey(apiKey)).Msg("Stub issued key")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "api_key": apiKey})
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	var input struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if input.APIKey == "" {
		writeError(w, http.StatusBadRequest, "API key is required")
		return
	}

	s.mu.Lock()
	_, ok := s.keys[input.APIKey]
	delete(s.keys, input.APIKey)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "API key not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()

	s.mu.RLock()
	stats := adminapi.StatsSnapshot{
		TotalKeys: int64(len(s.keys)),
		Revenue:   s.opts.Revenue,
	}
	for _, entry := range s.keys {
		stats.TotalRequests += entry.TotalRequests
		if entry.IsActive && entry.ExpiresAt.After(now) && entry.RequestsToday > 0 {
			stats.ActiveUsers++
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, stats)
}

// handleListKeys never returns a full key
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	keys := make([]adminapi.KeySummary, 0, len(s.keys))
	for apiKey, entry := range s.keys {
		keys = append(keys, adminapi.KeySummary{
			OwnerName:     entry.OwnerName,
			MaskedKey:     adminapi.MaskKey(apiKey),
			DailyLimit:    entry.DailyLimit,
			RequestsToday: entry.RequestsToday,
			TotalRequests: entry.TotalRequests,
			CreatedAt:     entry.CreatedAt,
			ExpiresAt:     entry.ExpiresAt,
			IsActive:      entry.IsActive,
			LastUsed:      entry.LastUsed,
		})
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].CreatedAt.Before(keys[j].CreatedAt)
		}
		if keys[i].OwnerName != keys[j].OwnerName {
			return keys[i].OwnerName < keys[j].OwnerName
		}
		return keys[i].MaskedKey < keys[j].MaskedKey
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": keys})
}
