// Package adminstub is an in-memory implementation of the admin HTTP API.
// It backs the client tests and the local development server.
package adminstub

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	sessionCookie = "admin_session"
	keyAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyLength     = 32

	defaultDailyLimit = 1000
	defaultExpiryDays = 30
)

// Options configures the stub. With neither credentials nor a token
// secret set, admin routes are open.
type Options struct {
	Username    string
	Password    string
	TokenSecret string
	Revenue     float64
}

type keyEntry struct {
	OwnerName     string
	DailyLimit    int
	RequestsToday int64
	TotalRequests int64
	CreatedAt     time.Time
	ExpiresAt     time.Time
	IsActive      bool
	LastUsed      *time.Time
}

// Server holds the stub's keys and sessions
type Server struct {
	opts Options

	mu       sync.RWMutex
	keys     map[string]*keyEntry
	sessions map[string]struct{}

	unhealthy atomic.Bool
	hits      atomic.Int64
	now       func() time.Time
}

// New creates an empty stub server
func New(opts Options) *Server {
	return &Server{
		opts:     opts,
		keys:     make(map[string]*keyEntry),
		sessions: make(map[string]struct{}),
		now:      time.Now,
	}
}

// Router builds the chi router serving the admin endpoints
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.countHits)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Post("/create_key", s.handleCreateKey)
			r.Post("/delete_key", s.handleDeleteKey)
			r.Get("/stats", s.handleStats)
			r.Get("/keys", s.handleListKeys)
		})
	})

	return r
}

// SetHealthy toggles the /admin/health answer between 200 and 503
func (s *Server) SetHealthy(healthy bool) {
	s.unhealthy.Store(!healthy)
}

// Hits returns the number of requests received so far
func (s *Server) Hits() int64 {
	return s.hits.Load()
}

// KeyCount returns the number of stored keys
func (s *Server) KeyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// HasKey reports whether apiKey is stored
func (s *Server) HasKey(apiKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[apiKey]
	return ok
}

// RecordUsage counts one streaming request against apiKey
func (s *Server) RecordUsage(apiKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.keys[apiKey]
	if !ok {
		return false
	}
	entry.RequestsToday++
	entry.TotalRequests++
	used := s.now().UTC()
	entry.LastUsed = &used
	return true
}

// ResetDailyCounters zeroes every key's requests_today counter
func (s *Server) ResetDailyCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.keys {
		entry.RequestsToday = 0
	}
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		next.ServeHTTP(w, r)
	})
}

// generateKey returns a random alphanumeric key
func generateKey() (string, error) {
	max := big.NewInt(int64(len(keyAlphabet)))
	buf := make([]byte, keyLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = keyAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
