package dashboard

import (
	"context"
	"time"

	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

// State is everything the console displays. Each poll result replaces
// its part wholesale; nothing is merged. It never holds key secrets.
type State struct {
	Stats           *adminapi.StatsSnapshot
	StatsUpdatedAt  time.Time
	Health          adminapi.HealthStatus
	HealthUpdatedAt time.Time
	Keys            []adminapi.KeySummary
	KeysUpdatedAt   time.Time
	LastError       string
}

// Renderer displays a state. Implementations live in the presentation layer.
type Renderer interface {
	Render(State)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(State)

func (f RendererFunc) Render(s State) { f(s) }

// Confirmer is the yes/no gate in front of destructive operations
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// HealthAlerter is told about health transitions
type HealthAlerter interface {
	HealthChanged(ctx context.Context, from, to adminapi.HealthStatus) error
}

func (s State) clone() State {
	if s.Stats != nil {
		stats := *s.Stats
		s.Stats = &stats
	}
	if s.Keys != nil {
		s.Keys = append([]adminapi.KeySummary(nil), s.Keys...)
	}
	return s
}
