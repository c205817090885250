package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akagifreeez/stream-admin/internal/events"
	"github.com/akagifreeez/stream-admin/internal/poller"
	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

// DeletePrompt is shown by the confirmation gate before a key is deleted
const DeletePrompt = "Are you sure you want to delete this API key? This action cannot be undone."

// ErrNotConfirmed is returned when the confirmation gate said no
var ErrNotConfirmed = errors.New("deletion not confirmed")

// AdminClient is the admin API surface the dashboard drives
type AdminClient interface {
	CreateKey(ctx context.Context, ownerName string, dailyLimit, expiryDays int) (*adminapi.KeyRecord, error)
	DeleteKey(ctx context.Context, apiKey string) error
	FetchStats(ctx context.Context) (*adminapi.StatsSnapshot, error)
	ListKeys(ctx context.Context) ([]adminapi.KeySummary, error)
	CheckHealth(ctx context.Context) adminapi.HealthStatus
}

// Options wires the dashboard's collaborators. Only the intervals are required.
type Options struct {
	StatsInterval  time.Duration
	HealthInterval time.Duration
	NewTicker      poller.TickerFunc
	RefreshOnStart bool
	// ListKeys also fetches the masked key list on every refresh
	ListKeys bool

	Renderer   Renderer
	Publisher  events.Publisher
	Subscriber events.Subscriber
	Alerter    HealthAlerter
	Origin     string
}

// Dashboard owns the console state and keeps it fresh
type Dashboard struct {
	client AdminClient
	opts   Options

	stats  *poller.StatsPoller
	health *poller.HealthPoller

	mu    sync.Mutex
	state State
	now   func() time.Time

	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates a dashboard over client
func New(client AdminClient, opts Options) *Dashboard {
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = poller.DefaultStatsInterval
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = poller.DefaultHealthInterval
	}

	return &Dashboard{
		client:  client,
		opts:    opts,
		stats:   poller.NewStatsPoller(client, opts.StatsInterval, opts.NewTicker),
		health:  poller.NewHealthPoller(client, opts.HealthInterval, opts.NewTicker),
		now:     time.Now,
		stopped: make(chan struct{}),
	}
}

// State returns a copy of the current state
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.clone()
}

// SkippedStatsTicks returns how many stats ticks failed and were skipped
func (d *Dashboard) SkippedStatsTicks() uint64 {
	return d.stats.Skipped()
}

func (d *Dashboard) update(fn func(s *State)) {
	d.mu.Lock()
	fn(&d.state)
	snapshot := d.state.clone()
	d.mu.Unlock()

	if d.opts.Renderer != nil {
		d.opts.Renderer.Render(snapshot)
	}
}

// ApplyStats replaces the displayed stats with snapshot
func (d *Dashboard) ApplyStats(snapshot adminapi.StatsSnapshot) {
	d.update(func(s *State) {
		s.Stats = &snapshot
		s.StatsUpdatedAt = d.now()
	})
}

// ApplyKeys replaces the displayed key list
func (d *Dashboard) ApplyKeys(keys []adminapi.KeySummary) {
	if keys == nil {
		keys = []adminapi.KeySummary{}
	}
	d.update(func(s *State) {
		s.Keys = keys
		s.KeysUpdatedAt = d.now()
	})
}

// ApplyHealth replaces the displayed health and reports transitions
func (d *Dashboard) ApplyHealth(ctx context.Context, status adminapi.HealthStatus) {
	var previous adminapi.HealthStatus
	d.update(func(s *State) {
		previous = s.Health
		s.Health = status
		s.HealthUpdatedAt = d.now()
	})

	if previous == adminapi.HealthUnknown || previous == status {
		return
	}

	log.Info().
		Str("from", previous.String()).
		Str("to", status.String()).
		Msg("Admin API health changed")

	if d.opts.Alerter != nil {
		if err := d.opts.Alerter.HealthChanged(ctx, previous, status); err != nil {
			log.Error().Err(err).Msg("Failed to send health alert")
		}
	}
}

func (d *Dashboard) setError(err error) {
	msg := adminapi.Message(err)
	d.update(func(s *State) {
		s.LastError = msg
	})
}

// Refresh performs one out-of-band stats fetch, plus the key list when
// ListKeys is set
func (d *Dashboard) Refresh(ctx context.Context) error {
	snapshot, err := d.client.FetchStats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Stats refresh failed")
		d.setError(err)
		return err
	}
	d.ApplyStats(*snapshot)

	if !d.opts.ListKeys {
		return nil
	}

	keys, err := d.client.ListKeys(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Key list refresh failed")
		d.setError(err)
		return err
	}
	d.ApplyKeys(keys)
	return nil
}

// CreateKey issues a key and reloads. The record is returned for one-time
// display and is not kept by the dashboard.
func (d *Dashboard) CreateKey(ctx context.Context, ownerName string, dailyLimit, expiryDays int) (*adminapi.KeyRecord, error) {
	record, err := d.client.CreateKey(ctx, ownerName, dailyLimit, expiryDays)
	if err != nil {
		d.setError(err)
		return nil, err
	}

	d.publish(ctx, events.KeyEvent{
		Type:        events.KeyCreated,
		OwnerName:   record.OwnerName,
		Fingerprint: events.Fingerprint(record.APIKey),
	})
	d.reload(ctx)

	return record, nil
}

// DeleteKey removes a key once confirm agrees, then reloads
func (d *Dashboard) DeleteKey(ctx context.Context, apiKey string, confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		return ErrNotConfirmed
	}

	if err := d.client.DeleteKey(ctx, apiKey); err != nil {
		d.setError(err)
		return err
	}

	d.publish(ctx, events.KeyEvent{
		Type:        events.KeyDeleted,
		Fingerprint: events.Fingerprint(apiKey),
	})
	d.reload(ctx)

	return nil
}

func (d *Dashboard) publish(ctx context.Context, ev events.KeyEvent) {
	if d.opts.Publisher == nil {
		return
	}
	ev.Origin = d.opts.Origin
	ev.At = d.now().UTC()
	if err := d.opts.Publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Msg("Failed to publish key event")
	}
}

// reload clears the last error and refetches stats and keys
func (d *Dashboard) reload(ctx context.Context) {
	d.update(func(s *State) {
		s.LastError = ""
	})
	d.Refresh(ctx)
}

// Run keeps the state fresh until ctx is cancelled or Stop is called.
// Stop may come before Run or while the initial refresh is in flight;
// either way Run returns.
func (d *Dashboard) Run(ctx context.Context) error {
	select {
	case <-d.stopped:
		return nil
	default:
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.stopped:
			cancel()
		case <-runCtx.Done():
		}
	}()

	if d.opts.RefreshOnStart {
		d.Refresh(runCtx)
		if runCtx.Err() == nil {
			d.ApplyHealth(runCtx, d.client.CheckHealth(runCtx))
		}
	}

	statsCh := d.stats.Start(runCtx)
	healthCh := d.health.Start(runCtx)

	var keyEvents <-chan events.KeyEvent
	if d.opts.Subscriber != nil {
		keyEvents = d.opts.Subscriber.Subscribe(runCtx)
	}

	for statsCh != nil || healthCh != nil {
		select {
		case snapshot, ok := <-statsCh:
			if !ok {
				statsCh = nil
				continue
			}
			d.ApplyStats(snapshot)
		case status, ok := <-healthCh:
			if !ok {
				healthCh = nil
				continue
			}
			d.ApplyHealth(runCtx, status)
		case ev, ok := <-keyEvents:
			if !ok {
				keyEvents = nil
				continue
			}
			if ev.Origin == d.opts.Origin {
				continue
			}
			log.Info().
				Str("type", string(ev.Type)).
				Str("fingerprint", ev.Fingerprint).
				Str("origin", ev.Origin).
				Msg("Key changed elsewhere, reloading")
			d.Refresh(runCtx)
		}
	}

	return ctx.Err()
}

// Stop ends both pollers; Run returns once they have exited. A stopped
// dashboard does not run again.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() { close(d.stopped) })
	d.stats.Stop()
	d.health.Stop()
}
