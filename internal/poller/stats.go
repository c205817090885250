package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

// DefaultStatsInterval matches the dashboard's stat widget refresh
const DefaultStatsInterval = 30 * time.Second

// StatsFetcher is the slice of the admin client the stats poller needs
type StatsFetcher interface {
	FetchStats(ctx context.Context) (*adminapi.StatsSnapshot, error)
}

// StatsPoller emits one snapshot per successful tick
type StatsPoller struct {
	fetcher StatsFetcher
	task    *Task
	skipped atomic.Uint64
}

// NewStatsPoller creates a stats poller
func NewStatsPoller(fetcher StatsFetcher, interval time.Duration, newTicker TickerFunc) *StatsPoller {
	return &StatsPoller{
		fetcher: fetcher,
		task:    NewTask("stats", interval, newTicker),
	}
}

// Start polls until ctx is cancelled or Stop is called. A failed tick is
// logged and skipped; the next attempt waits for the next tick. The
// channel is closed when polling ends.
func (p *StatsPoller) Start(ctx context.Context) <-chan adminapi.StatsSnapshot {
	out := make(chan adminapi.StatsSnapshot)

	done := p.task.Start(ctx, func(ctx context.Context) {
		snapshot, err := p.fetcher.FetchStats(ctx)
		if err != nil {
			p.skipped.Add(1)
			log.Warn().Err(err).Msg("Stats poll failed, skipping tick")
			return
		}

		select {
		case out <- *snapshot:
		case <-ctx.Done():
		}
	})

	go func() {
		<-done
		close(out)
	}()

	return out
}

// Stop ends polling
func (p *StatsPoller) Stop() {
	p.task.Stop()
}

// Skipped returns the number of failed ticks since creation
func (p *StatsPoller) Skipped() uint64 {
	return p.skipped.Load()
}
