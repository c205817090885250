package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Task runs a function on every tick of a Ticker until stopped.
// A stopped task can be started again.
type Task struct {
	name      string
	interval  time.Duration
	newTicker TickerFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask creates a periodic task. A nil newTicker uses NewTimeTicker.
func NewTask(name string, interval time.Duration, newTicker TickerFunc) *Task {
	if newTicker == nil {
		newTicker = NewTimeTicker
	}
	return &Task{
		name:      name,
		interval:  interval,
		newTicker: newTicker,
	}
}

// Interval returns the tick period
func (t *Task) Interval() time.Duration {
	return t.interval
}

// Start begins ticking, stopping any previous run first. The returned
// channel is closed once the loop has exited.
func (t *Task) Start(ctx context.Context, fn func(ctx context.Context)) <-chan struct{} {
	t.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	ticker := t.newTicker(t.interval)
	done := make(chan struct{})

	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	log.Info().Str("task", t.name).Dur("interval", t.interval).Msg("Starting poller")

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				log.Info().Str("task", t.name).Msg("Poller stopped")
				return
			case <-ticker.C():
				fn(runCtx)
			}
		}
	}()

	return done
}

// Stop cancels the running loop and waits for it to exit
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
