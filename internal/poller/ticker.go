package poller

import (
	"sync"
	"time"
)

// Ticker delivers poll ticks. time.Ticker satisfies it through NewTimeTicker;
// tests use ManualTicker to drive ticks synchronously.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker wraps time.NewTicker
func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// ManualTicker fires only when Tick is called
type ManualTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

// NewManualTicker creates a ManualTicker
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Stopped reports whether the consuming loop released the ticker
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Tick blocks until the poll loop has taken the tick
func (m *ManualTicker) Tick() {
	m.ch <- time.Now()
}

// Func returns a TickerFunc that always hands out m
func (m *ManualTicker) Func() TickerFunc {
	return func(time.Duration) Ticker { return m }
}
