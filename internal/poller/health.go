package poller

import (
	"context"
	"time"

	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

// DefaultHealthInterval matches the dashboard's status indicator refresh
const DefaultHealthInterval = 5 * time.Second

// HealthChecker is the slice of the admin client the health poller needs
type HealthChecker interface {
	CheckHealth(ctx context.Context) adminapi.HealthStatus
}

// HealthPoller emits one status per tick
type HealthPoller struct {
	checker HealthChecker
	task    *Task
}

// NewHealthPoller creates a health poller
func NewHealthPoller(checker HealthChecker, interval time.Duration, newTicker TickerFunc) *HealthPoller {
	return &HealthPoller{
		checker: checker,
		task:    NewTask("health", interval, newTicker),
	}
}

// Start polls until ctx is cancelled or Stop is called
func (p *HealthPoller) Start(ctx context.Context) <-chan adminapi.HealthStatus {
	out := make(chan adminapi.HealthStatus)

	done := p.task.Start(ctx, func(ctx context.Context) {
		status := p.checker.CheckHealth(ctx)
		select {
		case out <- status:
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
func (p *HealthPoller) Stop() {
	p.task.Stop()
}
