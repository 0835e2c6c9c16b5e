package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// threshold pairs a warning level with the lower bound of its band. A warning
// fires when remaining time is in (floor, level].
type threshold struct {
	level time.Duration
	floor time.Duration
}

var thresholds = []threshold{
	{60 * time.Minute, 55 * time.Minute},
	{10 * time.Minute, 5 * time.Minute},
	{5 * time.Minute, 30 * time.Second},
	{30 * time.Second, 0},
}

// Alerter re-polls the license status every 30 seconds and raises each warning
// at most once per session. When the license is expired it emits one final
// notice, calls the terminator, and stops. Fired flags live only for the
// lifetime of the Alerter, so a fresh login gets a fresh set.
type Alerter struct {
	fetcher   StatusFetcher
	onWarn    func(level, remaining time.Duration)
	onExpired func()
	terminate func()
	interval  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	fired   map[time.Duration]bool
	expired bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewAlerter(fetcher StatusFetcher, onWarn func(level, remaining time.Duration), onExpired, terminate func()) *Alerter {
	return &Alerter{
		fetcher:   fetcher,
		onWarn:    onWarn,
		onExpired: onExpired,
		terminate: terminate,
		interval:  30 * time.Second,
		now:       time.Now,
		fired:     make(map[time.Duration]bool),
	}
}

// Start polls once immediately and then on every interval until the license
// expires or the context is cancelled.
func (a *Alerter) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	go a.run(runCtx)
}

func (a *Alerter) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *Alerter) run(ctx context.Context) {
	defer close(a.done)

	if !a.poll(ctx) {
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.poll(ctx) {
				return
			}
		}
	}
}

// poll evaluates the warning bands and reports whether polling should
// continue. A failed fetch skips the cycle without touching any fired flag.
func (a *Alerter) poll(ctx context.Context) bool {
	status, err := a.fetcher.Status(ctx)
	if err != nil {
		zap.L().Warn("license status poll failed", zap.Error(err))
		return true
	}

	remaining := status.ExpiryDate.Sub(a.now())

	a.mu.Lock()
	defer a.mu.Unlock()

	if remaining <= 0 || !status.IsActive {
		if !a.expired {
			a.expired = true
			a.onExpired()
			a.terminate()
		}
		return false
	}

	for _, t := range thresholds {
		if remaining <= t.level && remaining > t.floor && !a.fired[t.level] {
			a.fired[t.level] = true
			a.onWarn(t.level, remaining)
		}
	}
	return true
}
