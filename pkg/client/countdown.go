package client

import (
	"context"
	"sync"
	"time"
)

// Remaining is the countdown breakdown a terminal renders.
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	Expired bool
}

// Countdown fetches the license status once, caches the expiry timestamp, and
// from then on computes the remaining time locally on a one second tick. It is
// display only: no call is made back to the server after the initial fetch and
// reaching zero does not end the session.
type Countdown struct {
	fetcher  StatusFetcher
	onTick   func(Remaining)
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	expiry time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCountdown(fetcher StatusFetcher, onTick func(Remaining)) *Countdown {
	return &Countdown{
		fetcher:  fetcher,
		onTick:   onTick,
		interval: time.Second,
		now:      time.Now,
	}
}

// Start fetches the status and begins ticking. A failed fetch returns the
// error without starting the ticker so the caller can keep its last rendered
// value and retry.
func (c *Countdown) Start(ctx context.Context) error {
	status, err := c.fetcher.Status(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.expiry = status.ExpiryDate
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.onTick(c.remaining())
	go c.run(runCtx)
	return nil
}

func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Countdown) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.onTick(c.remaining())
		}
	}
}

func (c *Countdown) remaining() Remaining {
	c.mu.Lock()
	expiry := c.expiry
	c.mu.Unlock()
	return breakdown(expiry.Sub(c.now()))
}

// breakdown splits a duration into calendar-free units, clamped at zero.
func breakdown(d time.Duration) Remaining {
	if d <= 0 {
		return Remaining{Expired: true}
	}
	total := int(d / time.Second)
	return Remaining{
		Days:    total / 86400,
		Hours:   (total % 86400) / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}
