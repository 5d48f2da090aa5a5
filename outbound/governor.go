package outbound

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// RegularCapacity is the network's send ceiling for a normal account.
	RegularCapacity = 20
	// ElevatedCapacity applies when the bot holds moderator or broadcaster
	// status in the channel.
	ElevatedCapacity = 100
	// DefaultWindow is the network's enforcement window.
	DefaultWindow = 30 * time.Second

	// minRetryWait floors the recomputed sleep in Wait so a window boundary
	// racing the arithmetic can't yield a zero or negative sleep.
	minRetryWait = 100 * time.Millisecond
)

var (
	ErrInvalidCapacity = errors.New("capacity must be positive")
	ErrInvalidWindow   = errors.New("window must be positive")
)

// Governor admits outbound sends under the network's fixed-window ceiling.
// The bucket resets wholesale once a window elapses; the reset happens lazily
// on the next admission attempt, never from a background timer.
//
// One Governor lives per chat connection and is shared by every flow sending
// through it (channel replies and whispers alike).
type Governor struct {
	mu         sync.Mutex
	capacity   int
	window     time.Duration
	tokens     int
	lastRefill time.Time

	nowFunc func() time.Time // test hook
}

func NewGovernor(capacity int, window time.Duration) (*Governor, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	g := &Governor{
		capacity: capacity,
		window:   window,
		tokens:   capacity,
		nowFunc:  time.Now,
	}
	g.lastRefill = g.nowFunc()
	return g, nil
}

// SetElevated switches the ceiling between the regular and elevated tiers.
// Only the ceiling changes: tokens already spent in the current window stay
// spent, and the new capacity takes hold at the next refill. This mirrors the
// network's own accounting, which tracks a window already in progress.
func (g *Governor) SetElevated(elevated bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if elevated {
		g.capacity = ElevatedCapacity
	} else {
		g.capacity = RegularCapacity
	}
}

// TryAdmit spends one token if any remain in the current window.
func (g *Governor) TryAdmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refill(g.nowFunc())
	if g.tokens > 0 {
		g.tokens--
		return true
	}
	return false
}

// refill resets the bucket if the window has elapsed. Caller holds mu.
func (g *Governor) refill(now time.Time) {
	if now.Sub(g.lastRefill) >= g.window {
		g.tokens = g.capacity
		g.lastRefill = now
	}
}

// Wait blocks until a token is admitted or ctx ends. On denial it sleeps out
// the remainder of the current window, then retries; the governor itself has
// no timeout concept, so a caller that needs one sets a deadline on ctx.
func (g *Governor) Wait(ctx context.Context) error {
	for {
		if g.TryAdmit() {
			return nil
		}

		g.mu.Lock()
		wait := g.window - g.nowFunc().Sub(g.lastRefill)
		g.mu.Unlock()
		if wait < minRetryWait {
			wait = minRetryWait
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available reports the tokens left in the current window, refilling first.
func (g *Governor) Available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refill(g.nowFunc())
	return g.tokens
}
