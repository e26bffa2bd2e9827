package httpx

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out requests against the site. The first Wait returns
// immediately. After Done, the next Wait blocks until a full interval has
// passed since Done, so slow fetches never eat into the delay.
type Pacer struct {
	every rate.Limit

	mu  sync.Mutex
	lim *rate.Limiter
}

// NewPacer returns a Pacer that never blocks when interval <= 0.
func NewPacer(interval time.Duration) *Pacer {
	every := rate.Inf
	if interval > 0 {
		every = rate.Every(interval)
	}
	return &Pacer{every: every, lim: rate.NewLimiter(every, 1)}
}

func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	lim := p.lim
	p.mu.Unlock()
	return lim.Wait(ctx)
}

// Done marks the end of a request. The interval restarts from now.
func (p *Pacer) Done() {
	if p.every == rate.Inf {
		return
	}
	lim := rate.NewLimiter(p.every, 1)
	lim.Allow()

	p.mu.Lock()
	p.lim = lim
	p.mu.Unlock()
}
