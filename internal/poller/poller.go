// Package poller re-fetches message history on a cadence so delivery stays
// eventually consistent even when the push layer is down or missing events.
package poller

import (
	"context"
	"time"

	"github.com/petwell/pawchat/internal/logging"
	"golang.org/x/time/rate"
)

// Config tunes the polling cadence. Active is used while push delivery is
// unhealthy, Relaxed while a healthy push connection is confirmed.
type Config struct {
	Active  time.Duration
	Relaxed time.Duration
}

// DefaultConfig matches the documented cadences: 1s for an open
// conversation view, 3s once push is known healthy.
func DefaultConfig() Config {
	return Config{Active: time.Second, Relaxed: 3 * time.Second}
}

// Poller drives a fetch function on an adaptive interval. Fetch errors are
// swallowed here; the view simply shows stale data until the next
// successful tick.
type Poller struct {
	cfg     Config
	fetch   func(ctx context.Context) error
	healthy func() bool
	limiter *rate.Limiter
	log     *logging.Logger
}

// New creates a poller. healthy reports whether push delivery is currently
// trusted; a nil healthy func means never, keeping the active cadence.
func New(cfg Config, fetch func(ctx context.Context) error, healthy func() bool, log *logging.Logger) *Poller {
	if cfg.Active <= 0 {
		cfg.Active = time.Second
	}
	if cfg.Relaxed < cfg.Active {
		cfg.Relaxed = cfg.Active
	}
	return &Poller{
		cfg:     cfg,
		fetch:   fetch,
		healthy: healthy,
		limiter: rate.NewLimiter(rate.Every(cfg.Active), 1),
		log:     log.Sub("poller"),
	}
}

// Run fires one immediate fetch, then repeats until the context is
// canceled. The cadence is re-evaluated every tick so the poller relaxes
// while push is healthy and tightens again when it degrades.
func (p *Poller) Run(ctx context.Context) {
	p.log.Debug().
		Dur("active", p.cfg.Active).
		Dur("relaxed", p.cfg.Relaxed).
		Msg("polling started")

	for {
		p.limiter.SetLimit(rate.Every(p.interval()))
		if err := p.limiter.Wait(ctx); err != nil {
			p.log.Debug().Msg("polling stopped")
			return
		}
		if err := p.fetch(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Debug().Err(err).Msg("fetch failed, retrying next tick")
		}
	}
}

func (p *Poller) interval() time.Duration {
	if p.healthy != nil && p.healthy() {
		return p.cfg.Relaxed
	}
	return p.cfg.Active
}
