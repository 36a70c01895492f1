package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Gauge receives the number of live sessions after each sweep.
type Gauge interface {
	SetActiveSessions(n int64)
}

// Purger periodically deletes expired sessions.
type Purger struct {
	store    Store
	interval time.Duration
	gauge    Gauge
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPurger(store Store, interval time.Duration, gauge Gauge, logger zerolog.Logger) *Purger {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Purger{store: store, interval: interval, gauge: gauge, logger: logger, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep deletes expired sessions once and refreshes the gauge.
func (p *Purger) Sweep(ctx context.Context) {
	n, err := p.store.DeleteExpired(ctx, p.now())
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to purge expired sessions")
		return
	}
	if n > 0 {
		p.logger.Info().Int64("deleted", n).Msg("purged expired sessions")
	}
	if p.gauge == nil {
		return
	}
	live, err := p.store.Count(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to count sessions")
		return
	}
	p.gauge.SetActiveSessions(live)
}
