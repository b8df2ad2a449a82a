package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ExpiryWorker runs AutoExpire on a fixed interval.
type ExpiryWorker struct {
	lifecycle *Lifecycle
	interval  time.Duration
}

// NewExpiryWorker creates a sweeper; an interval of zero disables it.
func NewExpiryWorker(l *Lifecycle, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{lifecycle: l, interval: interval}
}

// Start blocks, sweeping every interval until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("expiry-worker: disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("expiry-worker: starting")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := w.lifecycle.AutoExpire(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("expiry-worker: sweep failed")
			}
		case <-ctx.Done():
			log.Info().Msg("expiry-worker: stopping (context cancelled)")
			return
		}
	}
}
