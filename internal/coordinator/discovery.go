package coordinator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sorenkv/glance/internal/core/domain"
)

// DiscoveryWatcher periodically polls for pending calls addressed to the
// authenticated identity and delivers the full current snapshot each cycle.
// Diffing against previous snapshots is the consumer's business.
type DiscoveryWatcher struct {
	signal   Signaling
	interval time.Duration
}

func NewDiscoveryWatcher(signal Signaling, interval time.Duration) *DiscoveryWatcher {
	return &DiscoveryWatcher{
		signal:   signal,
		interval: interval,
	}
}

// Watch polls until ctx is cancelled; the returned channel closes when
// polling stops, so no poll outlives its owner.
func (w *DiscoveryWatcher) Watch(ctx context.Context) <-chan []domain.IncomingCall {
	out := make(chan []domain.IncomingCall)

	go func() {
		defer close(out)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			calls, err := w.signal.Incoming(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// transient: report nothing this cycle, poll again
				log.Warn().Err(err).Msg("Polling incoming calls failed")
			} else {
				select {
				case out <- calls:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
