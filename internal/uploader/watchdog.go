package uploader

import (
	"context"
	"time"
)

type watchdogConfig struct {
	// Interval between byte-count samples.
	Interval time.Duration
	// Threshold is how long reported bytes may sit still before the session
	// is declared stalled.
	Threshold time.Duration
	// StartupGrace is the window after session start during which the
	// threshold is doubled, so slow connection negotiation is not mistaken
	// for a stall.
	StartupGrace time.Duration
}

// watch supervises one session until ctx is done or a stall fires. On stall
// it sets the session's stalled flag before cancelling, so the controller can
// tell a watchdog abort apart from a user cancellation.
func watch(ctx context.Context, s *session, cfg watchdogConfig) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		last := time.Unix(0, s.lastProgress.Load())
		threshold := cfg.Threshold
		if time.Since(s.startedAt) < cfg.StartupGrace {
			threshold *= 2
		}
		if time.Since(last) > threshold {
			s.stalled.Store(true)
			s.cancel()
			return
		}
	}
}
