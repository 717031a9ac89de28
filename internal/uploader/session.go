package uploader

import (
	"context"
	"sync/atomic"
	"time"
)

// session is one attempt to move a single payload to storage. Owned by the
// controller from registration until the deferred cleanup in Upload; only the
// atomic fields are touched from other goroutines (progress callback,
// watchdog, Cancel).
type session struct {
	id          string
	destPath    string
	payloadSize int64
	startedAt   time.Time
	cancel      context.CancelFunc

	transferred   atomic.Int64
	lastProgress  atomic.Int64 // unix nanos of the last byte advance
	userCancelled atomic.Bool
	stalled       atomic.Bool
}

func newSession(id, destPath string, payloadSize int64, cancel context.CancelFunc) *session {
	s := &session{
		id:          id,
		destPath:    destPath,
		payloadSize: payloadSize,
		startedAt:   time.Now(),
		cancel:      cancel,
	}
	s.lastProgress.Store(s.startedAt.UnixNano())
	return s
}

// reportProgress records a byte count from the backend. Decreases are ignored:
// the transfer layer may re-read ranges after internal retries and a lower
// figure must never look like progress nor like regression.
func (s *session) reportProgress(transferred int64) {
	for {
		cur := s.transferred.Load()
		if transferred <= cur {
			return
		}
		if s.transferred.CompareAndSwap(cur, transferred) {
			s.lastProgress.Store(time.Now().UnixNano())
			return
		}
	}
}

func (s *session) markUserCancelled() {
	s.userCancelled.Store(true)
	s.cancel()
}
