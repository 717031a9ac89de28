package uploader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipstream/internal/netquality"
	"clipstream/internal/storage"
	clipstream_errors "clipstream/pkg/errors"
	"clipstream/pkg/logger"
)

// Config carries the controller's tuning. Timeouts feed the adaptive timeout
// calculator; the remaining fields tune the stall watchdog.
type Config struct {
	Timeouts           netquality.TimeoutConfig
	WatchdogInterval   time.Duration
	StallThreshold     time.Duration
	SlowStallThreshold time.Duration
	StartupGrace       time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeouts:           netquality.DefaultTimeoutConfig(),
		WatchdogInterval:   2 * time.Second,
		StallThreshold:     30 * time.Second,
		SlowStallThreshold: 60 * time.Second,
		StartupGrace:       25 * time.Second,
	}
}

// Options tunes a single Upload call.
type Options struct {
	// SessionID registers the transfer under a caller-chosen id so the
	// caller can cancel it later. A fresh id is assigned when empty.
	SessionID string
	// ContentType is forwarded to the blob store.
	ContentType string
	// TimeoutHint raises the computed timeout (still clamped to the ceiling).
	TimeoutHint time.Duration
	// OnProgress receives cumulative transferred bytes.
	OnProgress storage.ProgressFunc
}

// Result is the controller's only way of reporting an upload outcome.
// Expected failures never escape as panics; Cancelled marks an explicit
// user or caller action and is not an error.
type Result struct {
	OK        bool
	URL       string
	Cancelled bool
	Err       error
	Message   string
}

// Controller orchestrates one upload end to end: pre-flight connectivity
// check, adaptive timeout, watchdog supervision, error classification, and
// cancellation bookkeeping across concurrently active sessions.
type Controller struct {
	blobs   storage.BlobStore
	monitor netquality.Monitor
	cfg     Config
	log     *logger.Logger

	mu     sync.Mutex
	active map[string]*session
}

func New(blobs storage.BlobStore, monitor netquality.Monitor, cfg Config, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		blobs:   blobs,
		monitor: monitor,
		cfg:     cfg,
		log:     log,
		active:  make(map[string]*session),
	}
}

type putResult struct {
	url string
	err error
}

// Upload moves payload to destPath, racing the transfer against the adaptive
// timeout. It suspends the caller until the backend settles, the timeout
// fires, or the session is cancelled, whichever is first.
func (c *Controller) Upload(ctx context.Context, payload []byte, destPath string, opts Options) Result {
	if destPath == "" {
		return Result{Err: clipstream_errors.ErrInvalidInput, Message: "destination path is required"}
	}

	if !c.monitor.Online(ctx) {
		return Result{
			Err:     clipstream_errors.ErrOffline,
			Message: "No internet connection. Check your network and try again.",
		}
	}

	sample := c.monitor.Sample(ctx)
	timeout := netquality.ComputeTimeout(int64(len(payload)), sample.Class, opts.TimeoutHint, c.cfg.Timeouts)

	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	tctx, cancel := context.WithCancel(ctx)
	s := newSession(id, destPath, int64(len(payload)), cancel)

	c.mu.Lock()
	c.active[id] = s
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.active, id)
		c.mu.Unlock()
		cancel()
	}()

	c.log.Infof("upload %s started: %d bytes to %s, quality=%s, timeout=%s",
		id, len(payload), destPath, sample.Class, timeout)

	go watch(tctx, s, watchdogConfig{
		Interval:     c.cfg.WatchdogInterval,
		Threshold:    c.stallThresholdFor(sample.Class),
		StartupGrace: c.cfg.StartupGrace,
	})

	done := make(chan putResult, 1)
	go func() {
		url, err := c.blobs.Put(tctx, destPath, payload, opts.ContentType, func(transferred, total int64) {
			s.reportProgress(transferred)
			if opts.OnProgress != nil {
				opts.OnProgress(transferred, total)
			}
		})
		done <- putResult{url: url, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return c.classify(s, sample, r.err)
		}
		c.log.Infof("upload %s completed: %s", id, r.url)
		return Result{OK: true, URL: r.url}

	case <-timer.C:
		cancel()
		// Drain the transfer goroutine; the blob store returns promptly once
		// its context is cancelled.
		go func() { <-done }()
		c.log.Warnf("upload %s timed out after %s", id, timeout)
		return Result{
			Err:     clipstream_errors.ErrTimeout,
			Message: fmt.Sprintf("Upload timed out after %s. Try again on a better connection.", timeout),
		}
	}
}

// Cancel aborts the session registered under id. Returns false when no such
// session is active; that case is a no-op.
func (c *Controller) Cancel(id string) bool {
	c.mu.Lock()
	s, ok := c.active[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.log.Infof("upload %s cancelled by caller", id)
	s.markUserCancelled()
	return true
}

// CancelAll aborts every active session and returns how many were cancelled.
func (c *Controller) CancelAll() int {
	c.mu.Lock()
	sessions := make([]*session, 0, len(c.active))
	for _, s := range c.active {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	for _, s := range sessions {
		s.markUserCancelled()
	}
	return len(sessions)
}

func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

func (c *Controller) stallThresholdFor(class netquality.Class) time.Duration {
	if class == netquality.ClassSlow || class == netquality.ClassOffline {
		return c.cfg.SlowStallThreshold
	}
	return c.cfg.StallThreshold
}

// classify turns a backend failure into a user-facing Result following a
// fixed precedence. The stalled check is cross-checked against the session's
// own user-cancel flag because the backend reports both as a cancelled
// context.
func (c *Controller) classify(s *session, sample netquality.Sample, err error) Result {
	switch {
	case errors.Is(err, clipstream_errors.ErrOffline):
		return Result{Err: clipstream_errors.ErrOffline,
			Message: "No internet connection. Check your network and try again."}

	case errors.Is(err, clipstream_errors.ErrUnauthorized):
		return Result{Err: clipstream_errors.ErrUnauthorized,
			Message: "Upload rejected: your credentials have expired. Sign in again."}

	case errors.Is(err, clipstream_errors.ErrForbidden):
		return Result{Err: clipstream_errors.ErrForbidden,
			Message: "Upload rejected: you don't have permission to write to storage."}

	case errors.Is(err, clipstream_errors.ErrQuotaExceeded):
		return Result{Err: clipstream_errors.ErrQuotaExceeded,
			Message: "Storage quota exceeded. Free up space or upgrade your plan."}

	case s.userCancelled.Load():
		return Result{Cancelled: true}

	case s.stalled.Load():
		c.log.Warnf("upload %s stalled at %d/%d bytes", s.id, s.transferred.Load(), s.payloadSize)
		return Result{Err: clipstream_errors.ErrStalled,
			Message: "Upload stalled: no progress for too long. This is usually a permissions problem, an expired login, or a dead connection."}

	case errors.Is(err, context.Canceled):
		// Parent context cancelled by the caller: treated as an explicit
		// caller action, same as Cancel.
		return Result{Cancelled: true}

	case errors.Is(err, clipstream_errors.ErrNetwork):
		return Result{Err: clipstream_errors.ErrNetwork,
			Message: "Network error during upload. Check your connection and try again."}

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, clipstream_errors.ErrTimeout):
		return Result{Err: clipstream_errors.ErrTimeout,
			Message: "Upload timed out. Try again on a better connection."}

	default:
		return Result{Err: err,
			Message: fmt.Sprintf("Upload failed: %v (connection: %s)", err, sample.Class)}
	}
}
