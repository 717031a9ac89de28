package uploader

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSession() (*session, *atomic.Bool) {
	var cancelled atomic.Bool
	s := newSession("s1", "posts/p1/media.jpg", 1<<20, func() { cancelled.Store(true) })
	return s, &cancelled
}

func TestWatchdogFlagsStallAndCancels(t *testing.T) {
	s, cancelled := newTestSession()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watch(ctx, s, watchdogConfig{
		Interval:     5 * time.Millisecond,
		Threshold:    30 * time.Millisecond,
		StartupGrace: 0,
	})

	waitFor(t, time.Second, func() bool { return s.stalled.Load() })
	if !cancelled.Load() {
		t.Fatalf("watchdog should cancel the transfer when it stalls")
	}
}

func TestWatchdogRearmsOnProgress(t *testing.T) {
	s, cancelled := newTestSession()

	ctx, cancel := context.WithCancel(context.Background())
	go watch(ctx, s, watchdogConfig{
		Interval:     5 * time.Millisecond,
		Threshold:    40 * time.Millisecond,
		StartupGrace: 0,
	})

	// Keep bytes advancing well inside the threshold.
	var n int64
	for i := 0; i < 15; i++ {
		n += 100
		s.reportProgress(n)
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	if s.stalled.Load() || cancelled.Load() {
		t.Fatalf("steady progress must never trip the watchdog")
	}
}

func TestWatchdogStartupGraceDoublesThreshold(t *testing.T) {
	s, _ := newTestSession()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watch(ctx, s, watchdogConfig{
		Interval:     5 * time.Millisecond,
		Threshold:    50 * time.Millisecond,
		StartupGrace: time.Minute,
	})

	time.Sleep(70 * time.Millisecond)
	if s.stalled.Load() {
		t.Fatalf("stall fired inside the doubled startup threshold")
	}

	waitFor(t, time.Second, func() bool { return s.stalled.Load() })
}

func TestWatchdogStopsWhenSessionEnds(t *testing.T) {
	s, cancelled := newTestSession()

	ctx, cancel := context.WithCancel(context.Background())
	go watch(ctx, s, watchdogConfig{
		Interval:     5 * time.Millisecond,
		Threshold:    30 * time.Millisecond,
		StartupGrace: 0,
	})

	// Session finishes before the stall threshold elapses.
	cancel()
	time.Sleep(60 * time.Millisecond)

	if s.stalled.Load() || cancelled.Load() {
		t.Fatalf("watchdog kept running after the session ended")
	}
}

func TestReportProgressIgnoresDecreases(t *testing.T) {
	s, _ := newTestSession()

	s.reportProgress(100)
	before := s.lastProgress.Load()
	time.Sleep(2 * time.Millisecond)
	s.reportProgress(40)

	if got := s.transferred.Load(); got != 100 {
		t.Fatalf("decreasing byte report should be a no-op, transferred = %d", got)
	}
	if s.lastProgress.Load() != before {
		t.Fatalf("decreasing byte report must not count as progress")
	}
}
