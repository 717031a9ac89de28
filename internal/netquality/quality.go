package netquality

import (
	"context"
	"net/http"
	"time"
)

// Class is a coarse bucket summarizing link conditions.
type Class string

const (
	ClassOffline  Class = "offline"
	ClassSlow     Class = "slow"
	ClassModerate Class = "moderate"
	ClassFast     Class = "fast"
	ClassUnknown  Class = "unknown"
)

// Sample is a point-in-time observation of the link. Never persisted.
type Sample struct {
	Class        Class
	DownlinkMbps float64
	RTT          time.Duration
	Metered      bool
}

// Monitor answers connectivity questions for the upload pipeline. The sample
// is a hint used to bias timeouts and stall thresholds; only Online gates
// correctness.
type Monitor interface {
	Online(ctx context.Context) bool
	Sample(ctx context.Context) Sample
}

// ClassifyRTT buckets a measured round trip into a quality class.
func ClassifyRTT(rtt time.Duration) Class {
	switch {
	case rtt <= 0:
		return ClassUnknown
	case rtt < 150*time.Millisecond:
		return ClassFast
	case rtt < 600*time.Millisecond:
		return ClassModerate
	default:
		return ClassSlow
	}
}

// HTTPMonitor probes a small well-known endpoint to answer Online and to
// estimate link quality from the observed round trip.
type HTTPMonitor struct {
	probeURL string
	client   *http.Client
}

func NewHTTPMonitor(probeURL string, timeout time.Duration) *HTTPMonitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPMonitor{
		probeURL: probeURL,
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *HTTPMonitor) Online(ctx context.Context) bool {
	_, err := m.probe(ctx)
	return err == nil
}

func (m *HTTPMonitor) Sample(ctx context.Context) Sample {
	rtt, err := m.probe(ctx)
	if err != nil {
		return Sample{Class: ClassOffline}
	}
	return Sample{Class: ClassifyRTT(rtt), RTT: rtt}
}

func (m *HTTPMonitor) probe(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return time.Since(start), nil
}

// StaticMonitor reports a fixed state. Used in tests and in deployments that
// inject link information from elsewhere.
type StaticMonitor struct {
	IsOnline   bool
	LinkSample Sample
}

func (m *StaticMonitor) Online(context.Context) bool   { return m.IsOnline }
func (m *StaticMonitor) Sample(context.Context) Sample { return m.LinkSample }
