package netquality

import (
	"fmt"
	"time"
)

const bytesPerMB = 1 << 20

// TimeoutConfig bounds the adaptive timeout computation. Values come from
// config.UploadConfig; the defaults here exist for tests and bare construction.
type TimeoutConfig struct {
	PerMBFast     time.Duration
	PerMBModerate time.Duration
	PerMBSlow     time.Duration
	PerMBUnknown  time.Duration
	Floor         time.Duration
	Ceiling       time.Duration
}

func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		PerMBFast:     2 * time.Second,
		PerMBModerate: 4 * time.Second,
		PerMBSlow:     6 * time.Second,
		PerMBUnknown:  4 * time.Second,
		Floor:         30 * time.Second,
		Ceiling:       5 * time.Minute,
	}
}

func (c TimeoutConfig) perMB(class Class) time.Duration {
	switch class {
	case ClassFast:
		return c.PerMBFast
	case ClassModerate:
		return c.PerMBModerate
	case ClassSlow, ClassOffline:
		return c.PerMBSlow
	default:
		return c.PerMBUnknown
	}
}

// ComputeTimeout derives a bounded per-upload deadline from payload size and
// link quality. Pure and deterministic: the result is the maximum of the
// caller hint, the size-based estimate, and the floor, clamped to the ceiling.
func ComputeTimeout(sizeBytes int64, class Class, hint time.Duration, cfg TimeoutConfig) time.Duration {
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	sizeMB := float64(sizeBytes) / float64(bytesPerMB)
	estimate := time.Duration(sizeMB * float64(cfg.perMB(class)))

	timeout := cfg.Floor
	if estimate > timeout {
		timeout = estimate
	}
	if hint > timeout {
		timeout = hint
	}
	if timeout > cfg.Ceiling {
		timeout = cfg.Ceiling
	}
	return timeout
}

// Estimate is advice shown to a user before committing to an upload.
type Estimate struct {
	EstimatedSeconds float64
	RecommendProceed bool
	WarningMessage   string
	DataUsageMB      float64
}

// Thresholds for pre-upload advice, in megabytes.
const (
	slowLinkWarnMB = 25.0
	meteredWarnMB  = 100.0
)

// EstimateUpload is a pure function of payload size and the observed link
// sample. Recomputed per call, never cached.
func EstimateUpload(sizeBytes int64, s Sample) Estimate {
	usageMB := float64(sizeBytes) / float64(bytesPerMB)
	est := Estimate{
		RecommendProceed: true,
		DataUsageMB:      usageMB,
	}

	if s.Class == ClassOffline {
		est.RecommendProceed = false
		est.WarningMessage = "You are offline. Connect to a network before uploading."
		return est
	}

	if s.DownlinkMbps > 0 {
		throughputBytes := s.DownlinkMbps * 1e6 / 8
		est.EstimatedSeconds = float64(sizeBytes) / throughputBytes
	}

	if s.Class == ClassSlow && usageMB > slowLinkWarnMB {
		est.RecommendProceed = false
		est.WarningMessage = fmt.Sprintf("Your connection is slow and this upload is %.0f MB. It may take a long time.", usageMB)
	} else if s.Metered && usageMB > meteredWarnMB {
		est.WarningMessage = fmt.Sprintf("This upload will use %.0f MB of metered data.", usageMB)
	}

	return est
}
