package service

import (
	"sync/atomic"
	"time"
)

// Metrics tracks pipeline counters.
type Metrics struct {
	upstreamCalls     int64
	upstreamErrors    int64
	upstreamRetries   int64
	upstreamLatency   int64 // total latency in nanoseconds
	admissionDenials  int64
	normalizeFailures int64
	generations       int64
}

var globalMetrics = &Metrics{}

// Snapshot returns the current metrics values.
type Snapshot struct {
	UpstreamCalls     int64 `json:"upstream_calls"`
	UpstreamErrors    int64 `json:"upstream_errors"`
	UpstreamRetries   int64 `json:"upstream_retries"`
	UpstreamLatencyMS int64 `json:"upstream_latency_ms"`
	AdmissionDenials  int64 `json:"admission_denials"`
	NormalizeFailures int64 `json:"normalize_failures"`
	Generations       int64 `json:"generations"`
}

// GetMetrics returns the current metrics snapshot.
func GetMetrics() Snapshot {
	return Snapshot{
		UpstreamCalls:     atomic.LoadInt64(&globalMetrics.upstreamCalls),
		UpstreamErrors:    atomic.LoadInt64(&globalMetrics.upstreamErrors),
		UpstreamRetries:   atomic.LoadInt64(&globalMetrics.upstreamRetries),
		UpstreamLatencyMS: atomic.LoadInt64(&globalMetrics.upstreamLatency) / int64(time.Millisecond),
		AdmissionDenials:  atomic.LoadInt64(&globalMetrics.admissionDenials),
		NormalizeFailures: atomic.LoadInt64(&globalMetrics.normalizeFailures),
		Generations:       atomic.LoadInt64(&globalMetrics.generations),
	}
}

// ResetMetrics resets all metrics (useful for testing).
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.upstreamCalls, 0)
	atomic.StoreInt64(&globalMetrics.upstreamErrors, 0)
	atomic.StoreInt64(&globalMetrics.upstreamRetries, 0)
	atomic.StoreInt64(&globalMetrics.upstreamLatency, 0)
	atomic.StoreInt64(&globalMetrics.admissionDenials, 0)
	atomic.StoreInt64(&globalMetrics.normalizeFailures, 0)
	atomic.StoreInt64(&globalMetrics.generations, 0)
}

func recordUpstreamCall(duration time.Duration, err error) {
	atomic.AddInt64(&globalMetrics.upstreamCalls, 1)
	atomic.AddInt64(&globalMetrics.upstreamLatency, duration.Nanoseconds())
	if err != nil {
		atomic.AddInt64(&globalMetrics.upstreamErrors, 1)
	}
}

func recordUpstreamRetry() {
	atomic.AddInt64(&globalMetrics.upstreamRetries, 1)
}

func recordAdmissionDenial() {
	atomic.AddInt64(&globalMetrics.admissionDenials, 1)
}

func recordNormalizeFailure() {
	atomic.AddInt64(&globalMetrics.normalizeFailures, 1)
}

func recordGeneration() {
	atomic.AddInt64(&globalMetrics.generations, 1)
}
