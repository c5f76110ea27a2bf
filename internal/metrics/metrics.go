// Package metrics defines the prometheus collectors exported by the CLI
// for long-running flashing operations, grounded on the teacher's
// per-subsystem collector-registration pattern (one Collectors struct per
// concern, registered once against a Registry at startup).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors holds every metric this module exports.
type Collectors struct {
	BytesFlashedTotal   *prometheus.CounterVec
	SyncAttemptsTotal   prometheus.Counter
	FlashDurationSeconds *prometheus.HistogramVec
}

// New constructs the collectors, unregistered.
func New() *Collectors {
	return &Collectors{
		BytesFlashedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "espflash_bytes_flashed_total",
			Help: "Total bytes written to flash, labeled by partition.",
		}, []string{"partition"}),
		SyncAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "espflash_sync_attempts_total",
			Help: "Total successful SYNC handshakes across all sessions; individual attempts are not counted.",
		}),
		FlashDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "espflash_flash_duration_seconds",
			Help:    "Wall-clock duration of a flashImage call, labeled by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
}

// MustRegister registers every collector against reg.
func (c *Collectors) MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(c.BytesFlashedTotal, c.SyncAttemptsTotal, c.FlashDurationSeconds)
}
