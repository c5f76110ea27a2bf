package metrics

import (
	"sync"

	"github.com/marmos91/espflash/pkg/session"
)

// EventSink adapts session.Event notifications into the prometheus
// collectors: it tracks the last-seen progress per partition and turns
// forward progress into byte-count increments, since session.Event only
// carries a cumulative percentage.
type EventSink struct {
	collectors *Collectors
	sizes      map[string]int64

	mu   sync.Mutex
	last map[string]float64
}

// NewEventSink wraps collectors as a session.EventSink for partitions whose
// total size in bytes is known up front.
func NewEventSink(collectors *Collectors, partitionSizes map[string]int64) *EventSink {
	return &EventSink{collectors: collectors, sizes: partitionSizes, last: make(map[string]float64)}
}

var _ session.EventSink = (*EventSink)(nil)

// Emit implements session.EventSink.
func (s *EventSink) Emit(e session.Event) {
	if e.Kind == session.EventSyncProgress {
		if e.Progress == 100 {
			s.collectors.SyncAttemptsTotal.Inc()
		}
		return
	}
	if e.Kind != session.EventFlashProgress {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.last[e.Partition]
	if e.Progress <= prev {
		return
	}
	s.last[e.Partition] = e.Progress

	size := s.sizes[e.Partition]
	bytesDelta := (e.Progress - prev) / 100 * float64(size)
	s.collectors.BytesFlashedTotal.WithLabelValues(e.Partition).Add(bytesDelta)
}
