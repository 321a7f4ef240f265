package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writeQueueAcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "write_queue",
		Name:      "acquire_total",
		Help:      "Count of write guard requests by writer and result.",
	}, []string{"writer", "status"})

	writeQueueWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "write_queue",
		Name:      "wait_duration_seconds",
		Help:      "Time spent waiting for the write guard.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
	}, []string{"writer"})
)

// WriteQueue tracks metrics for the write guard.
type WriteQueue struct{}

// NewWriteQueue constructs a WriteQueue.
func NewWriteQueue() *WriteQueue {
	return &WriteQueue{}
}

// ObserveWait records how long a writer waited and whether it got the guard.
func (m *WriteQueue) ObserveWait(writer string, err error, started time.Time) {
	status := "acquired"
	if err != nil {
		status = "cancelled"
	}
	writeQueueAcquireTotal.WithLabelValues(writer, status).Inc()
	writeQueueWaitDuration.WithLabelValues(writer).Observe(time.Since(started).Seconds())
}
