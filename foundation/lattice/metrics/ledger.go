// Package metrics holds the prometheus instrumentation of the ledger core.
// Collectors are registered with the default registry and exposed by the
// node's debug endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lattice"

var (
	ledgerProcessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "process_total",
		Help:      "Count of blocks submitted to the ledger by type and result.",
	}, []string{"network", "type", "status"})

	ledgerProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "process_duration_seconds",
		Help:      "Duration of validating and applying a block.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
	}, []string{"network"})

	ledgerRollbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "rollback_total",
		Help:      "Count of rollback requests.",
	}, []string{"network", "status"})

	ledgerRolledBackBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "rolled_back_blocks_total",
		Help:      "Count of blocks removed by rollbacks.",
	}, []string{"network"})

	ledgerCementedBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "cemented_blocks_total",
		Help:      "Count of blocks whose confirmation height was written.",
	}, []string{"network"})

	ledgerPrunedBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "pruned_blocks_total",
		Help:      "Count of blocks moved to the pruned table.",
	}, []string{"network"})
)

// Ledger tracks metrics for block processing.
type Ledger struct {
	network string
}

// NewLedger constructs a Ledger with defaults.
func NewLedger(network string) *Ledger {
	if network == "" {
		network = "unknown"
	}
	return &Ledger{network: network}
}

// ObserveProcess records the outcome of processing a block. Status is
// "progress" for inserted blocks and the rejection name otherwise.
func (m *Ledger) ObserveProcess(blockType string, status string, started time.Time) {
	ledgerProcessTotal.WithLabelValues(m.network, blockType, status).Inc()
	ledgerProcessDuration.WithLabelValues(m.network).Observe(time.Since(started).Seconds())
}

// ObserveRollback records a rollback request and the blocks it removed.
func (m *Ledger) ObserveRollback(err error, blocks int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ledgerRollbackTotal.WithLabelValues(m.network, status).Inc()
	ledgerRolledBackBlocks.WithLabelValues(m.network).Add(float64(blocks))
}

// ObserveCemented records newly cemented blocks.
func (m *Ledger) ObserveCemented(blocks int) {
	ledgerCementedBlocks.WithLabelValues(m.network).Add(float64(blocks))
}

// ObservePruned records newly pruned blocks.
func (m *Ledger) ObservePruned(blocks uint64) {
	ledgerPrunedBlocks.WithLabelValues(m.network).Add(float64(blocks))
}
