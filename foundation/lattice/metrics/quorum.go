package metrics

import (
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	quorumOnlineWeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "quorum",
		Name:      "online_weight_raw",
		Help:      "Weight of the representatives seen voting within the weight period.",
	}, []string{"network"})

	quorumTrendedWeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "quorum",
		Name:      "trended_weight_raw",
		Help:      "Median of the persisted online weight samples.",
	}, []string{"network"})

	quorumDelta = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "quorum",
		Name:      "delta_raw",
		Help:      "Weight a tally must reach to confirm.",
	}, []string{"network"})

	quorumOnlineReps = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "quorum",
		Name:      "online_representatives",
		Help:      "Number of representatives seen voting within the weight period.",
	}, []string{"network"})
)

// Quorum tracks the online weight calculation.
type Quorum struct {
	network string
}

// NewQuorum constructs a Quorum with defaults.
func NewQuorum(network string) *Quorum {
	if network == "" {
		network = "unknown"
	}
	return &Quorum{network: network}
}

// ObserveWeights records the current quorum inputs and result.
func (m *Quorum) ObserveWeights(online, trended, delta types.Amount, reps int) {
	quorumOnlineWeight.WithLabelValues(m.network).Set(online.Float64())
	quorumTrendedWeight.WithLabelValues(m.network).Set(trended.Float64())
	quorumDelta.WithLabelValues(m.network).Set(delta.Float64())
	quorumOnlineReps.WithLabelValues(m.network).Set(float64(reps))
}
