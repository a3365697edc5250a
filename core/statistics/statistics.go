package statistics

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Statistics exposes engine counters to a host-supplied Prometheus
// registry. Amounts are reported as floats; exact values live in state.
type Statistics struct {
	claims        *prometheus.CounterVec
	claimedTotal  *prometheus.CounterVec
	distributions *prometheus.CounterVec
	distributed   *prometheus.CounterVec
	foldedEntries prometheus.Counter
}

func New(registerer prometheus.Registerer) *Statistics {
	s := &Statistics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dividends",
			Name:      "claims_total",
			Help:      "Number of successful dividend claims.",
		}, []string{"token"}),
		claimedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dividends",
			Name:      "claimed_amount_total",
			Help:      "Raw token units paid out to holders.",
		}, []string{"token"}),
		distributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dividends",
			Name:      "distributions_total",
			Help:      "Number of distributions accepted into the ledger.",
		}, []string{"token", "type"}),
		distributed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dividends",
			Name:      "distributed_amount_total",
			Help:      "Raw token units entered into distributions.",
		}, []string{"token", "type"}),
		foldedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dividends",
			Name:      "folded_entries_total",
			Help:      "Ledger entries folded into the accumulator.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(s.claims, s.claimedTotal, s.distributions, s.distributed, s.foldedEntries)
	}

	return s
}

func (s *Statistics) RecordClaim(token types.TokenID, amount *big.Int) {
	if s == nil {
		return
	}

	value, _ := new(big.Float).SetInt(amount).Float64()
	s.claims.WithLabelValues(token.String()).Inc()
	s.claimedTotal.WithLabelValues(token.String()).Add(value)
}

func (s *Statistics) RecordDistribution(token types.TokenID, distributionType types.DistributionType, amount *big.Int) {
	if s == nil {
		return
	}

	value, _ := new(big.Float).SetInt(amount).Float64()
	s.distributions.WithLabelValues(token.String(), distributionType.String()).Inc()
	s.distributed.WithLabelValues(token.String(), distributionType.String()).Add(value)
}

func (s *Statistics) RecordFold() {
	if s == nil {
		return
	}

	s.foldedEntries.Inc()
}
