// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/project-illium/idxd/types"
	"time"
)

// Metrics are the prometheus collectors updated by the chain. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	bestTipHeight      *prometheus.GaugeVec
	canonicalBlocks    prometheus.Counter
	orphanedBlocks     prometheus.Counter
	reorgs             prometheus.Counter
	finalityViolations prometheus.Counter
	commitLatency      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		bestTipHeight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "idxd_best_tip_height",
				Help: "Height of the best tip of each genesis lineage",
			},
			[]string{"genesis"},
		),
		canonicalBlocks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "idxd_canonical_blocks_total",
				Help: "The total number of blocks that became canonical",
			},
		),
		orphanedBlocks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "idxd_orphaned_blocks_total",
				Help: "The total number of blocks that became orphaned",
			},
		),
		reorgs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "idxd_reorgs_total",
				Help: "The total number of best tip changes to a block that does not extend the previous tip",
			},
		),
		finalityViolations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "idxd_finality_violations_total",
				Help: "The total number of blocks rejected because they would orphan a canonical block",
			},
		),
		commitLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "idxd_canonicity_commit_seconds",
				Help:    "Latency of committing a canonicity update to the store",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),
	}
}

func (m *Metrics) setBestTipHeight(genesis types.ID, height uint32) {
	if m == nil {
		return
	}
	m.bestTipHeight.WithLabelValues(genesis.String()).Set(float64(height))
}

func (m *Metrics) countTransitions(update types.CanonicityUpdate) {
	if m == nil {
		return
	}
	for _, t := range update {
		switch t.Status {
		case types.Canonical:
			m.canonicalBlocks.Inc()
		case types.Orphaned:
			m.orphanedBlocks.Inc()
		}
	}
}

func (m *Metrics) incReorgs() {
	if m == nil {
		return
	}
	m.reorgs.Inc()
}

func (m *Metrics) incFinalityViolations() {
	if m == nil {
		return
	}
	m.finalityViolations.Inc()
}

func (m *Metrics) observeCommit(d time.Duration) {
	if m == nil {
		return
	}
	m.commitLatency.Observe(d.Seconds())
}
