package protoarray

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	calledHeadCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "protoarray_head_requested_total",
		Help: "Number of times the proto-array fork choice head was requested",
	})
	processedAttestationCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "protoarray_processed_attestation_total",
		Help: "Number of validator attestations folded into the vote table",
	})
	nodeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "protoarray_node_count",
		Help: "Number of block nodes currently held by the proto-array store",
	})
	reorgCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "protoarray_reorg_total",
		Help: "Number of times the computed head root changed from the previous head computation",
	})
)
