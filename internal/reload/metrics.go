package reload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vtree_reload_updates_total",
		Help: "Page updates by outcome (patch, reload, unchanged, superseded, error).",
	}, []string{"outcome"})

	updateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vtree_reload_update_duration_seconds",
		Help:    "Time from source to published patch set.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	patchOps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vtree_reload_patch_ops",
		Help:    "Operations per published patch.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
	})

	snapshotFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vtree_reload_snapshot_loads_total",
		Help: "Cache misses served from the snapshot store, by result (hit, miss, corrupt, error).",
	}, []string{"result"})
)
