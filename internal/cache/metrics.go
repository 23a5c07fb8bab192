package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vtree_cache_hits_total",
		Help: "Number of document cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vtree_cache_misses_total",
		Help: "Number of document cache misses",
	})

	cacheInserts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vtree_cache_inserts_total",
		Help: "Number of snapshots stored in the document cache",
	})

	cacheStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vtree_cache_stale_inserts_total",
		Help: "Number of inserts rejected because a newer generation was cached",
	})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vtree_cache_entries",
		Help: "Number of pages currently cached, across all caches",
	})
)
