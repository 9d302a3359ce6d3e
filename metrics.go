package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	statusCodes *prometheus.CounterVec

	cacheFreshHits    prometheus.Counter
	cacheNegativeHits prometheus.Counter
	cacheMisses       prometheus.Counter
	coalescedWaits    prometheus.Counter

	upstreamFetches  prometheus.Counter
	upstreamNotFound prometheus.Counter
	upstreamErrors   prometheus.Counter
)

func init() {
	statusCodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_codes",
			Help: "Distribution by status codes counter",
		},
		[]string{"code"},
	)

	cacheFreshHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_fresh_hits",
		Help: "Number of lookups answered by an unexpired fresh entry",
	})

	cacheNegativeHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_negative_hits",
		Help: "Number of lookups answered by an unexpired negative entry",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses",
		Help: "Number of lookups that missed the cache",
	})

	coalescedWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coalesced_waits",
		Help: "Number of lookups that shared another caller's in-flight fetch",
	})

	upstreamFetches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upstream_fetches",
		Help: "Total number of upstream fetches issued",
	})

	upstreamNotFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upstream_not_found",
		Help: "Number of authoritative not-found answers from upstream",
	})

	upstreamErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upstream_errors",
		Help: "Number of transient upstream failures. Including amount of timeouts",
	})

	prometheus.MustRegister(statusCodes, cacheFreshHits, cacheNegativeHits,
		cacheMisses, coalescedWaits, upstreamFetches, upstreamNotFound, upstreamErrors)
}

func statusLabels(code int) prometheus.Labels {
	return prometheus.Labels{
		"code": fmt.Sprintf("%d", code),
	}
}

// promMetrics plugs the coordinator events into prometheus.
type promMetrics struct{}

func (promMetrics) Hit()           { cacheFreshHits.Inc() }
func (promMetrics) NegativeHit()   { cacheNegativeHits.Inc() }
func (promMetrics) Miss()          { cacheMisses.Inc() }
func (promMetrics) Coalesced()     { coalescedWaits.Inc() }
func (promMetrics) FetchIssued()   { upstreamFetches.Inc() }
func (promMetrics) FetchNotFound() { upstreamNotFound.Inc() }
func (promMetrics) FetchFailed()   { upstreamErrors.Inc() }
