package ristretto

import (
	rc "github.com/dgraph-io/ristretto"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors exposes ristretto's counters as Prometheus metrics. They read
// zero unless Config.Metrics was set.
func (p *Provider) Collectors() []prometheus.Collector {
	m := func() *rc.Metrics { return p.c.Metrics }

	counter := func(name, help string, f func(*rc.Metrics) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "aside_cache_ristretto_" + name,
			Help: help,
		}, func() float64 { return float64(f(m())) })
	}

	return []prometheus.Collector{
		counter("hits_total", "Ristretto Get hits", (*rc.Metrics).Hits),
		counter("misses_total", "Ristretto Get misses", (*rc.Metrics).Misses),
		counter("keys_added_total", "Keys admitted by ristretto", (*rc.Metrics).KeysAdded),
		counter("keys_evicted_total", "Keys evicted by ristretto", (*rc.Metrics).KeysEvicted),
		counter("sets_rejected_total", "Writes refused by the admission policy", (*rc.Metrics).SetsRejected),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "aside_cache_ristretto_hit_ratio",
			Help: "Ristretto hit ratio",
		}, func() float64 { return m().Ratio() }),
	}
}
