package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector exposes gauges for the pgx connection pool. The pool is
// fetched through a func so the collector can be registered before the
// store is opened (or when the memory driver is active, in which case it
// reports nothing).
type PoolCollector struct {
	pool func() *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
	maxDesc      *prometheus.Desc
}

func NewPoolCollector(pool func() *pgxpool.Pool) *PoolCollector {
	return &PoolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Acquired connections.", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Idle connections.", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Total connections.", nil, nil),
		maxDesc:      prometheus.NewDesc("pg_pool_max", "Configured connection ceiling.", nil, nil),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
	ch <- c.maxDesc
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	pool := c.pool()
	if pool == nil {
		return
	}
	stat := pool.Stat()
	if stat == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.maxDesc, prometheus.GaugeValue, float64(stat.MaxConns()))
}
