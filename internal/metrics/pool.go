package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatter is satisfied by *pgxpool.Pool.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// PoolCollector exports pgxpool statistics. Stats are read during each
// scrape; there is no polling goroutine.
type PoolCollector struct {
	pool PoolStatter

	acquireCount      *prometheus.Desc
	acquireDuration   *prometheus.Desc
	acquiredConns     *prometheus.Desc
	canceledAcquires  *prometheus.Desc
	emptyAcquireCount *prometheus.Desc
	idleConns         *prometheus.Desc
	maxConns          *prometheus.Desc
	totalConns        *prometheus.Desc
}

func poolDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pgxpool", name), help, nil, nil)
}

// NewPoolCollector creates a collector for pool. A nil pool collects nothing.
func NewPoolCollector(pool PoolStatter) *PoolCollector {
	return &PoolCollector{
		pool:              pool,
		acquireCount:      poolDesc("acquires_total", "Cumulative count of successful connection acquires."),
		acquireDuration:   poolDesc("acquire_duration_seconds_total", "Cumulative time spent acquiring connections."),
		acquiredConns:     poolDesc("acquired_conns", "Number of currently acquired connections."),
		canceledAcquires:  poolDesc("canceled_acquires_total", "Cumulative count of acquires canceled by context."),
		emptyAcquireCount: poolDesc("empty_acquires_total", "Cumulative count of acquires that waited for a connection."),
		idleConns:         poolDesc("idle_conns", "Number of idle connections in the pool."),
		maxConns:          poolDesc("max_conns", "Maximum number of connections allowed."),
		totalConns:        poolDesc("total_conns", "Total number of connections in the pool."),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquireCount
	ch <- c.acquireDuration
	ch <- c.acquiredConns
	ch <- c.canceledAcquires
	ch <- c.emptyAcquireCount
	ch <- c.idleConns
	ch <- c.maxConns
	ch <- c.totalConns
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()

	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(stat.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireDuration, prometheus.CounterValue, stat.AcquireDuration().Seconds())
	ch <- prometheus.MustNewConstMetric(c.acquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.canceledAcquires, prometheus.CounterValue, float64(stat.CanceledAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquireCount, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
}
