package metrics

import (
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolCollector reads pgxpool statistics at scrape time.
type poolCollector struct {
	pool atomic.Pointer[pgxpool.Pool]

	connections     *prometheus.Desc
	acquires        *prometheus.Desc
	emptyAcquires   *prometheus.Desc
	canceled        *prometheus.Desc
	acquireDuration *prometheus.Desc
}

var dbPool = newPoolCollector()

func init() {
	prometheus.MustRegister(dbPool)
}

func newPoolCollector() *poolCollector {
	name := func(n string) string { return prometheus.BuildFQName(Namespace, "db", n) }
	return &poolCollector{
		connections:     prometheus.NewDesc(name("pool_connections"), "Number of database connections by state", []string{"state"}, nil),
		acquires:        prometheus.NewDesc(name("pool_acquires_total"), "Successful connection acquires", nil, nil),
		emptyAcquires:   prometheus.NewDesc(name("pool_empty_acquires_total"), "Acquires that had to wait for a connection", nil, nil),
		canceled:        prometheus.NewDesc(name("pool_canceled_acquires_total"), "Acquires cancelled by their context", nil, nil),
		acquireDuration: prometheus.NewDesc(name("pool_acquire_seconds_total"), "Total time spent acquiring connections", nil, nil),
	}
}

// TrackPool makes pool the source of the db_pool_* metrics. A later call
// replaces the previous pool.
func TrackPool(pool *pgxpool.Pool) {
	dbPool.pool.Store(pool)
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connections
	ch <- c.acquires
	ch <- c.emptyAcquires
	ch <- c.canceled
	ch <- c.acquireDuration
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	pool := c.pool.Load()
	if pool == nil {
		return
	}
	s := pool.Stat()

	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(s.AcquiredConns()), "in_use")
	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(s.IdleConns()), "idle")
	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(s.MaxConns()), "max")
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.canceled, prometheus.CounterValue, float64(s.CanceledAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireDuration, prometheus.CounterValue, s.AcquireDuration().Seconds())
}
