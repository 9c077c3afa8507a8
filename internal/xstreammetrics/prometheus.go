// Package xstreammetrics exposes Prometheus collectors for scheduler
// and pool introspection, wired for anyone embedding the runtime to
// scrape (the core itself never reads these — this is pure
// observability on top of the GetSize/GetTotalSize/GetNumPools
// accessors).
package xstreammetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors wraps the prometheus collectors this package registers.
type Collectors struct {
	registry *prometheus.Registry

	schedulersCreated     prometheus.Counter
	schedulersFreed       prometheus.Counter
	schedulerTerminations *prometheus.CounterVec

	poolSize      *prometheus.GaugeVec
	poolTotalSize *prometheus.GaugeVec
	migrations    *prometheus.CounterVec
}

var collectors *Collectors

// Init builds and registers the runtime's collectors under namespace.
// Safe to call once at process start; a second call replaces the
// package-level singleton.
func Init(namespace string) *Collectors {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	c := &Collectors{
		registry: registry,

		schedulersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedulers_created_total",
			Help:      "Total number of scheduler instances constructed.",
		}),
		schedulersFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedulers_freed_total",
			Help:      "Total number of scheduler instances freed.",
		}),
		schedulerTerminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_terminations_total",
			Help:      "Scheduler terminations, labeled by the request bit observed (finish|exit).",
		}, []string{"reason"}),

		poolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_size",
			Help:      "Units immediately available to Pop, per pool.",
		}, []string{"pool", "access"}),
		poolTotalSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_total_size",
			Help:      "Units available plus blocked/migrating, per pool.",
		}, []string{"pool", "access"}),
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Migration attempts, labeled by outcome (accepted|rejected).",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		c.schedulersCreated,
		c.schedulersFreed,
		c.schedulerTerminations,
		c.poolSize,
		c.poolTotalSize,
		c.migrations,
	)

	collectors = c
	return c
}

// SchedulerCreated increments the scheduler-construction counter.
func (c *Collectors) SchedulerCreated() { c.schedulersCreated.Inc() }

// SchedulerFreed increments the scheduler-teardown counter.
func (c *Collectors) SchedulerFreed() { c.schedulersFreed.Inc() }

// SchedulerTerminated records a termination, labeled by which request
// bit triggered it ("finish" or "exit").
func (c *Collectors) SchedulerTerminated(reason string) {
	c.schedulerTerminations.WithLabelValues(reason).Inc()
}

// ObservePool records a pool's current size and total_size, labeled by
// a caller-supplied pool identifier and its access mode string.
func (c *Collectors) ObservePool(poolID, access string, size, totalSize int) {
	c.poolSize.WithLabelValues(poolID, access).Set(float64(size))
	c.poolTotalSize.WithLabelValues(poolID, access).Set(float64(totalSize))
}

// Migration records a migration attempt outcome ("accepted" or
// "rejected").
func (c *Collectors) Migration(outcome string) {
	c.migrations.WithLabelValues(outcome).Inc()
}

// Handler returns the http.Handler that serves this registry's
// metrics in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Default returns the package-level collectors built by the most
// recent Init call, or nil if Init has not been called.
func Default() *Collectors { return collectors }
