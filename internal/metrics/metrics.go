// Package metrics declares the Prometheus metrics exported by the Core process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "komodo_updates_total",
		Help: "Total Updates finalized, by resource kind, operation, and success.",
	}, []string{"kind", "operation", "success"})

	DeploysTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "komodo_deploys_total",
		Help: "Total deploy operations, by resource kind and success.",
	}, []string{"kind", "success"})

	ResourceBusyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "komodo_resource_busy_total",
		Help: "Total ResourceBusy rejections, by resource kind.",
	}, []string{"kind"})

	PullCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "komodo_pull_cache_hits_total",
		Help: "Total PullDeployment/PullStack requests served from the dedup cache.",
	})

	SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "komodo_sync_duration_seconds",
		Help:    "Duration of a full RunSync execution.",
		Buckets: prometheus.DefBuckets,
	})

	BuilderProvisionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "komodo_builder_provision_duration_seconds",
		Help:    "Duration of ephemeral builder provisioning, by provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	BuilderTerminationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "komodo_builder_termination_failures_total",
		Help: "Total builder teardown attempts that exhausted all retries.",
	}, []string{"provider"})

	PeripheryRPCDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "komodo_periphery_rpc_duration_seconds",
		Help:    "Duration of outbound periphery RPC calls, by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	ActiveUpdates = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "komodo_updates_in_progress",
		Help: "Number of Updates currently InProgress.",
	})
)

func init() {
	prometheus.MustRegister(
		UpdatesTotal,
		DeploysTotal,
		ResourceBusyTotal,
		PullCacheHitsTotal,
		SyncDuration,
		BuilderProvisionDuration,
		BuilderTerminationFailuresTotal,
		PeripheryRPCDuration,
		ActiveUpdates,
	)
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's wall-clock duration.
type Timer struct {
	start time.Time
}

// NewTimer starts a new Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records elapsed time into a plain Histogram.
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records elapsed time into a HistogramVec with labels.
func (t *Timer) ObserveDurationVec(hv *prometheus.HistogramVec, labels ...string) {
	hv.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns elapsed time without recording it anywhere.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
