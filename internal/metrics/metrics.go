// Package metrics exposes run and file outcomes as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cegidsync/cegidsync/internal/batch"
)

const namespace = "cegidsync"

// Sink records batch events into collectors registered on one registry.
type Sink struct {
	files       *prometheus.CounterVec
	records     *prometheus.CounterVec
	tenants     *prometheus.CounterVec
	runs        prometheus.Counter
	fileLatency *prometheus.HistogramVec
	runLatency  prometheus.Histogram
	lastRun     prometheus.Gauge
	lastErrored prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Sink {
	f := promauto.With(reg)
	return &Sink{
		files: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "CSV files processed, by tenant and outcome.",
		}, []string{"tenant", "outcome"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_imported_total",
			Help:      "Records inserted by successful imports.",
		}, []string{"tenant", "table"}),
		tenants: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_visits_total",
			Help:      "Tenant directory visits, by status.",
		}, []string{"tenant", "status"}),
		runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed import runs.",
		}),
		fileLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent importing one file.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		runLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time spent in one import run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started.",
		}),
		lastErrored: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_errored_files",
			Help:      "Files that failed in the last run.",
		}),
	}
}

func (s *Sink) Tenant(e batch.TenantEvent) {
	s.tenants.WithLabelValues(e.Tenant, string(e.Status)).Inc()
}

func (s *Sink) File(e batch.FileEvent) {
	s.files.WithLabelValues(e.Tenant, string(e.Outcome)).Inc()
	s.fileLatency.WithLabelValues(string(e.Outcome)).Observe(e.Duration.Seconds())
	if e.Outcome == batch.Imported {
		s.records.WithLabelValues(e.Tenant, e.Result.Table).Add(float64(e.Result.Records))
	}
}

func (s *Sink) Summary(sum batch.Summary) {
	s.runs.Inc()
	s.runLatency.Observe(sum.Elapsed.Seconds())
	s.lastRun.Set(float64(sum.Started.Unix()))
	s.lastErrored.Set(float64(sum.Errored))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
