// Package metrics exposes Prometheus metrics for batch merge runs.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the merge service collectors on a private registry
type Metrics struct {
	Pages        *prometheus.CounterVec
	Objects      prometheus.Counter
	Detections   prometheus.Counter
	PageDuration prometheus.Histogram
	LastScan     prometheus.Gauge
	Scans        prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagemerge_pages_total",
			Help: "Pages processed by outcome",
		}, []string{"outcome"}),
		Objects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagemerge_objects_total",
			Help: "Merged objects committed",
		}),
		Detections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagemerge_detections_total",
			Help: "Detections consumed by committed pages",
		}),
		PageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagemerge_page_duration_seconds",
			Help:    "Time to merge and commit one page",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		LastScan: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pagemerge_last_scan_duration_seconds",
			Help: "Duration of the most recent scan",
		}),
		Scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagemerge_scans_total",
			Help: "Completed scans",
		}),
	}

	m.registry.MustRegister(m.Pages, m.Objects, m.Detections, m.PageDuration, m.LastScan, m.Scans)
	return m
}

// PageMerged records a committed page
func (m *Metrics) PageMerged(objects, detections int, d time.Duration) {
	m.Pages.WithLabelValues("merged").Inc()
	m.Objects.Add(float64(objects))
	m.Detections.Add(float64(detections))
	m.PageDuration.Observe(d.Seconds())
}

// PageSkipped records a page that was not ready to merge
func (m *Metrics) PageSkipped() {
	m.Pages.WithLabelValues("skipped").Inc()
}

// PageFailed records a page whose commit failed
func (m *Metrics) PageFailed() {
	m.Pages.WithLabelValues("failed").Inc()
}

// ScanFinished records the end of a scan
func (m *Metrics) ScanFinished(d time.Duration) {
	m.Scans.Inc()
	m.LastScan.Set(d.Seconds())
}

// Registry returns the registry backing Handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until the server fails
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	err := http.ListenAndServe(addr, mux)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
