// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "csvscope"

// Upload results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultTooLarge = "too_large"
)

// Metrics is a private registry plus the collectors recorded by handlers.
type Metrics struct {
	Registry *prometheus.Registry

	Uploads         *prometheus.CounterVec
	UploadRows      prometheus.Histogram
	ChartRender     *prometheus.HistogramVec
	Downloads       prometheus.Counter
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry. sessions, if non-nil,
// is sampled for the active_sessions gauge.
func New(sessions func() int) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploaded files by outcome.",
		}, []string{"result"}),
		UploadRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_rows",
			Help:      "Data rows per accepted upload.",
			Buckets:   prometheus.ExponentialBuckets(10, 10, 6),
		}),
		ChartRender: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chart_render_seconds",
			Help:      "Time spent rendering a chart.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		Downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Cleaned CSV downloads served.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.Registry.MustRegister(
		m.Uploads, m.UploadRows, m.ChartRender, m.Downloads, m.Requests, m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if sessions != nil {
		m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Uploaded tables currently held in memory.",
		}, func() float64 { return float64(sessions()) }))
	}
	return m
}

// ObserveChart records how long rendering kind took since start.
func (m *Metrics) ObserveChart(kind string, start time.Time) {
	m.ChartRender.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
