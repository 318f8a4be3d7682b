package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

const namespace = "address_risk"

// Collector records pipeline measurements on its own registry.
type Collector struct {
	registry *prometheus.Registry

	Analyses        *prometheus.CounterVec
	AnalysisLatency prometheus.Histogram
	TxPerAnalysis   prometheus.Histogram
	FetchErrors     *prometheus.CounterVec
	Identifications *prometheus.CounterVec
	WatchedAddrs    prometheus.Gauge
}

// NewCollector builds and registers every metric.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed address analyses by risk level.",
		}, []string{"level"}),
		AnalysisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent scoring one address, fetch excluded.",
			Buckets:   prometheus.DefBuckets,
		}),
		TxPerAnalysis: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_transactions",
			Help:      "Normalized transaction records per analysis.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Transaction source failures.",
		}, []string{"source"}),
		Identifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifications_total",
			Help:      "Exchange identifications by winning method.",
		}, []string{"method"}),
		WatchedAddrs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watched_addresses",
			Help:      "Addresses on the monitor watchlist.",
		}),
	}
	c.registry.MustRegister(
		c.Analyses,
		c.AnalysisLatency,
		c.TxPerAnalysis,
		c.FetchErrors,
		c.Identifications,
		c.WatchedAddrs,
		prometheus.NewGoCollector(),
	)
	return c
}

func (c *Collector) ObserveAnalysis(level models.RiskLevel, txCount int, elapsed time.Duration) {
	c.Analyses.WithLabelValues(string(level)).Inc()
	c.AnalysisLatency.Observe(elapsed.Seconds())
	c.TxPerAnalysis.Observe(float64(txCount))
}

func (c *Collector) ObserveFetchError(source string) {
	c.FetchErrors.WithLabelValues(source).Inc()
}

func (c *Collector) ObserveIdentification(method models.Method) {
	c.Identifications.WithLabelValues(string(method)).Inc()
}

// SetWatched records the current watchlist size.
func (c *Collector) SetWatched(n int) {
	c.WatchedAddrs.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
