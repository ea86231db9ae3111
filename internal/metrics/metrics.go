package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"carprice/internal/catalog"
)

var (
	catalogRowsDesc = prometheus.NewDesc(
		"carprice_catalog_rows",
		"Number of dataset rows ingested into the catalog",
		nil,
		nil,
	)
	catalogEntriesDesc = prometheus.NewDesc(
		"carprice_catalog_entries",
		"Number of distinct catalog values by kind",
		[]string{"kind"},
		nil,
	)
)

// CatalogSource is the part of the catalog index read by the collector.
type CatalogSource interface {
	Rows() int
	Categories() catalog.Categories
	ModelsByBrand() catalog.ModelsByBrand
}

// CatalogCollector is a custom Prometheus collector that reads catalog sizes
// on each scrape.
type CatalogCollector struct {
	src CatalogSource
}

// Describe sends the metric descriptors to the channel.
func (c *CatalogCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- catalogRowsDesc
	ch <- catalogEntriesDesc
}

// Collect emits the catalog sizes as gauges.
func (c *CatalogCollector) Collect(ch chan<- prometheus.Metric) {
	cats := c.src.Categories()
	models := 0
	for _, m := range c.src.ModelsByBrand() {
		models += len(m)
	}

	ch <- prometheus.MustNewConstMetric(catalogRowsDesc, prometheus.GaugeValue, float64(c.src.Rows()))
	for kind, n := range map[string]int{
		"brand":        len(cats.Brands),
		"model":        models,
		"fuel_type":    len(cats.FuelTypes),
		"transmission": len(cats.Transmissions),
	} {
		ch <- prometheus.MustNewConstMetric(catalogEntriesDesc, prometheus.GaugeValue, float64(n), kind)
	}
}

// Metrics bundles Prometheus collectors for the server.
type Metrics struct {
	Registry            *prometheus.Registry
	PredictionsTotal    *prometheus.CounterVec
	PredictionDuration  prometheus.Histogram
	PredictionsInFlight prometheus.Gauge
	CacheHitsTotal      prometheus.Counter
	PredictorAvailable  prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	predictions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carprice_predictions_total",
			Help: "Total prediction requests by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carprice_prediction_duration_seconds",
			Help:    "Wall time of predictor processes.",
			Buckets: prometheus.DefBuckets,
		},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carprice_predictions_in_flight",
			Help: "Predictor processes currently running.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "carprice_prediction_cache_hits_total",
			Help: "Predictions served from the in-memory cache.",
		},
	)
	available := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carprice_predictor_available",
			Help: "1 when the predictor command resolves, 0 otherwise.",
		},
	)

	registry.MustRegister(
		predictions, duration, inFlight, cacheHits, available,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:            registry,
		PredictionsTotal:    predictions,
		PredictionDuration:  duration,
		PredictionsInFlight: inFlight,
		CacheHitsTotal:      cacheHits,
		PredictorAvailable:  available,
	}
}

// RegisterCatalog exposes catalog sizes on the registry. Must be called once.
func (m *Metrics) RegisterCatalog(src CatalogSource) {
	if m == nil {
		return
	}
	m.Registry.MustRegister(&CatalogCollector{src: src})
}

// ObservePrediction records a finished prediction.
func (m *Metrics) ObservePrediction(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PredictionsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.PredictionDuration.Observe(d.Seconds())
	}
}

// IncInFlight marks a predictor process as started.
func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.PredictionsInFlight.Inc()
}

// DecInFlight marks a predictor process as finished.
func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.PredictionsInFlight.Dec()
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// SetPredictorAvailable records the result of the last availability probe.
func (m *Metrics) SetPredictorAvailable(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.PredictorAvailable.Set(1)
		return
	}
	m.PredictorAvailable.Set(0)
}
