package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"toolscope/internal/domain"
)

type PrometheusMetrics struct {
	rankLatency    *prometheus.HistogramVec
	rankTokens     *prometheus.CounterVec
	rankFailures   *prometheus.CounterVec
	selections     *prometheus.CounterVec
	selectedTools  *prometheus.HistogramVec
	selectionRatio *prometheus.HistogramVec
	catalogCache   *prometheus.CounterVec
	normalizeSkips *prometheus.CounterVec
	cachedCatalogs prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		rankLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolscope_rank_latency_seconds",
				Help:    "Latency of relevance judge calls in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "model", "status"},
		),
		rankTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolscope_rank_tokens_total",
				Help: "Total number of tokens consumed by relevance judge calls",
			},
			[]string{"provider", "model"},
		),
		rankFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolscope_rank_failures_total",
				Help: "Total number of failed relevance judge calls",
			},
			[]string{"provider", "model"},
		),
		selections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolscope_selections_total",
				Help: "Total number of tool selections by provenance",
			},
			[]string{"provenance"},
		),
		selectedTools: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolscope_selected_tools",
				Help:    "Number of tools returned per selection",
				Buckets: []float64{0, 1, 3, 5, 10, 20, 50, 100},
			},
			[]string{"provenance"},
		),
		selectionRatio: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolscope_selection_ratio",
				Help:    "Ratio of selected tools to catalog size",
				Buckets: []float64{.1, .25, .5, .75, .9, 1},
			},
			[]string{"provenance"},
		),
		catalogCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolscope_catalog_cache_total",
				Help: "Total number of catalog cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		normalizeSkips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolscope_normalize_skips_total",
				Help: "Total number of tool entries skipped during normalization",
			},
			[]string{"kind"},
		),
		cachedCatalogs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "toolscope_cached_catalogs",
				Help: "Current number of cached owner catalogs",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveRank(metric domain.RankMetric) {
	status := "success"
	if metric.Err != nil {
		status = "error"
		p.rankFailures.WithLabelValues(metric.Provider, metric.Model).Inc()
	}
	p.rankLatency.WithLabelValues(metric.Provider, metric.Model, status).Observe(metric.Duration.Seconds())
	if metric.Tokens > 0 {
		p.rankTokens.WithLabelValues(metric.Provider, metric.Model).Add(float64(metric.Tokens))
	}
}

func (p *PrometheusMetrics) ObserveSelection(provenance domain.Provenance, selected int, catalogSize int) {
	label := string(provenance)
	p.selections.WithLabelValues(label).Inc()
	p.selectedTools.WithLabelValues(label).Observe(float64(selected))
	if catalogSize > 0 {
		p.selectionRatio.WithLabelValues(label).Observe(float64(selected) / float64(catalogSize))
	}
}

func (p *PrometheusMetrics) ObserveCatalogCache(outcome domain.CacheOutcome) {
	p.catalogCache.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusMetrics) ObserveNormalizeSkip(kind string) {
	p.normalizeSkips.WithLabelValues(kind).Inc()
}

func (p *PrometheusMetrics) SetCachedCatalogs(count int) {
	p.cachedCatalogs.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
