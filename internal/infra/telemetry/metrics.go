package telemetry

import "toolscope/internal/domain"

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveRank(_ domain.RankMetric) {}

func (n *NoopMetrics) ObserveSelection(_ domain.Provenance, _ int, _ int) {}

func (n *NoopMetrics) ObserveCatalogCache(_ domain.CacheOutcome) {}

func (n *NoopMetrics) ObserveNormalizeSkip(_ string) {}

func (n *NoopMetrics) SetCachedCatalogs(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
