package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"toolscope/internal/domain"
	"toolscope/internal/infra/judge/eino"
	"toolscope/internal/infra/judge/gemini"
	"toolscope/internal/infra/normalizer"
	"toolscope/internal/infra/ranker"
	"toolscope/internal/infra/telemetry"
)

// NewMetricsRegistry returns a registry with the process and Go collectors.
func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

// NewMetrics registers selector metrics on registerer, or returns no-op
// metrics when registerer is nil.
func NewMetrics(registerer prometheus.Registerer) domain.Metrics {
	if registerer == nil {
		return telemetry.NewNoopMetrics()
	}
	return telemetry.NewPrometheusMetrics(registerer)
}

func NewCatalogCache() *domain.CatalogCache {
	return domain.NewCatalogCache()
}

func NewNormalizer(logger *zap.Logger, metrics domain.Metrics, cache *domain.CatalogCache) *normalizer.Normalizer {
	return normalizer.New(logger, metrics, cache)
}

// NewJudge builds the relevance judge for cfg.Provider.
func NewJudge(ctx context.Context, cfg domain.SelectorConfig, logger *zap.Logger) (domain.Judge, error) {
	switch cfg.Provider {
	case "", domain.ProviderGoogle:
		judge, err := gemini.New(ctx, cfg, nil, logger)
		if err != nil {
			return nil, domain.Wrap(domain.CodeConfiguration, "app.NewJudge", err)
		}
		return judge, nil
	case domain.ProviderOpenAI:
		judge, err := eino.New(ctx, cfg, logger)
		if err != nil {
			return nil, domain.Wrap(domain.CodeConfiguration, "app.NewJudge", err)
		}
		return judge, nil
	default:
		return nil, domain.E(domain.CodeConfiguration, "app.NewJudge", "", fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, cfg.Provider))
	}
}

func NewRanker(judge domain.Judge, metrics domain.Metrics, logger *zap.Logger) *ranker.Ranker {
	return ranker.New(judge, metrics, logger)
}

// NewOfflineRanker returns no ranker, so selection always uses the keyword fallback.
func NewOfflineRanker() RelevanceRanker {
	return nil
}
