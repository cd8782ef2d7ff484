//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"toolscope/internal/infra/normalizer"
	"toolscope/internal/infra/ranker"
)

var CoreSet = wire.NewSet(
	NewLogger,
	NewMetrics,
	NewCatalogCache,
	NewNormalizer,
	wire.Bind(new(CatalogSource), new(*normalizer.Normalizer)),
)

var RankingSet = wire.NewSet(
	NewJudge,
	NewRanker,
	wire.Bind(new(RelevanceRanker), new(*ranker.Ranker)),
)

var SelectorSet = wire.NewSet(
	CoreSet,
	RankingSet,
	wire.Struct(new(SelectorOptions), "*"),
	NewSelector,
)

var OfflineSelectorSet = wire.NewSet(
	CoreSet,
	NewOfflineRanker,
	wire.Struct(new(SelectorOptions), "*"),
	NewSelector,
)
