//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"toolscope/internal/domain"
)

func InitializeSelector(ctx context.Context, cfg domain.SelectorConfig, logging LoggingConfig, registerer prometheus.Registerer) (*Selector, error) {
	wire.Build(SelectorSet)
	return nil, nil
}

func InitializeOfflineSelector(cfg domain.SelectorConfig, logging LoggingConfig, registerer prometheus.Registerer) (*Selector, error) {
	wire.Build(OfflineSelectorSet)
	return nil, nil
}
