// Package toolscope selects, from the tools an AI agent exposes, the subset most
// relevant to the user's current request.
//
// A Selector normalizes the tools of a ToolOwner into ToolRecords, caches the
// result per owner key, and asks a language-model judge to rank them. When the
// judge is unavailable or answers badly, a keyword-overlap ranker answers
// instead, so selection never fails.
package toolscope

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"toolscope/internal/app"
	"toolscope/internal/domain"
	"toolscope/internal/infra/mcpsource"
	"toolscope/internal/infra/normalizer"
	"toolscope/internal/infra/ranker"
)

type (
	Config                 = domain.SelectorConfig
	Selector               = app.Selector
	Selection              = domain.Selection
	ToolSelection          = domain.ToolSelection
	Provenance             = domain.Provenance
	HistoryMessage         = domain.HistoryMessage
	ToolRecord             = domain.ToolRecord
	Parameter              = domain.Parameter
	ParameterKind          = domain.ParameterKind
	ToolOwner              = domain.ToolOwner
	ToolEntry              = domain.ToolEntry
	StaticOwner            = domain.StaticOwner
	Callable               = domain.Callable
	Function               = domain.Function
	FunctionDescriptor     = domain.FunctionDescriptor
	FunctionProvider       = domain.FunctionProvider
	GroupedProvider        = domain.GroupedProvider
	NamedToolkit           = domain.NamedToolkit
	SelfDescribingFunction = domain.SelfDescribingFunction
	BareCallable           = domain.BareCallable
	Judge                  = domain.Judge
	JudgeFunc              = domain.JudgeFunc
	JudgeRequest           = domain.JudgeRequest
	JudgeResponse          = domain.JudgeResponse
	Error                  = domain.Error
	MCPProvider            = mcpsource.Provider
	NamespaceStrategy      = mcpsource.NamespaceStrategy
)

const (
	ProvenancePrimary  = domain.ProvenancePrimary
	ProvenanceFallback = domain.ProvenanceFallback
	NamespaceFlat      = mcpsource.NamespaceFlat
	NamespacePrefix    = mcpsource.NamespacePrefix
)

var (
	ErrMissingCredentials  = domain.ErrMissingCredentials
	ErrRankingFailed       = domain.ErrRankingFailed
	ErrInvalidSelection    = domain.ErrInvalidSelection
	ErrUnsupportedProvider = domain.ErrUnsupportedProvider
	ErrUnsupportedTool     = domain.ErrUnsupportedTool
)

// Options carries optional collaborators for New.
type Options struct {
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Registerer receives the selector metrics; nil disables them.
	Registerer prometheus.Registerer
	// Judge replaces the judge built from Config.Provider.
	Judge Judge
}

// DefaultConfig returns the stock selector configuration.
func DefaultConfig() Config {
	return domain.DefaultSelectorConfig()
}

// New builds a Selector. Without opts.Judge, the judge for cfg.Provider is
// created here and missing credentials are reported as ErrMissingCredentials.
func New(ctx context.Context, cfg Config, opts Options) (*Selector, error) {
	logging := app.LoggingConfig{Logger: opts.Logger}
	if opts.Judge == nil {
		return app.InitializeSelector(ctx, cfg, logging, opts.Registerer)
	}
	logger := app.NewLogger(logging)
	metrics := app.NewMetrics(opts.Registerer)
	return app.NewSelector(app.SelectorOptions{
		Catalogs: app.NewNormalizer(logger, metrics, app.NewCatalogCache()),
		Ranker:   app.NewRanker(opts.Judge, metrics, logger),
		Config:   cfg,
		Metrics:  metrics,
		Logger:   logger,
	})
}

// NewOffline builds a Selector that always uses the keyword fallback.
func NewOffline(cfg Config, opts Options) (*Selector, error) {
	return app.InitializeOfflineSelector(cfg, app.LoggingConfig{Logger: opts.Logger}, opts.Registerer)
}

// NewOwnerKey mints a unique owner key.
func NewOwnerKey() string {
	return domain.NewOwnerKey()
}

// Normalize returns the tool records of owner without caching.
func Normalize(owner ToolOwner) []ToolRecord {
	return normalizer.New(nil, nil, nil).Normalize(owner)
}

// FallbackRank scores catalog by keyword overlap with message.
func FallbackRank(message string, catalog []ToolRecord, maxTools int) []ToolSelection {
	return ranker.FallbackRank(message, catalog, maxTools)
}

// NewMCPProvider returns an empty provider for tools listed from MCP sessions.
func NewMCPProvider(strategy NamespaceStrategy, logger *zap.Logger) *MCPProvider {
	return mcpsource.NewProvider(strategy, logger)
}
