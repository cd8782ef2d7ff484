package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"toolscope/internal/domain"
	"toolscope/internal/infra/ranker"
	"toolscope/internal/infra/telemetry"
)

const opSelect = "app.Selector.Select"

// CatalogSource turns owners into normalized, cached catalogs.
type CatalogSource interface {
	Snapshot(owner domain.ToolOwner) domain.CatalogSnapshot
	ClearCache()
	Invalidate(key string)
}

// RelevanceRanker scores catalog tools against a request.
type RelevanceRanker interface {
	Rank(
		ctx context.Context,
		message string,
		history []domain.HistoryMessage,
		catalog []domain.ToolRecord,
		maxTools int,
		minTools int,
	) ([]domain.ToolSelection, error)
}

// Selector picks the tools of an owner that are relevant to a user message.
// It is safe for concurrent use.
type Selector struct {
	catalogs CatalogSource
	ranker   RelevanceRanker
	cfg      domain.SelectorConfig
	metrics  domain.Metrics
	logger   *zap.Logger
}

// SelectorOptions configures a Selector. A nil Ranker selects with the keyword
// fallback only.
type SelectorOptions struct {
	Catalogs CatalogSource
	Ranker   RelevanceRanker
	Config   domain.SelectorConfig
	Metrics  domain.Metrics
	Logger   *zap.Logger
}

func NewSelector(opts SelectorOptions) (*Selector, error) {
	if opts.Catalogs == nil {
		return nil, domain.E(domain.CodeConfiguration, "app.NewSelector", "catalog source is required", nil)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config
	if cfg.MaxTools <= 0 {
		cfg.MaxTools = domain.DefaultMaxTools
	}
	if cfg.MinTools < 0 {
		cfg.MinTools = 0
	}
	return &Selector{
		catalogs: opts.Catalogs,
		ranker:   opts.Ranker,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.Named("selector"),
	}, nil
}

// Config returns the effective selector configuration.
func (s *Selector) Config() domain.SelectorConfig {
	return s.cfg
}

// SelectTools returns the tools of owner ranked by relevance to message. It never
// fails: when ranking is unavailable the keyword fallback answers instead.
func (s *Selector) SelectTools(
	ctx context.Context,
	owner domain.ToolOwner,
	message string,
	history []domain.HistoryMessage,
	maxTools int,
) []domain.ToolSelection {
	return s.Select(ctx, owner, message, history, maxTools).Tools
}

// Select is SelectTools with provenance. A non-positive maxTools uses the
// configured default.
func (s *Selector) Select(
	ctx context.Context,
	owner domain.ToolOwner,
	message string,
	history []domain.HistoryMessage,
	maxTools int,
) domain.Selection {
	if ctx == nil {
		ctx = context.Background()
	}
	ownerKey := ""
	if owner != nil {
		ownerKey = owner.Key()
	}
	ctx, meta := telemetry.BeginSelection(ctx, ownerKey)
	logger := s.logger.With(meta.Fields()...)

	if history == nil {
		history = []domain.HistoryMessage{}
	}
	if maxTools <= 0 {
		maxTools = s.cfg.MaxTools
	}

	snapshot := s.catalogs.Snapshot(owner)
	catalog := snapshot.Records
	selection := domain.Selection{
		Tools:       []domain.ToolSelection{},
		Provenance:  domain.ProvenancePrimary,
		OwnerKey:    ownerKey,
		CatalogSize: len(catalog),
	}
	if len(catalog) == 0 {
		s.metrics.ObserveSelection(selection.Provenance, 0, 0)
		return selection
	}

	tools, err := s.rank(ctx, message, history, catalog, maxTools)
	if err != nil {
		if s.ranker != nil {
			logger.Error("relevance ranking failed, using keyword fallback",
				telemetry.EventField(telemetry.EventFallback),
				telemetry.CatalogSizeField(len(catalog)),
				zap.Int("max_tools", maxTools),
				zap.Error(err),
			)
		}
		tools = ranker.FallbackRank(message, catalog, maxTools)
		selection.Provenance = domain.ProvenanceFallback
		selection.RankError = err
	}
	selection.Tools = tools

	s.metrics.ObserveSelection(selection.Provenance, len(tools), len(catalog))
	logger.Debug("tools selected",
		telemetry.ProvenanceField(selection.Provenance),
		telemetry.CatalogSizeField(len(catalog)),
		zap.Int("selected", len(tools)),
	)
	return selection
}

func (s *Selector) rank(
	ctx context.Context,
	message string,
	history []domain.HistoryMessage,
	catalog []domain.ToolRecord,
	maxTools int,
) (tools []domain.ToolSelection, err error) {
	if s.ranker == nil {
		return nil, domain.RankingFailure(opSelect, fmt.Errorf("no relevance ranker configured"))
	}
	if s.cfg.RankTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RankTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			tools = nil
			err = domain.RankingFailure(opSelect, fmt.Errorf("ranker panic: %v", r))
		}
	}()
	return s.ranker.Rank(ctx, message, history, catalog, maxTools, s.cfg.MinTools)
}

// ClearCache drops every cached catalog.
func (s *Selector) ClearCache() {
	s.catalogs.ClearCache()
}

// Invalidate drops the cached catalog of one owner.
func (s *Selector) Invalidate(ownerKey string) {
	s.catalogs.Invalidate(ownerKey)
}
