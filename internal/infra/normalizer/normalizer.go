package normalizer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"toolscope/internal/domain"
	"toolscope/internal/infra/hashutil"
	"toolscope/internal/infra/telemetry"
)

// Normalizer converts an owner's heterogeneous tool entries into tool records
// and caches the result per owner key.
type Normalizer struct {
	logger  *zap.Logger
	metrics domain.Metrics
	cache   *domain.CatalogCache
	now     func() time.Time
}

// New creates a Normalizer. A nil cache creates a private one.
func New(logger *zap.Logger, metrics domain.Metrics, cache *domain.CatalogCache) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if cache == nil {
		cache = domain.NewCatalogCache()
	}
	return &Normalizer{
		logger:  logger.Named("normalizer"),
		metrics: metrics,
		cache:   cache,
		now:     time.Now,
	}
}

// Normalize returns one record per usable tool of owner, in entry order.
func (n *Normalizer) Normalize(owner domain.ToolOwner) []domain.ToolRecord {
	return n.Snapshot(owner).Records
}

// Snapshot returns the cached catalog snapshot for owner, building it on first use.
// Owners with an empty key are normalized on every call.
func (n *Normalizer) Snapshot(owner domain.ToolOwner) domain.CatalogSnapshot {
	if owner == nil {
		return domain.CatalogSnapshot{Records: []domain.ToolRecord{}, BuiltAt: n.now()}
	}
	key := owner.Key()
	if key == "" {
		n.logger.Debug("owner has no key, skipping catalog cache")
		return n.build(owner)
	}

	snapshot, hit, _ := n.cache.GetOrBuild(key, func() (domain.CatalogSnapshot, error) {
		return n.build(owner), nil
	})
	if hit {
		n.metrics.ObserveCatalogCache(domain.CacheHit)
	} else {
		n.metrics.ObserveCatalogCache(domain.CacheMiss)
		n.metrics.SetCachedCatalogs(n.cache.Len())
	}
	return snapshot
}

// ClearCache drops every cached catalog.
func (n *Normalizer) ClearCache() {
	keys := n.cache.Keys()
	n.cache.Clear()
	n.metrics.SetCachedCatalogs(0)
	n.logger.Debug("catalog cache cleared",
		telemetry.EventField(telemetry.EventCatalogInvalidated),
		zap.Strings("owner_keys", keys),
	)
}

// Invalidate drops the cached catalog of a single owner.
func (n *Normalizer) Invalidate(key string) {
	n.cache.Invalidate(key)
	n.metrics.SetCachedCatalogs(n.cache.Len())
	n.logger.Debug("catalog invalidated", telemetry.EventField(telemetry.EventCatalogInvalidated), telemetry.OwnerKeyField(key))
}

func (n *Normalizer) build(owner domain.ToolOwner) domain.CatalogSnapshot {
	key := owner.Key()
	records := make([]domain.ToolRecord, 0)
	seen := make(map[string]struct{})

	add := func(record domain.ToolRecord) {
		if _, dup := seen[record.Name]; dup {
			n.logger.Warn("duplicate tool name",
				telemetry.EventField(telemetry.EventDuplicateTool),
				telemetry.OwnerKeyField(key),
				telemetry.ToolNameField(record.Name),
			)
		}
		seen[record.Name] = struct{}{}
		records = append(records, record)
	}

	for idx, entry := range owner.Tools() {
		n.collect(key, idx, entry, add)
	}

	snapshot := domain.CatalogSnapshot{
		Records: records,
		ETag:    hashutil.CatalogETag(n.logger, records),
		BuiltAt: n.now(),
	}
	n.logger.Debug("catalog built",
		telemetry.EventField(telemetry.EventCatalogBuilt),
		telemetry.OwnerKeyField(key),
		telemetry.CatalogSizeField(len(records)),
	)
	return snapshot
}

func (n *Normalizer) collect(key string, idx int, entry domain.ToolEntry, add func(domain.ToolRecord)) {
	switch e := entry.(type) {
	case domain.GroupedProvider:
		n.collectProvider(key, idx, e.Provider, add)
	case *domain.GroupedProvider:
		if e == nil {
			n.skip(key, idx, "nil_entry", fmt.Errorf("%w: nil grouped provider", domain.ErrUnsupportedTool))
			return
		}
		n.collectProvider(key, idx, e.Provider, add)
	case domain.NamedToolkit:
		n.collectToolkit(key, idx, e, add)
	case *domain.NamedToolkit:
		if e == nil {
			n.skip(key, idx, "nil_entry", fmt.Errorf("%w: nil toolkit", domain.ErrUnsupportedTool))
			return
		}
		n.collectToolkit(key, idx, *e, add)
	case domain.SelfDescribingFunction:
		n.collectFunction(key, idx, e.Function, domain.DefaultToolkit, add)
	case *domain.SelfDescribingFunction:
		if e == nil {
			n.skip(key, idx, "nil_entry", fmt.Errorf("%w: nil function entry", domain.ErrUnsupportedTool))
			return
		}
		n.collectFunction(key, idx, e.Function, domain.DefaultToolkit, add)
	case domain.BareCallable:
		n.collectCallable(key, idx, e.Callable, domain.DefaultToolkit, add)
	case *domain.BareCallable:
		if e == nil {
			n.skip(key, idx, "nil_entry", fmt.Errorf("%w: nil callable entry", domain.ErrUnsupportedTool))
			return
		}
		n.collectCallable(key, idx, e.Callable, domain.DefaultToolkit, add)
	default:
		n.skip(key, idx, "unknown_entry", fmt.Errorf("%w: %T", domain.ErrUnsupportedTool, entry))
	}
}

func (n *Normalizer) collectProvider(key string, idx int, provider domain.FunctionProvider, add func(domain.ToolRecord)) {
	if provider == nil {
		n.skip(key, idx, "nil_provider", fmt.Errorf("%w: grouped provider without functions", domain.ErrUnsupportedTool))
		return
	}
	for _, fn := range provider.Functions() {
		n.collectFunction(key, idx, fn, domain.MCPToolkit, add)
	}
}

func (n *Normalizer) collectToolkit(key string, idx int, toolkit domain.NamedToolkit, add func(domain.ToolRecord)) {
	for _, member := range toolkit.Members {
		n.collectCallable(key, idx, member, toolkit.Name, add)
	}
	for _, fn := range toolkit.Functions {
		n.collectFunction(key, idx, fn, toolkit.Name, add)
	}
}

func (n *Normalizer) collectFunction(key string, idx int, fn domain.Function, toolkit string, add func(domain.ToolRecord)) {
	record, err := recordFromFunction(fn, toolkit)
	if err != nil {
		n.skip(key, idx, "function", err)
		return
	}
	add(record)
}

func (n *Normalizer) collectCallable(key string, idx int, callable domain.Callable, toolkit string, add func(domain.ToolRecord)) {
	record, err := recordFromCallable(callable, toolkit)
	if err != nil {
		n.skip(key, idx, "callable", err)
		return
	}
	add(record)
}

func (n *Normalizer) skip(key string, idx int, kind string, err error) {
	n.metrics.ObserveNormalizeSkip(kind)
	n.logger.Warn("skipping tool entry",
		telemetry.EventField(telemetry.EventNormalizeSkip),
		telemetry.OwnerKeyField(key),
		zap.Int("entry_index", idx),
		zap.String("kind", kind),
		zap.Error(err),
	)
}
