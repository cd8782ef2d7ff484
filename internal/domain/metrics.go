package domain

import "time"

// CacheOutcome labels a catalog cache lookup.
type CacheOutcome string

const (
	// CacheHit indicates the catalog was served from cache.
	CacheHit CacheOutcome = "hit"
	// CacheMiss indicates the catalog was normalized on demand.
	CacheMiss CacheOutcome = "miss"
)

// RankMetric captures one judge round trip.
type RankMetric struct {
	Provider string
	Model    string
	Duration time.Duration
	Tokens   int
	Err      error
}

// Metrics records operational metrics for tool selection.
type Metrics interface {
	ObserveRank(metric RankMetric)
	ObserveSelection(provenance Provenance, selected int, catalogSize int)
	ObserveCatalogCache(outcome CacheOutcome)
	ObserveNormalizeSkip(kind string)
	SetCachedCatalogs(count int)
}
