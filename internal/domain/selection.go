package domain

import (
	"errors"
	"fmt"
)

// ToolSelection is one ranked tool returned to the agent.
type ToolSelection struct {
	Name      string `json:"name" jsonschema:"The name of the tool/function"`
	Toolkit   string `json:"toolkit" jsonschema:"The toolkit to which the tool/function belongs"`
	Relevance int    `json:"relevance" jsonschema:"A score indicating the relevance of the tool/function out of 10"`
}

// Validate checks the selection against the relevance range and, when catalog is
// non-nil, against the set of known tool names.
func (s ToolSelection) Validate(catalog map[string]ToolRecord) error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty tool name", ErrInvalidSelection)
	}
	if s.Relevance < MinRelevance || s.Relevance > MaxRelevance {
		return fmt.Errorf("%w: tool %q relevance %d outside [%d,%d]", ErrInvalidSelection, s.Name, s.Relevance, MinRelevance, MaxRelevance)
	}
	if catalog != nil {
		if _, ok := catalog[s.Name]; !ok {
			return fmt.Errorf("%w: unknown tool %q", ErrInvalidSelection, s.Name)
		}
	}
	return nil
}

// ClampRelevance bounds a raw score into [MinRelevance, MaxRelevance].
func ClampRelevance(score int) int {
	if score < MinRelevance {
		return MinRelevance
	}
	if score > MaxRelevance {
		return MaxRelevance
	}
	return score
}

// Provenance records which ranker produced a selection.
type Provenance string

const (
	// ProvenancePrimary marks results from the relevance judge.
	ProvenancePrimary Provenance = "primary"
	// ProvenanceFallback marks results from the lexical fallback.
	ProvenanceFallback Provenance = "fallback"
)

// Selection is the full outcome of a selection request.
type Selection struct {
	Tools       []ToolSelection `json:"tools"`
	Provenance  Provenance      `json:"provenance"`
	RankError   error           `json:"-"`
	OwnerKey    string          `json:"ownerKey"`
	CatalogSize int             `json:"catalogSize"`
}

// Degraded reports whether the fallback ranker produced the result.
func (s Selection) Degraded() bool {
	return s.Provenance == ProvenanceFallback
}

// HistoryMessage is an opaque conversation record forwarded to the judge as-is.
type HistoryMessage map[string]any

// CatalogIndex maps tool names to their records. The first record of a
// duplicated name wins.
func CatalogIndex(records []ToolRecord) map[string]ToolRecord {
	index := make(map[string]ToolRecord, len(records))
	for _, record := range records {
		if _, ok := index[record.Name]; ok {
			continue
		}
		index[record.Name] = record
	}
	return index
}

// IsRankingFailure reports whether err is a ranking failure.
func IsRankingFailure(err error) bool {
	return errors.Is(err, ErrRankingFailed)
}
