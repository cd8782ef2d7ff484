package ranker

import (
	"sort"
	"strings"

	"toolscope/internal/domain"
)

// FallbackRank scores tools by how many distinct message words occur as substrings
// of the lower-cased "name docstring" text. It never fails and is deterministic:
// ties keep catalog order. Each matched word is worth two relevance points, capped at 10.
func FallbackRank(message string, catalog []domain.ToolRecord, maxTools int) []domain.ToolSelection {
	if maxTools <= 0 || len(catalog) == 0 {
		return []domain.ToolSelection{}
	}

	words := distinctWords(message)
	type scored struct {
		record domain.ToolRecord
		score  int
	}
	candidates := make([]scored, 0, len(catalog))
	for _, record := range catalog {
		text := strings.ToLower(record.Name + " " + record.Docstring)
		score := 0
		for _, word := range words {
			if strings.Contains(text, word) {
				score++
			}
		}
		candidates = append(candidates, scored{record: record, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxTools {
		candidates = candidates[:maxTools]
	}

	result := make([]domain.ToolSelection, 0, len(candidates))
	for _, c := range candidates {
		result = append(result, domain.ToolSelection{
			Name:      c.record.Name,
			Toolkit:   domain.ToolkitOrDefault(c.record.Toolkit),
			Relevance: domain.ClampRelevance(c.score * 2),
		})
	}
	return result
}

func distinctWords(message string) []string {
	fields := strings.Fields(strings.ToLower(message))
	seen := make(map[string]struct{}, len(fields))
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		words = append(words, field)
	}
	return words
}
