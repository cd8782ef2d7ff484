package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"toolscope/internal/domain"
)

func TestCatalogETag(t *testing.T) {
	records := []domain.ToolRecord{
		{Name: "get_weather", Docstring: "Weather for a city", Toolkit: "default"},
		{Name: "send_email", Docstring: "Send an email", Toolkit: "default"},
	}

	first := CatalogETag(zap.NewNop(), records)
	assert.Len(t, first, 64)
	assert.Equal(t, first, CatalogETag(nil, records))

	reordered := []domain.ToolRecord{records[1], records[0]}
	assert.NotEqual(t, first, CatalogETag(zap.NewNop(), reordered))

	changed := domain.CloneToolRecords(records)
	changed[0].Docstring = "Forecast for a city"
	assert.NotEqual(t, first, CatalogETag(zap.NewNop(), changed))
}

func TestCatalogETagUnencodableDefault(t *testing.T) {
	records := []domain.ToolRecord{{
		Name:       "bad",
		Parameters: []domain.Parameter{{Name: "ch", Default: make(chan int), HasDefault: true}},
	}}
	assert.Empty(t, CatalogETag(zap.NewNop(), records))
}

func TestHashJSON(t *testing.T) {
	first, err := HashJSON(map[string]int{"a": 1, "b": 2})
	assert.NoError(t, err)
	second, err := HashJSON(map[string]int{"b": 2, "a": 1})
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = HashJSON(make(chan int))
	assert.Error(t, err)
}
