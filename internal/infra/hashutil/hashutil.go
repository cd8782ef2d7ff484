package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"toolscope/internal/domain"
)

// HashToolRecords returns a deterministic hash for an ordered record list or an error.
func HashToolRecords(records []domain.ToolRecord) (string, error) {
	hasher := sha256.New()
	for i, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return "", fmt.Errorf("marshal tool record %d: %w", i, err)
		}
		_, _ = hasher.Write(raw)
		_, _ = hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashJSON returns the hex sha256 of the JSON encoding of value.
func HashJSON(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// CatalogETag returns an ETag for a normalized catalog and logs on failure.
func CatalogETag(logger *zap.Logger, records []domain.ToolRecord) string {
	return hashWithLogger(logger, "catalog", func() (string, error) {
		return HashToolRecords(records)
	})
}

func hashWithLogger(logger *zap.Logger, label string, fn func() (string, error)) string {
	etag, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn(fmt.Sprintf("%s hash failed", label), zap.Error(err))
		}
		return ""
	}
	return etag
}
