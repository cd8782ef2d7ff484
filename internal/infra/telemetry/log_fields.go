package telemetry

import (
	"time"

	"go.uber.org/zap"

	"toolscope/internal/domain"
)

const (
	FieldEvent       = "event"
	FieldOwnerKey    = "owner_key"
	FieldProvenance  = "provenance"
	FieldProvider    = "provider"
	FieldModel       = "model"
	FieldToolName    = "tool_name"
	FieldCatalogSize = "catalog_size"
	FieldDurationMs  = "duration_ms"
	FieldRequestID   = "request_id"
	FieldTraceID     = "trace_id"
	FieldSpanID      = "span_id"
)

const (
	EventNormalizeSkip      = "normalize_skip"
	EventDuplicateTool      = "duplicate_tool"
	EventCatalogBuilt       = "catalog_built"
	EventRankSuccess        = "rank_success"
	EventRankFailure        = "rank_failure"
	EventFallback           = "fallback"
	EventCatalogInvalidated = "catalog_invalidated"
	EventCatalogReload      = "catalog_reload"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func OwnerKeyField(key string) zap.Field {
	return zap.String(FieldOwnerKey, key)
}

func ProvenanceField(provenance domain.Provenance) zap.Field {
	return zap.String(FieldProvenance, string(provenance))
}

func ProviderField(provider string) zap.Field {
	return zap.String(FieldProvider, provider)
}

func ModelField(model string) zap.Field {
	return zap.String(FieldModel, model)
}

func ToolNameField(name string) zap.Field {
	return zap.String(FieldToolName, name)
}

func CatalogSizeField(size int) zap.Field {
	return zap.Int(FieldCatalogSize, size)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
