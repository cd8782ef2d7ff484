package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type selectionContextKey struct{}

// SelectionMeta identifies one selection request in logs.
type SelectionMeta struct {
	RequestID string
	OwnerKey  string
	TraceID   string
	SpanID    string
}

func (m SelectionMeta) IsZero() bool {
	return m.RequestID == "" && m.OwnerKey == "" && m.TraceID == "" && m.SpanID == ""
}

// Fields renders the non-empty identifiers as zap fields.
func (m SelectionMeta) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 4)
	if m.RequestID != "" {
		fields = append(fields, RequestIDField(m.RequestID))
	}
	if m.OwnerKey != "" {
		fields = append(fields, OwnerKeyField(m.OwnerKey))
	}
	if m.TraceID != "" {
		fields = append(fields, TraceIDField(m.TraceID))
	}
	if m.SpanID != "" {
		fields = append(fields, SpanIDField(m.SpanID))
	}
	return fields
}

func WithSelectionMeta(ctx context.Context, meta SelectionMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meta.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, selectionContextKey{}, meta)
}

func SelectionMetaFromContext(ctx context.Context) (SelectionMeta, bool) {
	if ctx == nil {
		return SelectionMeta{}, false
	}
	meta, ok := ctx.Value(selectionContextKey{}).(SelectionMeta)
	return meta, ok && !meta.IsZero()
}

func NewRequestID() string {
	return uuid.NewString()
}

func TraceSpanFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}

// BeginSelection attaches selection metadata for ownerKey to ctx. A request id
// already present in ctx is reused; otherwise a new one is minted.
func BeginSelection(ctx context.Context, ownerKey string) (context.Context, SelectionMeta) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestID := ""
	if existing, ok := SelectionMetaFromContext(ctx); ok {
		requestID = existing.RequestID
	}
	if requestID == "" {
		requestID = NewRequestID()
	}
	traceID, spanID := TraceSpanFromContext(ctx)
	meta := SelectionMeta{
		RequestID: requestID,
		OwnerKey:  ownerKey,
		TraceID:   traceID,
		SpanID:    spanID,
	}
	return WithSelectionMeta(ctx, meta), meta
}

func LoggerWithSelection(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if logger == nil {
		logger = zap.NewNop()
	}
	meta, ok := SelectionMetaFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(meta.Fields()...)
}
