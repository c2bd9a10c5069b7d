package logging

import (
	"context"
	"log/slog"

	"noticiero/internal/services"
)

// Attribute keys shared across packages.
const (
	FieldComponent     = "component"
	FieldNoticieroID   = "noticiero_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	FieldSource        = "source" // feed name
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint" // operator's next step
	FieldImpact        = "impact"
)

// ContextFields returns the noticiero id, stage and correlation id carried by
// ctx, skipping any that are unset.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	add := func(key string, value string, ok bool) {
		if ok {
			fields = append(fields, slog.String(key, value))
		}
	}
	id, ok := services.NoticieroIDFromContext(ctx)
	add(FieldNoticieroID, id, ok)
	stage, ok := services.StageFromContext(ctx)
	add(FieldStage, stage, ok)
	rid, ok := services.RequestIDFromContext(ctx)
	add(FieldCorrelationID, rid, ok)
	return fields
}

// WithContext tags logger with ContextFields(ctx).
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(attrsToArgs(fields)...)
	}
	return logger
}
