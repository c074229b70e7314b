// Package logger enriches slog records with identifiers carried by the context.
package logger

import (
	"context"
	"log/slog"

	"github.com/abgdnv/gocommerce/cart_service/pkg/web"
	"go.opentelemetry.io/otel/trace"
)

// Extractor returns one attribute taken from ctx, if present.
type Extractor func(ctx context.Context) (slog.Attr, bool)

// TraceID extracts the id of the active span.
func TraceID(ctx context.Context) (slog.Attr, bool) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return slog.Attr{}, false
	}
	return slog.String("trace_id", sc.TraceID().String()), true
}

// RequestID extracts the id set by web.RequestIDInjector.
func RequestID(ctx context.Context) (slog.Attr, bool) {
	id, ok := web.GetRequestID(ctx)
	if !ok || id == "" {
		return slog.Attr{}, false
	}
	return slog.String("request_id", id), true
}

// ContextHandler adds the attributes of its extractors to every record.
// TraceID and RequestID always run first.
type ContextHandler struct {
	slog.Handler
	extractors []Extractor
}

func NewContextHandler(handler slog.Handler, extra ...Extractor) *ContextHandler {
	extractors := append([]Extractor{TraceID, RequestID}, extra...)
	return &ContextHandler{Handler: handler, extractors: extractors}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, extract := range h.extractors {
		if attr, ok := extract(ctx); ok {
			r.AddAttrs(attr)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *ContextHandler) WithGroup(group string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(group), extractors: h.extractors}
}
