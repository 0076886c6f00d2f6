package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
	attrTree    = "tree"
)

// TracingHandler is an [slog.Handler] that stamps every record with the
// trace_id and span_id of the active span. The service, mode and env
// attributes are bound once so they stay top level under any group.
type TracingHandler struct {
	next slog.Handler
}

// NewTracingHandler wraps next with trace correlation and service metadata.
func NewTracingHandler(next slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	bound := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		bound = append(bound, slog.String(attrEnv, env))
	}

	return &TracingHandler{next: next.WithAttrs(bound)}
}

// Enabled reports whether next accepts level.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.next.Enabled(ctx, level)
}

// Handle appends the span identifiers found in ctx and forwards the record.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, spanCtx.TraceID().String()),
			slog.String(attrSpanID, spanCtx.SpanID().String()),
		)
	}

	if err := th.next.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs binds attrs on the wrapped handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{next: th.next.WithAttrs(attrs)}
}

// WithGroup opens a group on the wrapped handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{next: th.next.WithGroup(name)}
}

// TreeAttr renders the structural counters of a tree as a "tree" group.
// Zero fixup cases are left out.
func TreeAttr(stats rbtree.Stats) slog.Attr {
	attrs := []any{
		slog.Uint64("links", stats.Links),
		slog.Uint64("deletes", stats.Deletes),
		slog.Uint64("rotations", stats.Rotations),
		slog.Uint64("swaps", stats.Swaps),
	}

	cases := []struct {
		name  string
		count uint64
	}{
		{caseRedSibling, stats.RedSibling},
		{caseBlackNephews, stats.BlackNephews},
		{caseNearRedNephew, stats.NearRedNephew},
		{caseFarRedNephew, stats.FarRedNephew},
	}

	for _, fixup := range cases {
		if fixup.count > 0 {
			attrs = append(attrs, slog.Uint64(fixup.name, fixup.count))
		}
	}

	return slog.Group(attrTree, attrs...)
}
