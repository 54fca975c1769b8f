package memdomain

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"memdomain/internal/memdomain/metrics"
	"memdomain/pkg/platform/sentinel"
)

// Engine invokes a domain's translate and fetch capabilities on behalf of
// consumers. It holds no per-call state: translate is a synchronous
// pass-through and fetch only wraps the completion notifier for
// instrumentation. Provider status codes are returned verbatim, never
// reinterpreted or masked.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(e *Engine)

// WithLogger attaches a logger for invocation diagnostics.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine constructs an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{tracer: otel.Tracer("memdomain")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Translate re-describes the byte range [addr, addr+length) of srcDomain's
// address space in dstDomain's scheme by invoking srcDomain's translate
// capability synchronously. No data moves. Fails with ErrNotSupported when the
// capability is unset; otherwise the provider's result and error pass through
// unchanged, so repeated calls with identical inputs against a pure provider
// yield equal results.
func (e *Engine) Translate(ctx context.Context, srcDomain *Domain, srcDomainCtx any,
	dstDomain *Domain, dstDomainCtx *TranslationContext,
	addr, length uint64) (*TranslationResult, error) {

	ctx, span := e.tracer.Start(ctx, "memdomain.Translate", trace.WithAttributes(
		attribute.String("memdomain.src_device_id", srcDomain.DeviceID()),
		attribute.String("memdomain.dst_device_type", dstDomain.DeviceType().String()),
		attribute.Int64("memdomain.length", int64(length)),
	))
	defer span.End()

	if srcDomain.translate == nil {
		if e.metrics != nil {
			e.metrics.IncrementTranslations("unsupported")
		}
		return nil, fmt.Errorf("translate on domain %q: %w", srcDomain.DeviceID(), sentinel.ErrNotSupported)
	}

	result, err := srcDomain.translate(ctx, srcDomain, srcDomainCtx, dstDomain, dstDomainCtx, addr, length)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncrementTranslations("error")
		}
		if e.logger != nil {
			e.logger.WarnContext(ctx, "translation failed",
				"src_device_id", srcDomain.DeviceID(),
				"dst_device_id", dstDomain.DeviceID(),
				"error", err.Error(),
			)
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.IncrementTranslations("ok")
	}
	return result, nil
}

// Fetch starts an asynchronous copy of the bytes described by src in
// srcDomain's address space into the caller-allocated dst buffers, via
// srcDomain's fetch capability.
//
// The synchronous return governs start success only; the copy outcome arrives
// solely through done. If the capability is unset or the provider reports a
// start failure, the call is terminal and done never fires. On a nil return
// the copy is in flight, dst is indeterminate until done fires exactly once
// with the terminal status, and the operation cannot be retracted.
func (e *Engine) Fetch(ctx context.Context, srcDomain *Domain, srcDomainCtx any,
	src []Descriptor, dst [][]byte, done FetchCompletion) error {

	ctx, span := e.tracer.Start(ctx, "memdomain.Fetch", trace.WithAttributes(
		attribute.String("memdomain.src_device_id", srcDomain.DeviceID()),
		attribute.Int64("memdomain.length", int64(TotalLen(src))),
	))

	if srcDomain.fetch == nil {
		span.End()
		if e.metrics != nil {
			e.metrics.IncrementFetchesStarted("unsupported")
		}
		return fmt.Errorf("fetch on domain %q: %w", srcDomain.DeviceID(), sentinel.ErrNotSupported)
	}

	opID := uuid.New()
	notified := done
	if done != nil {
		notified = e.observeCompletion(ctx, span, srcDomain.DeviceID(), opID, done)
	}

	err := srcDomain.fetch(ctx, srcDomain, srcDomainCtx, src, dst, notified)
	if err != nil {
		span.End()
		if e.metrics != nil {
			e.metrics.IncrementFetchesStarted("error")
		}
		if e.logger != nil {
			e.logger.WarnContext(ctx, "fetch start failed",
				"src_device_id", srcDomain.DeviceID(),
				"fetch_id", opID.String(),
				"error", err.Error(),
			)
		}
		return err
	}

	if e.metrics != nil {
		e.metrics.IncrementFetchesStarted("ok")
	}
	if done == nil {
		span.End()
	}
	return nil
}

// observeCompletion wraps the caller's notifier to record the completion edge.
// A provider firing the notifier more than once violates the fetch contract;
// the duplicate is dropped and logged rather than forwarded.
func (e *Engine) observeCompletion(ctx context.Context, span trace.Span, deviceID string,
	opID uuid.UUID, done FetchCompletion) FetchCompletion {

	var fired atomic.Bool
	return func(dst [][]byte, err error) {
		if !fired.CompareAndSwap(false, true) {
			if e.logger != nil {
				e.logger.ErrorContext(ctx, "fetch completion fired more than once",
					"src_device_id", deviceID,
					"fetch_id", opID.String(),
				)
			}
			return
		}

		status := "ok"
		if err != nil {
			status = "error"
		}
		span.SetAttributes(attribute.String("memdomain.completion", status))
		span.End()
		if e.metrics != nil {
			e.metrics.IncrementFetchCompletions(status)
		}
		if e.logger != nil && err != nil {
			e.logger.WarnContext(ctx, "fetch completed with error",
				"src_device_id", deviceID,
				"fetch_id", opID.String(),
				"error", err.Error(),
			)
		}

		done(dst, err)
	}
}
