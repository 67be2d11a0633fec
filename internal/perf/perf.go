// Package perf records OpenTelemetry spans in memory so a run can be inspected or exported.
package perf

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/meza/manifest-fetcher"

type Config struct {
	Enabled bool
}

var (
	stateMu  sync.RWMutex
	provider *sdktrace.TracerProvider
	exporter *spanExporter
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer(tracerName)
)

// Init installs a recording tracer when cfg.Enabled is set. Calling it again replaces the previous provider.
func Init(cfg Config) error {
	stateMu.Lock()
	defer stateMu.Unlock()

	if provider != nil {
		if err := provider.Shutdown(context.Background()); err != nil {
			return err
		}
		provider = nil
		exporter = nil
	}

	if !cfg.Enabled {
		tracer = noop.NewTracerProvider().Tracer(tracerName)
		return nil
	}

	exporter = newSpanExporter()
	provider = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	tracer = provider.Tracer(tracerName)
	return nil
}

// Reset drops the recording provider and every captured span.
func Reset() {
	_ = Init(Config{Enabled: false})
}

func Enabled() bool {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return provider != nil
}

// Shutdown flushes the provider. Spans stay readable until Reset.
func Shutdown(ctx context.Context) error {
	stateMu.RLock()
	current := provider
	stateMu.RUnlock()
	if current == nil {
		return nil
	}
	return current.ForceFlush(ctx)
}

type spanConfig struct {
	attributes []attribute.KeyValue
}

type SpanOption func(*spanConfig)

func WithAttributes(attrs ...attribute.KeyValue) SpanOption {
	return func(config *spanConfig) {
		config.attributes = append(config.attributes, attrs...)
	}
}

type Span struct {
	span trace.Span
}

func (span *Span) End() {
	if span == nil || span.span == nil {
		return
	}
	span.span.End()
}

func (span *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if span == nil || span.span == nil {
		return
	}
	span.span.SetAttributes(attrs...)
}

func (span *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	if span == nil || span.span == nil {
		return
	}
	span.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	config := spanConfig{}
	for _, opt := range opts {
		opt(&config)
	}

	stateMu.RLock()
	current := tracer
	stateMu.RUnlock()

	ctx, span := current.Start(ctx, name,
		trace.WithAttributes(config.attributes...),
	)
	return ctx, &Span{span: span}
}

// SnapshotSpans returns every finished span. It returns nil when recording is disabled.
func SnapshotSpans() ([]sdktrace.ReadOnlySpan, error) {
	stateMu.RLock()
	current := exporter
	stateMu.RUnlock()
	if current == nil {
		return nil, nil
	}
	return current.Snapshot(), nil
}

type spanExporter struct {
	mu    sync.Mutex
	spans []sdktrace.ReadOnlySpan
}

func newSpanExporter() *spanExporter {
	return &spanExporter{spans: make([]sdktrace.ReadOnlySpan, 0)}
}

func (recorder *spanExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.spans = append(recorder.spans, spans...)
	return nil
}

func (recorder *spanExporter) Shutdown(context.Context) error {
	return nil
}

func (recorder *spanExporter) Snapshot() []sdktrace.ReadOnlySpan {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	out := make([]sdktrace.ReadOnlySpan, len(recorder.spans))
	copy(out, recorder.spans)
	return out
}
