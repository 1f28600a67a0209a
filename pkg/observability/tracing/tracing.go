package tracing

import (
    "context"
    "io"
    "os"
    "sync/atomic"

    "go.opentelemetry.io/otel"
    "go.opentelemetry.io/otel/attribute"
    "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
    sdktrace "go.opentelemetry.io/otel/sdk/trace"
    "go.opentelemetry.io/otel/trace"
)

var enabled atomic.Bool

// Setup configures a global tracer provider exporting to stdout when
// enable=true. It returns a shutdown function which should be deferred.
func Setup(enable bool) (func(context.Context) error, error) {
    if !enable {
        enabled.Store(false)
        return func(context.Context) error { return nil }, nil
    }
    return SetupWriter(os.Stdout)
}

// SetupWriter is Setup with spans exported as JSON to w.
func SetupWriter(w io.Writer) (func(context.Context) error, error) {
    exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
    if err != nil { return nil, err }
    tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
    otel.SetTracerProvider(tp)
    enabled.Store(true)
    return func(ctx context.Context) error {
        enabled.Store(false)
        return tp.Shutdown(ctx)
    }, nil
}

// StartSpan starts a span when tracing is enabled. Attributes are string
// pairs (key, value, key, value...); a trailing odd key is dropped.
func StartSpan(ctx context.Context, name string, kv ...string) (context.Context, func()) {
    if !enabled.Load() { return ctx, func() {} }
    var attrs []attribute.KeyValue
    for i := 0; i+1 < len(kv); i += 2 {
        attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
    }
    ctx, span := otel.Tracer("go-nodegeo").Start(ctx, name, trace.WithAttributes(attrs...))
    return ctx, func() { span.End() }
}
