package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"quill/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func restoreTracing(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		Tracer = otel.Tracer(ServiceName)
	})
}

func TestInitTracing_Disabled(t *testing.T) {
	restoreTracing(t)

	shutdown, err := InitTracing(context.Background(), &config.Config{}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_StdoutExportsServiceSpans(t *testing.T) {
	restoreTracing(t)
	var out bytes.Buffer

	shutdown, err := initTracing(context.Background(), &config.Config{
		Env:             "test",
		TracingEnabled:  true,
		TracingExporter: "stdout",
	}, "test", &out)
	require.NoError(t, err)

	_, span := StartServiceSpan(context.Background(), "PostService", "CreatePost")
	EndSpan(span, errors.New("boom"))

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, out.String(), "PostService.CreatePost")
	assert.Contains(t, out.String(), "boom")
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	restoreTracing(t)

	_, err := InitTracing(context.Background(), &config.Config{
		TracingEnabled:  true,
		TracingExporter: "zipkin",
	}, "test")
	assert.ErrorContains(t, err, "unsupported TRACING_EXPORTER")
}
