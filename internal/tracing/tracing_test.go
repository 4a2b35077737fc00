package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "transport.send")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestFileExporterWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	p, err := NewProvider(Config{Enabled: true, Exporter: "file", FilePath: path, ServiceName: "worker"})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "transport.send")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "transport.send")
}

func TestProviderConfigErrors(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "file"})
	assert.Error(t, err)

	_, err = NewProvider(Config{Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}
