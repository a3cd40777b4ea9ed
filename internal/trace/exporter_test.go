package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Console(t *testing.T) {
	buf := &bytes.Buffer{}
	p, err := NewProvider(ExporterTypeConsole, buf)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "Update")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "Update"`)
	assert.Contains(t, buf.String(), "kelock")
}

func TestNewProvider_Invalid(t *testing.T) {
	_, err := NewProvider(ExporterType("jaeger"), &bytes.Buffer{})
	require.Error(t, err)
}

func TestNewNoopProvider(t *testing.T) {
	p := NewNoopProvider()
	_, span := p.Tracer().Start(context.Background(), "Update")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, p.Shutdown(context.Background()))
}
