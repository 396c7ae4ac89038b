package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetupDisabled(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), "", "billsplitter-web")
	require.NoError(t, err)

	_, isNoop := tp.(noop.TracerProvider)
	assert.True(t, isNoop, "expected no-op provider, got %T", tp)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpoint(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), "localhost:4318", "billsplitter-web")
	require.NoError(t, err)

	_, isSDK := tp.(*sdktrace.TracerProvider)
	assert.True(t, isSDK, "expected SDK provider, got %T", tp)
	assert.NoError(t, shutdown(context.Background()))
}
