package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DefaultAgentHost(t *testing.T) {
	cfg := Config{
		AgentHost:   "", // Empty should use default
		Environment: "test",
		ServiceName: "test-service",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
}

func TestSetup_AgentUnavailable_GracefulDegradation(t *testing.T) {
	// Point to a non-existent agent. Exporter creation may succeed but spans
	// will fail to export silently; setup itself must not fail.
	cfg := Config{
		AgentHost:   "localhost:99999",
		Environment: "test",
		ServiceName: "graceful-test",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
}

func TestDefaultAgentHost_Value(t *testing.T) {
	assert.Equal(t, "localhost:4318", DefaultAgentHost)
}
