package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "roster", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_WithEndpoint(t *testing.T) {
	ctx := context.Background()
	// The exporter connects lazily, so nothing needs to listen here
	shutdown, err := Setup(ctx, "", "http://127.0.0.1:4318")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithTimeout(ctx, 0)
	defer cancel()
	_ = shutdown(ctx)
}
