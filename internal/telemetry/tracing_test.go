package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memorialnav/candle-ledger/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.Trace{}, "candled")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupEnabled(t *testing.T) {
	conf := config.Trace{Enabled: true, Endpoint: "http://127.0.0.1:4318", SampleRatio: 1}
	shutdown, err := Setup(context.Background(), conf, "candled")
	require.NoError(t, err)
	// nothing was recorded, so shutdown does not need the collector
	require.NoError(t, shutdown(context.Background()))
}
