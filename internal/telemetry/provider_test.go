package telemetry_test

import (
	"context"
	"testing"

	"cluster-registration/internal/telemetry"

	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Run("Noop when endpoint empty", func(t *testing.T) {
		shutdown, err := telemetry.Setup(context.Background(), "", "test-service")
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	})

	t.Run("Provider flushes with unreachable endpoint", func(t *testing.T) {
		// 192.0.2.0/24 為文件保留位址，不會真的送出
		shutdown, err := telemetry.Setup(context.Background(), "http://192.0.2.1:4318", "test-service")
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	})
}
