package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/daodelegate/web/config"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("it applies defaults", func(t *testing.T) {
		t.Parallel()

		// Act
		cfg, err := config.Parse(map[string]string{
			"TOKEN_ADDRESS": "0x00000000000000000000000000000000000070c3",
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.MaxDepth)
		assert.Equal(t, 8, cfg.HardLimit)
		assert.Equal(t, 30*time.Second, cfg.PowerCacheTTL)
		assert.Equal(t, 5*time.Minute, cfg.CapabilityCacheTTL)
		assert.Equal(t, uint64(2), cfg.RPCRetries)
		assert.Empty(t, cfg.WatchAddresses)
	})

	t.Run("it splits the watch list", func(t *testing.T) {
		t.Parallel()

		// Act
		cfg, err := config.Parse(map[string]string{
			"TOKEN_ADDRESS": "0x00000000000000000000000000000000000070c3",
			"MONITOR_WATCH": "0x01,0x02",
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"0x01", "0x02"}, cfg.WatchAddresses)
	})

	t.Run("it requires the token address", func(t *testing.T) {
		t.Parallel()

		_, err := config.Parse(map[string]string{})

		assert.Error(t, err)
	})
}
