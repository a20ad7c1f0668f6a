package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/vrf/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfigWithHomePath(t.TempDir())
	require.NoError(t, cfg.Validate())

	params, err := cfg.Coordinator.Params()
	require.NoError(t, err)
	require.Equal(t, config.DefaultCoordinatorAddress, params.Address)
	require.Len(t, params.SeedKey, 32)

	// 0.25 LINK + 1 gwei * 100000 gas
	require.Equal(t, "250100000000000000", params.Fee(100000).String())
}

func TestManualFulfillRequiresHMACKey(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfigWithHomePath(t.TempDir())
	require.False(t, cfg.EnableManualFulfill)

	cfg.EnableManualFulfill = true
	require.ErrorContains(t, cfg.Validate(), "HMAC key is required")

	cfg.HMACKey = "secret"
	require.NoError(t, cfg.Validate())
}

func TestCoordinatorConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(cfg *config.CoordinatorConfig)
	}{
		{name: "zero address", modify: func(cfg *config.CoordinatorConfig) { cfg.Address = "0x0000000000000000000000000000000000000000" }},
		{name: "short seed", modify: func(cfg *config.CoordinatorConfig) { cfg.SeedKey = "abcd" }},
		{name: "bad base fee", modify: func(cfg *config.CoordinatorConfig) { cfg.BaseFee = "-1" }},
		{name: "bad gas price", modify: func(cfg *config.CoordinatorConfig) { cfg.GasPriceLink = "1.5" }},
		{name: "zero gas cap", modify: func(cfg *config.CoordinatorConfig) { cfg.MaxCallbackGasLimit = 0 }},
		{name: "too many confirmations", modify: func(cfg *config.CoordinatorConfig) { cfg.MinRequestConfirmations = 201 }},
		{name: "zero interval", modify: func(cfg *config.CoordinatorConfig) { cfg.FulfillmentInterval = 0 }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.DefaultCoordinatorConfig()
			tc.modify(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	homePath := t.TempDir()

	cfg := config.DefaultConfigWithHomePath(homePath)
	fileParser := flags.NewParser(cfg, flags.Default)
	err := flags.NewIniParser(fileParser).WriteFile(config.CfgFile(homePath), flags.IniIncludeDefaults)
	require.NoError(t, err)

	// registers the restore of the variable, godotenv only fills unset ones
	t.Setenv(config.HMACKeyEnv, "")
	require.NoError(t, os.Unsetenv(config.HMACKeyEnv))
	err = os.WriteFile(filepath.Join(homePath, ".env"), []byte("HMAC_KEY=from-env-file\n"), 0600)
	require.NoError(t, err)

	loaded, err := config.LoadConfig(homePath)
	require.NoError(t, err)
	require.Equal(t, "from-env-file", loaded.HMACKey)
	require.Equal(t, cfg.Coordinator.SeedKey, loaded.Coordinator.SeedKey)
}
