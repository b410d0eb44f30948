package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/xaut-perp/internal/pricefeed"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, int64(DefaultChainID), cfg.ChainID)
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, pricefeed.Timeframe24h, cfg.Timeframe())
	assert.Equal(t, pricefeed.DefaultAssetID, cfg.AssetID)
	assert.Equal(t, 3, cfg.ReadRetries)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout())
	assert.Equal(t, "0x458D5E2e58d6a6D9C2C5cC9BAd51E1e0DDFfe56A", cfg.Contract().Hex())
	assert.Empty(t, cfg.WalletFile)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
rpc_url: https://rpc.example.org
chain_id: 5000
default_timeframe: 7d
wallet_file: wallets.yaml
log_max_size: 10
`)
	t.Setenv("XAUT_PERP_CHAIN_ID", "5003")
	t.Setenv("XAUT_PERP_WATCH_ADDRESS", "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	t.Setenv("XAUT_PERP_DEBUG_LOGGING", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", cfg.RPCURL)
	assert.Equal(t, int64(5003), cfg.ChainID, "env wins over file")
	assert.Equal(t, pricefeed.Timeframe7d, cfg.Timeframe())
	assert.Equal(t, "wallets.yaml", cfg.WalletFile)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", cfg.WatchAddress)
	assert.True(t, cfg.DebugLogging)
	assert.Equal(t, 10, cfg.LogFileConfig().MaxSize)
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"poll_interval_ms": 5000, "price_rps": 2}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 2.0, cfg.PriceRPS)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"bad rpc scheme":  "rpc_url: ws://rpc.example.org\n",
		"bad address":     "perp_address: 0x1234\n",
		"bad watch":       "watch_address: nope\n",
		"bad timeframe":   "default_timeframe: 1h\n",
		"fast polling":    "poll_interval_ms: 10\n",
		"negative rps":    "price_rps: -1\n",
		"negative retry":  "read_retries: -1\n",
		"zero chain":      "chain_id: 0\n",
		"empty asset":     "asset_id: \"\"\n",
		"bad price host":  "price_api_url: not a url\n",
		"zero rpc budget": "read_timeout_ms: 0\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "config.yaml", body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
