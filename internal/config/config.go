// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/xaut-perp/internal/logger"
	"github.com/rovshanmuradov/xaut-perp/internal/pricefeed"
)

type Config struct {
	RPCURL       string `mapstructure:"rpc_url"`
	ChainID      int64  `mapstructure:"chain_id"`
	PerpAddress  string `mapstructure:"perp_address"`
	WalletFile   string `mapstructure:"wallet_file"`
	WalletName   string `mapstructure:"wallet_name"`
	WatchAddress string `mapstructure:"watch_address"`

	PriceAPIURL      string  `mapstructure:"price_api_url"`
	AssetID          string  `mapstructure:"asset_id"`
	MarketSymbol     string  `mapstructure:"market_symbol"`
	PollIntervalMs   int     `mapstructure:"poll_interval_ms"`
	PriceRPS         float64 `mapstructure:"price_rps"`
	DefaultTimeframe string  `mapstructure:"default_timeframe"`
	ReadRetries      int     `mapstructure:"read_retries"`
	ReadTimeoutMs    int     `mapstructure:"read_timeout_ms"`

	DebugLogging  bool   `mapstructure:"debug_logging"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSize    int    `mapstructure:"log_max_size"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogMaxAge     int    `mapstructure:"log_max_age"`
	MetricsAddr   string `mapstructure:"metrics_addr"`
	JournalDir    string `mapstructure:"journal_dir"`
}

const (
	DefaultRPCURL         = "https://rpc.sepolia.mantle.xyz"
	DefaultChainID        = 5003
	DefaultPerpAddress    = "0x458D5E2e58d6a6D9C2C5cC9BAd51E1e0DDFfe56A"
	DefaultMarketSymbol   = "XAUT/USD"
	DefaultPollIntervalMs = 60000
	DefaultPriceRPS       = 0.5
	DefaultReadRetries    = 3
	DefaultReadTimeoutMs  = 10000
	DefaultJournalDir     = "logs"

	envPrefix = "XAUT_PERP"
)

// LoadConfig reads path (JSON or YAML), applies .env and XAUT_PERP_*
// environment overrides, and validates the result. An empty path skips the
// file and uses defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()

	fileCfg := logger.DefaultFileConfig()
	defaults := map[string]interface{}{
		"rpc_url":           DefaultRPCURL,
		"chain_id":          DefaultChainID,
		"perp_address":      DefaultPerpAddress,
		"price_api_url":     pricefeed.DefaultBaseURL,
		"asset_id":          pricefeed.DefaultAssetID,
		"market_symbol":     DefaultMarketSymbol,
		"poll_interval_ms":  DefaultPollIntervalMs,
		"price_rps":         DefaultPriceRPS,
		"default_timeframe": string(pricefeed.DefaultTimeframe),
		"read_retries":      DefaultReadRetries,
		"read_timeout_ms":   DefaultReadTimeoutMs,
		"log_file":          fileCfg.LogFile,
		"log_max_size":      fileCfg.MaxSize,
		"log_max_backups":   fileCfg.MaxBackups,
		"log_max_age":       fileCfg.MaxAge,
		"journal_dir":       DefaultJournalDir,

		// Keys without a default must still be registered so env overrides reach Unmarshal.
		"wallet_file":   "",
		"wallet_name":   "",
		"watch_address": "",
		"debug_logging": false,
		"metrics_addr":  "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if err := validateURLWithCache(cfg.PriceAPIURL, "http"); err != nil {
		return fmt.Errorf("invalid price_api_url: %w", err)
	}
	if cfg.ChainID <= 0 {
		return errors.New("invalid chain_id")
	}
	if !common.IsHexAddress(cfg.PerpAddress) {
		return errors.New("invalid perp_address")
	}
	if cfg.WatchAddress != "" && !common.IsHexAddress(cfg.WatchAddress) {
		return errors.New("invalid watch_address")
	}
	if cfg.AssetID == "" {
		return errors.New("asset_id is empty")
	}
	if _, err := pricefeed.ParseTimeframe(cfg.DefaultTimeframe); err != nil {
		return fmt.Errorf("invalid default_timeframe: %w", err)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollIntervalMs < 1000 {
		return errors.New("poll_interval_ms must be at least 1000")
	}
	if cfg.PriceRPS < 0 {
		return errors.New("invalid price_rps")
	}
	if cfg.ReadRetries < 0 {
		return errors.New("invalid read_retries")
	}
	if cfg.ReadTimeoutMs <= 0 {
		return errors.New("invalid read_timeout_ms")
	}
	if cfg.LogMaxSize < 0 || cfg.LogMaxBackups < 0 || cfg.LogMaxAge < 0 {
		return errors.New("invalid log rotation settings")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// PollInterval returns the market refresh period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// Timeframe returns the validated default chart timeframe.
func (c *Config) Timeframe() pricefeed.Timeframe {
	tf, err := pricefeed.ParseTimeframe(c.DefaultTimeframe)
	if err != nil {
		return pricefeed.DefaultTimeframe
	}
	return tf
}

// LogFileConfig returns the rotation settings for the JSON log file.
func (c *Config) LogFileConfig() logger.FileConfig {
	return logger.FileConfig{
		LogFile:    c.LogFile,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
		Compress:   true,
	}
}

// Contract returns the perp contract address.
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.PerpAddress)
}
