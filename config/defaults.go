package config

import (
	"time"

	"github.com/Klingon-tech/cat721-cli/internal/spend"
	"github.com/Klingon-tech/cat721-cli/internal/tracker"
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Tracker: TrackerConfig{
			URL:     "http://127.0.0.1:3000",
			Timeout: tracker.DefaultTimeout,
		},
		RPC: RPCConfig{
			URL:     "http://127.0.0.1:8332",
			Timeout: 30 * time.Second,
		},
		Spend: SpendConfig{
			ResetThreshold: spend.DefaultResetThreshold,
		},
		Resource: ResourceConfig{
			ContentType: "image/png",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.URL = "http://127.0.0.1:18332"
	return cfg
}

// DefaultRegtest returns the default configuration for regtest.
func DefaultRegtest() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Regtest
	cfg.RPC.URL = "http://127.0.0.1:18443"
	cfg.Log.Level = "debug"
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Regtest:
		return DefaultRegtest()
	default:
		return DefaultMainnet()
	}
}
