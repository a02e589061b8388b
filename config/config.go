// Package config handles client configuration: per-network defaults, a
// key = value config file and command-line overrides.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
)

// NetworkType identifies the bitcoin network.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
)

// ConfigFileName is the config file looked up in the data directory.
const ConfigFileName = "cat721.conf"

// Config holds client runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Indexer
	Tracker TrackerConfig

	// bitcoind
	RPC RPCConfig

	Spend    SpendConfig
	Fee      FeeConfig
	Wallet   WalletConfig
	Minter   MinterConfig
	Resource ResourceConfig

	// Logging
	Log LogConfig
}

// TrackerConfig holds indexer settings.
type TrackerConfig struct {
	URL     string        `conf:"tracker.url"`
	Timeout time.Duration `conf:"tracker.timeout"`
}

// RPCConfig holds bitcoind JSON-RPC settings.
type RPCConfig struct {
	URL      string        `conf:"rpc.url"`
	User     string        `conf:"rpc.user"`
	Password string        `conf:"rpc.password"`
	Timeout  time.Duration `conf:"rpc.timeout"`
}

// SpendConfig holds spend tracker settings.
type SpendConfig struct {
	// ResetThreshold is how many blocks the indexer may advance past the
	// last sync before locally recorded spends are dropped.
	ResetThreshold uint64 `conf:"spend.reset_threshold"`
}

// FeeConfig holds fee settings. A zero rate asks the node for an estimate.
type FeeConfig struct {
	Rate uint64 `conf:"fee.rate"` // sat/vB
}

// WalletConfig holds wallet settings.
type WalletConfig struct {
	FilePath string `conf:"wallet.file"`
}

// MinterConfig holds the script fingerprints of each minter variant. A
// collection whose fingerprint matches none of them cannot be minted.
type MinterConfig struct {
	ClosedMd5         string `conf:"minter.closed_md5"`
	OpenMd5           string `conf:"minter.open_md5"`
	ParallelClosedMd5 string `conf:"minter.parallel_closed_md5"`
}

// ResourceConfig locates NFT content.
type ResourceConfig struct {
	Dir         string `conf:"resource.dir"`
	ContentType string `conf:"resource.type"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// ChainParams returns the btcd parameters of the configured network.
func (c *Config) ChainParams() *chaincfg.Params {
	switch c.Network {
	case Testnet:
		return &chaincfg.TestNet3Params
	case Regtest:
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.cat721
//	macOS:   ~/Library/Application Support/Cat721
//	Windows: %APPDATA%\Cat721
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cat721"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Cat721")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Cat721")
		}
		return filepath.Join(home, "AppData", "Roaming", "Cat721")
	default:
		return filepath.Join(home, ".cat721")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// SpendDBDir returns the spend tracker database directory.
func (c *Config) SpendDBDir() string {
	return filepath.Join(c.NetworkDataDir(), "spends")
}

// WalletFile returns the keystore path, defaulting to
// <datadir>/<network>/wallet.json.
func (c *Config) WalletFile() string {
	if c.Wallet.FilePath != "" {
		return c.Wallet.FilePath
	}
	return filepath.Join(c.NetworkDataDir(), "wallet.json")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, ConfigFileName)
}
