package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Flags holds the global command-line flags that precede the subcommand.
type Flags struct {
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Endpoints
	Tracker     string
	RPC         string
	RPCUser     string
	RPCPassword string

	FeeRate uint64
	Wallet  string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Args are the subcommand and its arguments.
	Args []string

	SetLogJSON bool
}

// ParseFlags parses global flags from args. Parsing stops at the first
// non-flag argument, which starts the subcommand.
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("cat721-cli", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	fs.StringVar(&f.Network, "network", "", "Network: mainnet, testnet or regtest")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")

	fs.StringVar(&f.Tracker, "tracker", "", "Indexer base URL")
	fs.StringVar(&f.RPC, "rpc", "", "bitcoind JSON-RPC URL")
	fs.StringVar(&f.RPCUser, "rpc-user", "", "bitcoind RPC user")
	fs.StringVar(&f.RPCPassword, "rpc-password", "", "bitcoind RPC password")

	fs.Uint64Var(&f.FeeRate, "fee-rate", 0, "Fee rate in sat/vB")
	fs.StringVar(&f.Wallet, "wallet", "", "Wallet file path")

	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to cfg.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.Tracker != "" {
		cfg.Tracker.URL = f.Tracker
	}
	if f.RPC != "" {
		cfg.RPC.URL = f.RPC
	}
	if f.RPCUser != "" {
		cfg.RPC.User = f.RPCUser
	}
	if f.RPCPassword != "" {
		cfg.RPC.Password = f.RPCPassword
	}
	if f.FeeRate != 0 {
		cfg.Fee.Rate = f.FeeRate
	}
	if f.Wallet != "" {
		cfg.Wallet.FilePath = f.Wallet
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Load builds the configuration with the following precedence:
// 1. Default values for the network
// 2. Config file
// 3. Command-line flags
//
// The network is taken from the flags, else from the config file, so that
// per-network defaults match the file.
func Load(f *Flags) (*Config, error) {
	dataDir := f.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	configPath := f.Config
	if configPath == "" {
		configPath = (&Config{DataDir: dataDir}).ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	network := NetworkType(strings.ToLower(f.Network))
	if network == "" {
		network = NetworkType(strings.ToLower(fileValues["network"]))
	}
	if network == "" {
		network = Mainnet
	}

	cfg := Default(network)
	cfg.DataDir = dataDir
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}
	ApplyFlags(cfg, f)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directories and a default config file if
// they don't already exist. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.NetworkDataDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
