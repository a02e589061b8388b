package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile reads key = value pairs from a .conf file. A missing file
// yields no values.
func LoadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// Parse reads the .conf format: one key = value per line, # starts a
// comment line, and a value may be wrapped in single or double quotes.
// Later keys override earlier ones.
func Parse(r io.Reader) (map[string]string, error) {
	values := map[string]string{}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value", n)
		}
		values[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	return values, sc.Err()
}

func unquote(v string) string {
	if n := len(v); n >= 2 && (v[0] == '"' || v[0] == '\'') && v[n-1] == v[0] {
		return v[1 : n-1]
	}
	return v
}

// setter applies one file value.
type setter func(cfg *Config, value string) error

func str(field func(*Config) *string) setter {
	return func(cfg *Config, v string) error {
		*field(cfg) = v
		return nil
	}
}

func uint64Val(field func(*Config) *uint64) setter {
	return func(cfg *Config, v string) (err error) {
		*field(cfg), err = strconv.ParseUint(v, 10, 64)
		return err
	}
}

func durationVal(field func(*Config) *time.Duration) setter {
	return func(cfg *Config, v string) (err error) {
		*field(cfg), err = parseDuration(v)
		return err
	}
}

// fileKeys maps every recognized .conf key. Unknown keys are ignored.
var fileKeys = map[string]setter{
	"network": func(cfg *Config, v string) error {
		cfg.Network = NetworkType(strings.ToLower(v))
		return nil
	},
	"datadir": str(func(c *Config) *string { return &c.DataDir }),

	"tracker.url":     str(func(c *Config) *string { return &c.Tracker.URL }),
	"tracker":         str(func(c *Config) *string { return &c.Tracker.URL }),
	"tracker.timeout": durationVal(func(c *Config) *time.Duration { return &c.Tracker.Timeout }),

	"rpc.url":      str(func(c *Config) *string { return &c.RPC.URL }),
	"rpc":          str(func(c *Config) *string { return &c.RPC.URL }),
	"rpc.user":     str(func(c *Config) *string { return &c.RPC.User }),
	"rpc.password": str(func(c *Config) *string { return &c.RPC.Password }),
	"rpc.timeout":  durationVal(func(c *Config) *time.Duration { return &c.RPC.Timeout }),

	"spend.reset_threshold": uint64Val(func(c *Config) *uint64 { return &c.Spend.ResetThreshold }),
	"fee.rate":              uint64Val(func(c *Config) *uint64 { return &c.Fee.Rate }),
	"feerate":               uint64Val(func(c *Config) *uint64 { return &c.Fee.Rate }),

	"wallet.file": str(func(c *Config) *string { return &c.Wallet.FilePath }),

	"minter.closed_md5":          str(func(c *Config) *string { return &c.Minter.ClosedMd5 }),
	"minter.open_md5":            str(func(c *Config) *string { return &c.Minter.OpenMd5 }),
	"minter.parallel_closed_md5": str(func(c *Config) *string { return &c.Minter.ParallelClosedMd5 }),

	"resource.dir":  str(func(c *Config) *string { return &c.Resource.Dir }),
	"resource.type": str(func(c *Config) *string { return &c.Resource.ContentType }),

	"log.level": str(func(c *Config) *string { return &c.Log.Level }),
	"log.file":  str(func(c *Config) *string { return &c.Log.File }),
	"log.json": func(cfg *Config, v string) error {
		cfg.Log.JSON = parseBool(v)
		return nil
	},
}

// ApplyFileConfig applies file values to cfg.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		set, ok := fileKeys[key]
		if !ok {
			continue
		}
		if err := set(cfg, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parseDuration accepts Go durations ("15s") or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// WriteDefaultConfig writes a commented default config file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# cat721-cli configuration

# Network: mainnet, testnet or regtest
network = ` + string(network) + `

# Data directory (default: ~/.cat721)
# datadir = ~/.cat721

# ============================================================================
# Indexer
# ============================================================================

tracker.url = ` + cfg.Tracker.URL + `
# tracker.timeout = 10s

# ============================================================================
# bitcoind
# ============================================================================

rpc.url = ` + cfg.RPC.URL + `
# rpc.user =
# rpc.password =
# rpc.timeout = 30s

# ============================================================================
# Minting
# ============================================================================

# Blocks the indexer may advance before local spends are forgotten
spend.reset_threshold = ` + strconv.FormatUint(cfg.Spend.ResetThreshold, 10) + `

# Fee rate in sat/vB (0 or unset: estimate from the node)
# fee.rate = 10

# wallet.file = <datadir>/<network>/wallet.json

# Minter script fingerprints (md5 of the covenant script, hex)
# minter.closed_md5 =
# minter.open_md5 =
# minter.parallel_closed_md5 =

# Directory holding {localId}.{ext} and {localId}.json
# resource.dir =
resource.type = ` + cfg.Resource.ContentType + `

# ============================================================================
# Logging
# ============================================================================

log.level = ` + cfg.Log.Level + `
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
