package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks cfg for operator mistakes and normalizes fingerprints
// to lower case.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Testnet, Regtest:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Regtest)
	}
	if err := validateURL(cfg.Tracker.URL, "tracker.url"); err != nil {
		return err
	}
	if err := validateURL(cfg.RPC.URL, "rpc.url"); err != nil {
		return err
	}
	if cfg.Tracker.Timeout < 0 || cfg.RPC.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if cfg.Spend.ResetThreshold == 0 {
		return fmt.Errorf("spend.reset_threshold must be positive")
	}

	seen := make(map[string]string, 3)
	for _, fp := range []struct {
		field string
		value *string
	}{
		{"minter.closed_md5", &cfg.Minter.ClosedMd5},
		{"minter.open_md5", &cfg.Minter.OpenMd5},
		{"minter.parallel_closed_md5", &cfg.Minter.ParallelClosedMd5},
	} {
		s := strings.ToLower(strings.TrimSpace(*fp.value))
		if s == "" {
			continue
		}
		if b, err := hex.DecodeString(s); err != nil || len(b) != 16 {
			return fmt.Errorf("%s must be 16-byte hex", fp.field)
		}
		if other, ok := seen[s]; ok {
			return fmt.Errorf("%s duplicates %s", fp.field, other)
		}
		seen[s] = fp.field
		*fp.value = s
	}
	return nil
}

func validateURL(raw, field string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}
