package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrWalletExists is returned when creating over an existing keystore file.
var ErrWalletExists = errors.New("wallet file already exists")

const keystoreVersion = 1

// keystoreFile is the on-disk JSON form.
type keystoreFile struct {
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	Network       string    `json:"network"`
	Address       string    `json:"address"`
	EncryptedSeed []byte    `json:"encrypted_seed"`
}

// Info is the unencrypted part of a keystore file.
type Info struct {
	CreatedAt time.Time
	Network   string
	Address   string
}

// CreateFile writes seed encrypted under password to path. The address and
// network are kept in clear so `wallet address` needs no password.
func CreateFile(path string, seed, password []byte, params EncryptionParams, network, address string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrWalletExists, path)
	}
	sealed, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}
	data, err := json.MarshalIndent(keystoreFile{
		Version:       keystoreVersion,
		CreatedAt:     time.Now().UTC(),
		Network:       network,
		Address:       address,
		EncryptedSeed: sealed,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write keystore: %w", err)
	}
	return nil
}

func readFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	if ks.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", ks.Version)
	}
	return &ks, nil
}

// LoadFile decrypts the seed stored at path.
func LoadFile(path string, password []byte) ([]byte, error) {
	ks, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Decrypt(ks.EncryptedSeed, password)
}

// ReadInfo returns the clear metadata of the keystore at path.
func ReadInfo(path string) (Info, error) {
	ks, err := readFile(path)
	if err != nil {
		return Info{}, err
	}
	return Info{CreatedAt: ks.CreatedAt, Network: ks.Network, Address: ks.Address}, nil
}
