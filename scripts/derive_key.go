// derive_key.go prints the x-only pubkey, taproot address and token address
// for a hex-encoded private key file.
// Usage: go run scripts/derive_key.go <keyfile> [mainnet|testnet|regtest]
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/cat721-cli/config"
	"github.com/Klingon-tech/cat721-cli/internal/wallet"
	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> [network]")
		os.Exit(1)
	}
	network := config.Mainnet
	if len(os.Args) > 2 {
		network = config.NetworkType(os.Args[2])
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	w, err := wallet.New(key, config.Default(network).ChainParams())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(w.XOnlyPubKey()))
	fmt.Printf("address=%s\n", w.Address().EncodeAddress())
	fmt.Printf("token_address=%s\n", w.TokenAddress())
}
