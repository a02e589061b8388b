package tracker

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/cat721-cli/pkg/state"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// envelope is the shape of every tracker response.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Status is the indexer's view of the chain.
type Status struct {
	TrackerBlockHeight uint64 `json:"trackerBlockHeight"`
	NodeBlockHeight    uint64 `json:"nodeBlockHeight"`
	LatestBlockHeight  uint64 `json:"latestBlockHeight"`
}

// ContractUTXO is a covenant output as returned by the indexer. State is
// left raw; it is empty or unusable for minters whose state must be
// reconstructed from the chain.
type ContractUTXO struct {
	UTXO           types.UTXO           `json:"utxo"`
	TxoStateHashes state.TxoStateHashes `json:"txoStateHashes"`
	State          json.RawMessage      `json:"state,omitempty"`
}

// NFTState is the indexed ownership state of an NFT.
type NFTState struct {
	Address types.TokenAddress `json:"address"`
	LocalID uint64             `json:"localId"`
}

// UnmarshalJSON accepts localId as a number or a decimal string.
func (s *NFTState) UnmarshalJSON(data []byte) error {
	var raw struct {
		Address types.TokenAddress `json:"address"`
		LocalID json.RawMessage    `json:"localId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := parseUint(raw.LocalID)
	if err != nil {
		return fmt.Errorf("localId: %w", err)
	}
	s.Address = raw.Address
	s.LocalID = id
	return nil
}

// NFTUTXO is an NFT output with its decoded ownership state.
type NFTUTXO struct {
	UTXO           types.UTXO           `json:"utxo"`
	TxoStateHashes state.TxoStateHashes `json:"txoStateHashes"`
	State          NFTState             `json:"state"`
}

type minterUTXOsData struct {
	UTXOs []ContractUTXO `json:"utxos"`
}

type nftData struct {
	UTXO *NFTUTXO `json:"utxo"`
}

type nftsData struct {
	UTXOs              []NFTUTXO `json:"utxos"`
	TrackerBlockHeight uint64    `json:"trackerBlockHeight"`
}

type collectionsData struct {
	Collections []struct {
		CollectionID string `json:"collectionId"`
	} `json:"collections"`
}

func parseUint(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
	}
	return strconv.ParseUint(s, 10, 64)
}
