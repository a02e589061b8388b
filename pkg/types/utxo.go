package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// UTXO is a spendable output as reported by the tracker.
type UTXO struct {
	Outpoint
	Script   []byte
	Satoshis uint64
}

// utxoJSON is the tracker wire shape. Satoshis arrive either as a JSON number
// or as a decimal string depending on the tracker version.
type utxoJSON struct {
	TxID        Hash            `json:"txId"`
	OutputIndex uint32          `json:"outputIndex"`
	Script      string          `json:"script"`
	Satoshis    json.RawMessage `json:"satoshis"`
}

// MarshalJSON encodes the UTXO with a hex script and numeric satoshis.
func (u UTXO) MarshalJSON() ([]byte, error) {
	return json.Marshal(utxoJSON{
		TxID:        u.TxID,
		OutputIndex: u.Index,
		Script:      hex.EncodeToString(u.Script),
		Satoshis:    json.RawMessage(strconv.FormatUint(u.Satoshis, 10)),
	})
}

// UnmarshalJSON decodes the tracker UTXO shape.
func (u *UTXO) UnmarshalJSON(data []byte) error {
	var j utxoJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	script, err := hex.DecodeString(j.Script)
	if err != nil {
		return fmt.Errorf("utxo script: %w", err)
	}
	sats, err := parseSatoshis(j.Satoshis)
	if err != nil {
		return err
	}
	u.Outpoint = Outpoint{TxID: j.TxID, Index: j.OutputIndex}
	u.Script = script
	u.Satoshis = sats
	return nil
}

func parseSatoshis(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("utxo satoshis %s: %w", raw, err)
	}
	return n, nil
}
