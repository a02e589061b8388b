package state

import (
	"encoding/binary"

	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// NFTState is the ownership state of a minted token. LocalID never changes
// after mint; OwnerAddr changes only through transfers.
type NFTState struct {
	OwnerAddr types.TokenAddress
	LocalID   uint64
}

// EncodeNFT serializes NFT state: [20: ownerAddr][8: localId].
func EncodeNFT(s NFTState) []byte {
	buf := make([]byte, 0, NFTSize)
	buf = append(buf, s.OwnerAddr[:]...)
	return binary.LittleEndian.AppendUint64(buf, s.LocalID)
}

// DecodeNFT parses NFT state bytes.
func DecodeNFT(b []byte) (NFTState, error) {
	var s NFTState
	if len(b) != NFTSize {
		return s, decodeErr("nft", "length %d, want %d", len(b), NFTSize)
	}
	copy(s.OwnerAddr[:], b[:OwnerSize])
	s.LocalID = binary.LittleEndian.Uint64(b[OwnerSize:])
	return s, nil
}
