// Package collection builds the Merkle commitment over an open-mint
// collection's content and proves membership of single NFTs.
package collection

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/txscript"

	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
)

// Envelope constants of the commit script.
const (
	protocolTag  = "cat"
	maxChunkSize = txscript.MaxScriptElementSize
	pubKeySize   = 32
)

// CommitScript returns the tapscript that commits an NFT's content:
//
//	<pubkeyX> OP_CHECKSIG OP_FALSE OP_IF "cat" OP_1 <contentType> OP_0 <body...> OP_ENDIF
//
// The body is split into pushes of at most 520 bytes.
func CommitScript(pubkeyX []byte, contentType string, body []byte) ([]byte, error) {
	if len(pubkeyX) != pubKeySize {
		return nil, fmt.Errorf("commit script: x-only key must be %d bytes, got %d", pubKeySize, len(pubkeyX))
	}
	if contentType == "" {
		return nil, fmt.Errorf("commit script: empty content type")
	}

	script := make([]byte, 0, len(body)+len(body)/maxChunkSize*3+len(contentType)+48)
	script = appendPush(script, pubkeyX)
	script = append(script, txscript.OP_CHECKSIG, txscript.OP_FALSE, txscript.OP_IF)
	script = appendPush(script, []byte(protocolTag))
	script = append(script, txscript.OP_1)
	script = appendPush(script, []byte(contentType))
	script = append(script, txscript.OP_0)
	for len(body) > 0 {
		n := len(body)
		if n > maxChunkSize {
			n = maxChunkSize
		}
		script = appendPush(script, body[:n])
		body = body[n:]
	}
	script = append(script, txscript.OP_ENDIF)
	return script, nil
}

// appendPush appends a data push. Tapscript has no total size limit, so
// the builder in txscript, which enforces one, is not used.
func appendPush(script, data []byte) []byte {
	n := len(data)
	switch {
	case n < txscript.OP_PUSHDATA1:
		script = append(script, byte(n))
	case n <= 0xff:
		script = append(script, txscript.OP_PUSHDATA1, byte(n))
	default:
		script = append(script, txscript.OP_PUSHDATA2)
		script = binary.LittleEndian.AppendUint16(script, uint16(n))
	}
	return append(script, data...)
}

// LeafOf returns the Merkle leaf of an NFT:
// hash160(hash160(commitScript) || localID as 8 bytes little-endian).
func LeafOf(commitScript []byte, localID uint64) crypto.Digest {
	h := crypto.Hash160(commitScript)
	buf := make([]byte, 0, crypto.DigestSize+8)
	buf = append(buf, h[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, localID)
	return crypto.Hash160(buf)
}
