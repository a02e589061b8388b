package state

// DecodeScriptNum interprets b as a script number: little-endian magnitude
// with the sign in the high bit of the last byte. The empty slice is zero.
// Non-minimal encodings are accepted; the covenant enforces minimality.
// maxLen is capped at 8 bytes.
func DecodeScriptNum(b []byte, maxLen int) (int64, error) {
	if maxLen > 8 {
		maxLen = 8
	}
	if len(b) > maxLen {
		return 0, decodeErr("scriptnum", "%d bytes exceeds limit %d", len(b), maxLen)
	}
	if len(b) == 0 {
		return 0, nil
	}

	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * uint(i))
	}

	last := len(b) - 1
	if b[last]&0x80 != 0 {
		v &^= uint64(0x80) << (8 * uint(last))
		return -int64(v), nil
	}
	return int64(v), nil
}

// EncodeScriptNum returns the minimal script number encoding of n.
func EncodeScriptNum(n int64) []byte {
	if n == 0 {
		return nil
	}

	neg := n < 0
	var mag uint64
	if neg {
		mag = uint64(-n)
	} else {
		mag = uint64(n)
	}

	var out []byte
	for mag > 0 {
		out = append(out, byte(mag&0xff))
		mag >>= 8
	}

	// A set high bit would read as the sign, so push an extra byte.
	if out[len(out)-1]&0x80 != 0 {
		if neg {
			out = append(out, 0x80)
		} else {
			out = append(out, 0x00)
		}
	} else if neg {
		out[len(out)-1] |= 0x80
	}
	return out
}
