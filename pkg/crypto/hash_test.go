package crypto

import (
	"encoding/hex"
	"testing"
)

func TestHash160(t *testing.T) {
	got := Hash160([]byte{})
	want := "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb"
	if got.String() != want {
		t.Errorf("Hash160(empty) = %s, want %s", got, want)
	}
}

func TestHash160_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	if Hash160(data) != Hash160(data) {
		t.Error("Hash160 is not deterministic")
	}
	if Hash160([]byte("input A")) == Hash160([]byte("input B")) {
		t.Error("different inputs produced the same digest")
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Checksum(tt.input)
			if hex.EncodeToString(got[:]) != tt.want {
				t.Errorf("Checksum(%q) = %x, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestHashConcat(t *testing.T) {
	a := Hash160([]byte("left"))
	b := Hash160([]byte("right"))
	result := HashConcat(a, b)

	if result.IsZero() {
		t.Error("HashConcat returned zero digest")
	}

	// Order matters
	if result == HashConcat(b, a) {
		t.Error("HashConcat(a,b) should differ from HashConcat(b,a)")
	}

	var buf [2 * DigestSize]byte
	copy(buf[:DigestSize], a[:])
	copy(buf[DigestSize:], b[:])
	if want := Hash160(buf[:]); result != want {
		t.Errorf("HashConcat = %s, want %s", result, want)
	}
}

func TestDigest_Text(t *testing.T) {
	d := Hash160([]byte("x"))
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error: %v", err)
	}
	var back Digest
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %s, want %s", back, d)
	}
	if err := back.UnmarshalText([]byte("abcd")); err == nil {
		t.Error("expected error for short digest")
	}
	if _, err := hex.DecodeString(string(text)); err != nil {
		t.Errorf("text is not hex: %v", err)
	}
}
