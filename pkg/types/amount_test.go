package types

import (
	"encoding/json"
	"testing"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: `"100"`, want: "100"},
		{in: `100`, want: "100"},
		{in: `"340282366920938463463374607431768211456"`, want: "340282366920938463463374607431768211456"},
		{in: `null`, want: "0"},
		{in: `"-5"`, wantErr: true},
		{in: `"1.5"`, wantErr: true},
		{in: `1e3`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.in), &a)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Unmarshal(%s) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.in, err)
			}
			if a.String() != tt.want {
				t.Errorf("Amount = %s, want %s", a, tt.want)
			}
		})
	}
}

func TestAmount_Uint64AndCmp(t *testing.T) {
	a := NewAmount(100)
	if n, ok := a.Uint64(); !ok || n != 100 {
		t.Errorf("Uint64() = %d, %v", n, ok)
	}
	if a.Cmp(99) <= 0 || a.Cmp(100) != 0 || a.Cmp(101) >= 0 {
		t.Error("Cmp() ordering wrong")
	}

	huge, err := ParseAmount("18446744073709551616")
	if err != nil {
		t.Fatalf("ParseAmount() error: %v", err)
	}
	if _, ok := huge.Uint64(); ok {
		t.Error("Uint64() should report overflow for 2^64")
	}

	var zero Amount
	if !zero.IsZero() || zero.String() != "0" {
		t.Errorf("zero Amount = %s", zero)
	}
}

func TestAmount_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewAmount(42))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `"42"` {
		t.Errorf("Marshal() = %s, want \"42\"", data)
	}
}
