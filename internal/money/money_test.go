package money

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{"100", 10000},
		{"250.50", 25050},
		{"0.01", 1},
		{"99.999", 10000}, // rounds to the nearest paisa
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := Parse("abc"); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestMulAvoidsFloatDrift(t *testing.T) {
	// 0.10 rupees added ten times must be exactly one rupee.
	price := Amount(10)
	if got := price.Mul(10); got != 100 {
		t.Fatalf("expected 100 paise, got %d", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(Amount(25050))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != "250.50" {
		t.Fatalf("expected 250.50, got %s", out)
	}

	var back Amount
	if err := json.Unmarshal([]byte("250.5"), &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back != 25050 {
		t.Fatalf("expected 25050 paise, got %d", back)
	}

	if err := json.Unmarshal([]byte(`"99.99"`), &back); err != nil {
		t.Fatalf("unmarshal quoted failed: %v", err)
	}
	if back != 9999 {
		t.Fatalf("expected 9999 paise, got %d", back)
	}
}

func TestString(t *testing.T) {
	if got := Amount(10000).String(); got != "100.00" {
		t.Fatalf("expected 100.00, got %s", got)
	}
}
