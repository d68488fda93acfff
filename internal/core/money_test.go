package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{".5", "0.5", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error, got %s", tc.in, got)
			}
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("150")); got != "150.00" {
		t.Fatalf("expected 150.00, got %s", got)
	}
	if got := FormatAmount(decimal.RequireFromString("99.995")); got != "100.00" {
		t.Fatalf("expected 100.00, got %s", got)
	}
}
