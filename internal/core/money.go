// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and formatting them back for display and export.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string to an amount rounded
// half-up to two places.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Signs, exponents and zero amounts are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (rounds up)
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two decimals, as used by the
// CSV export.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
