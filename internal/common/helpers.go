package common

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	SOLDecimals = 9 // SOL has 9 decimals (lamports)

	// NativeMint is the wrapped SOL mint, used as the SOL id by token price APIs
	NativeMint = "So11111111111111111111111111111111111111112"
)

// LamportsToSOL converts lamports to SOL string without float precision loss
func LamportsToSOL(lamports uint64) string {
	return formatWithDecimals(lamports, SOLDecimals)
}

// LamportsToFloat converts lamports to SOL for display
func LamportsToFloat(lamports uint64) float64 {
	f, _ := strconv.ParseFloat(LamportsToSOL(lamports), 64)
	return f
}

// TokenAmountToFloat converts a raw SPL amount string with the mint's decimals to a float
func TokenAmountToFloat(amount string, decimals uint8) (float64, error) {
	raw, err := strconv.ParseUint(strings.TrimSpace(amount), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token amount '%s': %w", amount, err)
	}
	return strconv.ParseFloat(formatWithDecimals(raw, int(decimals)), 64)
}

// ParsePrice parses a decimal price string as returned by price APIs
func ParsePrice(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// formatWithDecimals inserts the decimal point into an integer amount.
// Example: formatWithDecimals(24981836, 9) = "0.024981836"
func formatWithDecimals(value uint64, decimals int) string {
	s := strconv.FormatUint(value, 10)
	if decimals == 0 {
		return s
	}
	if pad := decimals + 1 - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	pos := len(s) - decimals
	return s[:pos] + "." + s[pos:]
}
