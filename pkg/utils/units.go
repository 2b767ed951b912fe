package utils

import (
	"errors"
	"math"
	"math/big"
	"strings"
)

// NativeDecimals is the fixed-point precision of the native token.
const NativeDecimals = 18

// ErrInvalidAmount is returned for amounts that cannot be turned into base units.
var ErrInvalidAmount = errors.New("invalid amount")

func pow10(decimals int) *big.Int {
	if decimals < 0 {
		decimals = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ParseBaseUnits parses an integer amount in base units. Decimal strings and
// 0x-prefixed hex are accepted; anything else reports false.
func ParseBaseUnits(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// ToDisplayNumber converts a base-unit amount to a display number. The
// division is exact; precision is only lost converting to float64. Empty or
// malformed input yields 0.
func ToDisplayNumber(baseUnits string, decimals int) float64 {
	v, ok := ParseBaseUnits(baseUnits)
	if !ok {
		return 0
	}
	return WeiToNumber(v, decimals)
}

// WeiToNumber is ToDisplayNumber for an already parsed amount.
func WeiToNumber(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(amount, pow10(decimals)).Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToBaseUnits scales a display amount such as "1.5" by 10^decimals. Input
// must be a plain non-negative decimal with at most decimals fractional digits.
func ToBaseUnits(display string, decimals int) (*big.Int, error) {
	s := strings.TrimSpace(display)
	s = strings.ReplaceAll(s, ",", "")
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return nil, ErrInvalidAmount
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, ErrInvalidAmount
	}
	if decimals < 0 {
		decimals = 0
	}
	fracPart = strings.TrimRight(fracPart, "0")
	if len(fracPart) > decimals {
		return nil, ErrInvalidAmount
	}
	digits := intPart + fracPart + strings.Repeat("0", decimals-len(fracPart))
	if digits == "" {
		digits = "0"
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// ToBaseUnitsString is ToBaseUnits returning a decimal string, with invalid
// input zeroed out instead of reported.
func ToBaseUnitsString(display string, decimals int) string {
	v, err := ToBaseUnits(display, decimals)
	if err != nil {
		return "0"
	}
	return v.String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
