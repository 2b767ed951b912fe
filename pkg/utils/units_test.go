package utils

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDisplayNumber(t *testing.T) {
	tests := []struct {
		input    string
		decimals int
		expected float64
	}{
		{"1000000000000000000", 18, 1},
		{"1500000000000000000", 18, 1.5},
		{"0x0de0b6b3a7640000", 18, 1},
		{"123456", 6, 0.123456},
		{"0", 18, 0},
		{"", 18, 0},
		{"NaN", 18, 0},
		{"1.5", 18, 0},
		{"abc", 18, 0},
	}

	for _, tt := range tests {
		result := ToDisplayNumber(tt.input, tt.decimals)
		if result != tt.expected {
			t.Errorf("ToDisplayNumber(%q, %d) = %v; want %v", tt.input, tt.decimals, result, tt.expected)
		}
		assert.False(t, math.IsNaN(result))
	}
}

func TestToDisplayNumber_BeyondInt64(t *testing.T) {
	// 50 million DND exceeds int64 in base units.
	v := ToDisplayNumber("50000000000000000000000000", NativeDecimals)
	assert.Equal(t, 5e7, v)
}

func TestWeiToNumber_Nil(t *testing.T) {
	assert.Equal(t, 0.0, WeiToNumber(nil, NativeDecimals))
}

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"10", "10000000000000000000"},
		{"1.5", "1500000000000000000"},
		{".5", "500000000000000000"},
		{"1.", "1000000000000000000"},
		{"0", "0"},
		{"1,000", "1000000000000000000000"},
		{"0.000000000000000001", "1"},
		{"2.500000000000000000000", "2500000000000000000"},
	}

	for _, tt := range tests {
		v, err := ToBaseUnits(tt.input, NativeDecimals)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, v.String(), tt.input)
	}
}

func TestToBaseUnits_Invalid(t *testing.T) {
	for _, in := range []string{"", ".", "abc", "-1", "1e18", "NaN", "1.2.3", "0.0000000000000000001"} {
		_, err := ToBaseUnits(in, NativeDecimals)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
		assert.Equal(t, "0", ToBaseUnitsString(in, NativeDecimals), in)
	}
}

func TestBaseUnitsRoundTrip(t *testing.T) {
	for _, x := range []string{"0", "1", "10", "0.1", "123.456", "99999.999999", "0.000000000000000001", "42.000000000000000001"} {
		v, err := ToBaseUnits(x, NativeDecimals)
		require.NoError(t, err, x)

		want, ok := new(big.Rat).SetString(x)
		require.True(t, ok)
		wantF, _ := want.Float64()

		got := ToDisplayNumber(v.String(), NativeDecimals)
		assert.InDelta(t, wantF, got, 1e-9*math.Max(1, wantF), x)

		// Exact until display rounding.
		exact := new(big.Rat).SetFrac(v, pow10(NativeDecimals))
		assert.Equal(t, 0, exact.Cmp(want), x)
	}
}
