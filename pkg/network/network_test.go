package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	d, ok := Lookup(7363)
	assert.True(t, ok)
	assert.Equal(t, "DynoChain", d.ChainName)
	assert.Equal(t, "DND", d.NativeCurrency.Symbol)
	assert.Equal(t, 18, d.NativeCurrency.Decimals)
	assert.Equal(t, int64(7363), d.ID())

	_, ok = Lookup(1)
	assert.False(t, ok)
	_, ok = Lookup(122)
	assert.False(t, ok)
}

func TestMismatch(t *testing.T) {
	tests := []struct {
		chainID  int64
		expected bool
	}{
		{7363, false},
		{1, true},
		{122, true},
		{0, true},
	}
	for _, tt := range tests {
		if got := Mismatch(tt.chainID); got != tt.expected {
			t.Errorf("Mismatch(%d) = %v; want %v", tt.chainID, got, tt.expected)
		}
	}
}

func TestExplorerURLs(t *testing.T) {
	d := Supported()
	assert.Equal(t, "https://dynoscan.io/address/0xabc", d.AddressURL("0xabc"))
	assert.Equal(t, "https://dynoscan.io/tx/0x01", d.TxURL("0x01"))

	assert.Equal(t, "", ChainDescriptor{}.AddressURL("0xabc"))
}
