package network

import (
	"fmt"
	"strconv"
	"strings"
)

// DND is the chain id of DynoChain, the only network the dashboard supports.
const DND int64 = 7363

// NativeCurrency describes the chain's gas token.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainDescriptor holds the static metadata of a registered chain.
type ChainDescriptor struct {
	ChainID        string         `json:"chain_id"`
	ChainName      string         `json:"chain_name"`
	NativeCurrency NativeCurrency `json:"native_currency"`
	RPC            string         `json:"rpc"`
	Explorer       string         `json:"explorer"`
}

var networks = map[int64]ChainDescriptor{
	DND: {
		ChainID:   "7363",
		ChainName: "DynoChain",
		NativeCurrency: NativeCurrency{
			Name:     "Dyno",
			Symbol:   "DND",
			Decimals: 18,
		},
		RPC:      "https://rpc.dynochain.io",
		Explorer: "https://dynoscan.io",
	},
}

// Lookup returns the descriptor registered for chainID. A miss means the
// network is unsupported.
func Lookup(chainID int64) (ChainDescriptor, bool) {
	d, ok := networks[chainID]
	return d, ok
}

// Supported returns the descriptor of the network the dashboard targets.
func Supported() ChainDescriptor {
	return networks[DND]
}

// Mismatch reports whether the active chain differs from the supported one.
func Mismatch(active int64) bool {
	return active != DND
}

// ID parses the descriptor's chain id.
func (d ChainDescriptor) ID() int64 {
	id, err := strconv.ParseInt(d.ChainID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// AddressURL links to an address page on the chain explorer.
func (d ChainDescriptor) AddressURL(address string) string {
	if d.Explorer == "" {
		return ""
	}
	return fmt.Sprintf("%s/address/%s", strings.TrimRight(d.Explorer, "/"), address)
}

// TxURL links to a transaction page on the chain explorer.
func (d ChainDescriptor) TxURL(hash string) string {
	if d.Explorer == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(d.Explorer, "/"), hash)
}
