// Package wallet holds the key used to sign staking transactions.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoSigner is returned when a transaction is requested without a key.
var ErrNoSigner = errors.New("no signing key configured")

// Wallet signs transactions for a single account. The zero value is a
// read-only wallet.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// FromHex builds a wallet from a hex private key, with or without 0x.
func FromHex(hexKey string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// FromEnv loads the key named by envVar. An unset variable yields a
// read-only wallet, not an error.
func FromEnv(envVar string) (*Wallet, error) {
	v := os.Getenv(envVar)
	if v == "" {
		return &Wallet{}, nil
	}
	return FromHex(v)
}

// CanSign reports whether a key is loaded.
func (w *Wallet) CanSign() bool {
	return w != nil && w.key != nil
}

// Address returns the signer's address, or "" for a read-only wallet.
func (w *Wallet) Address() string {
	if !w.CanSign() {
		return ""
	}
	return w.address.Hex()
}

// Sign signs tx for chainID.
func (w *Wallet) Sign(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if !w.CanSign() {
		return nil, ErrNoSigner
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
}
