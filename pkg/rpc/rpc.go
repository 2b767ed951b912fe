package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"dndstake/pkg/models"
	"dndstake/pkg/wallet"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var CallTimeout = 15 * time.Second
var TxTimeout = 60 * time.Second

var (
	ErrNoRPC                   = errors.New("no RPC URLs configured")
	ErrContractNotConfigured   = errors.New("contract address not configured")
	ErrInvalidValidatorAddress = errors.New("invalid validator address")
)

// withClient runs fn against each RPC URL in order until one succeeds.
func withClient[T any](rpcURLs []string, fn func(ctx context.Context, client *ethclient.Client) (T, error)) (T, []string, error) {
	var zero T
	var failed []string
	lastErr := ErrNoRPC

	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), CallTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			cancel()
			failed = append(failed, rpcURL)
			lastErr = err
			continue
		}
		res, err := fn(ctx, client)
		client.Close()
		cancel()
		if err != nil {
			failed = append(failed, rpcURL)
			lastErr = err
			continue
		}
		return res, failed, nil
	}
	return zero, failed, lastErr
}

// FetchChainID returns the chain id reported by the first reachable RPC.
func FetchChainID(rpcURLs []string) (int64, []string, error) {
	return withClient(rpcURLs, func(ctx context.Context, client *ethclient.Client) (int64, error) {
		id, err := client.ChainID(ctx)
		if err != nil {
			return 0, err
		}
		return id.Int64(), nil
	})
}

// FetchBalance returns the native balance of address in base units.
func FetchBalance(rpcURLs []string, address string) (models.BalanceData, error) {
	account := common.HexToAddress(address)
	bal, failed, err := withClient(rpcURLs, func(ctx context.Context, client *ethclient.Client) (*big.Int, error) {
		return client.BalanceAt(ctx, account, nil)
	})
	if err != nil {
		return models.BalanceData{Address: address, FailedRPCs: failed}, err
	}
	return models.BalanceData{Address: address, Balance: bal, FailedRPCs: failed}, nil
}

// FetchBlockNumber returns the latest block height.
func FetchBlockNumber(rpcURLs []string) (models.BlockNumberData, error) {
	n, failed, err := withClient(rpcURLs, func(ctx context.Context, client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
	return models.BlockNumberData{Number: n, FailedRPCs: failed}, err
}

// FetchTotalStake reads the network-wide staked amount from the consensus contract.
func FetchTotalStake(rpcURLs []string, consensus string) (models.AmountData, error) {
	return fetchAmount(rpcURLs, consensus, consensusABI, "totalStakeAmount")
}

// FetchBlockReward reads the per-block reward from the block reward contract.
func FetchBlockReward(rpcURLs []string, blockReward string) (models.AmountData, error) {
	return fetchAmount(rpcURLs, blockReward, blockRewardABI, "getBlockRewardAmount")
}

func fetchAmount(rpcURLs []string, contract string, parsed abi.ABI, method string, args ...interface{}) (models.AmountData, error) {
	if contract == "" {
		return models.AmountData{}, ErrContractNotConfigured
	}
	to := common.HexToAddress(contract)
	amount, failed, err := withClient(rpcURLs, func(ctx context.Context, client *ethclient.Client) (*big.Int, error) {
		return callUint(ctx, client, to, parsed, method, args...)
	})
	return models.AmountData{Amount: amount, FailedRPCs: failed}, err
}

// FetchValidators lists the consensus contract's validators with their total
// stake and, when account is set, the account's delegation to each.
func FetchValidators(rpcURLs []string, consensus, account string, legacy bool) (models.ValidatorSet, error) {
	if consensus == "" {
		return models.ValidatorSet{Legacy: legacy}, ErrContractNotConfigured
	}
	to := common.HexToAddress(consensus)
	validators, failed, err := withClient(rpcURLs, func(ctx context.Context, client *ethclient.Client) ([]models.ValidatorStake, error) {
		addrs, err := callAddresses(ctx, client, to, consensusABI, "getValidators")
		if err != nil {
			return nil, err
		}
		out := make([]models.ValidatorStake, 0, len(addrs))
		for _, v := range addrs {
			stake := models.ValidatorStake{ValidatorID: v.Hex(), Legacy: legacy}
			total, err := callUint(ctx, client, to, consensusABI, "stakeAmount", v)
			if err != nil {
				return nil, err
			}
			stake.TotalStake = total.String()
			if account != "" {
				mine, err := callUint(ctx, client, to, consensusABI, "delegatedAmount", common.HexToAddress(account), v)
				if err != nil {
					return nil, err
				}
				stake.YourStake = mine.String()
			}
			out = append(out, stake)
		}
		return out, nil
	})
	return models.ValidatorSet{Validators: validators, Legacy: legacy, FailedRPCs: failed}, err
}

func call(ctx context.Context, client *ethclient.Client, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func callUint(ctx context.Context, client *ethclient.Client, to common.Address, parsed abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	values, err := call(ctx, client, to, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return v, nil
}

func callAddresses(ctx context.Context, client *ethclient.Client, to common.Address, parsed abi.ABI, method string) ([]common.Address, error) {
	values, err := call(ctx, client, to, parsed, method)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return v, nil
}

// SendDelegate stakes amount with validator by calling the payable delegate().
func SendDelegate(rpcURLs []string, consensus string, w *wallet.Wallet, validator string, amount *big.Int) (models.TxResult, error) {
	if !common.IsHexAddress(validator) {
		return models.TxResult{}, ErrInvalidValidatorAddress
	}
	data, err := consensusABI.Pack("delegate", common.HexToAddress(validator))
	if err != nil {
		return models.TxResult{}, err
	}
	res, err := sendTx(rpcURLs, consensus, w, data, amount)
	res.Kind = models.SubmitStake
	res.Validator = validator
	res.Amount = amount
	return res, err
}

// SendWithdraw unstakes amount from validator.
func SendWithdraw(rpcURLs []string, consensus string, w *wallet.Wallet, validator string, amount *big.Int) (models.TxResult, error) {
	if !common.IsHexAddress(validator) {
		return models.TxResult{}, ErrInvalidValidatorAddress
	}
	data, err := consensusABI.Pack("withdraw", common.HexToAddress(validator), amount)
	if err != nil {
		return models.TxResult{}, err
	}
	res, err := sendTx(rpcURLs, consensus, w, data, new(big.Int))
	res.Kind = models.SubmitUnstake
	res.Validator = validator
	res.Amount = amount
	return res, err
}

// sendTx signs and broadcasts a legacy transaction. Only connection failures
// move on to the next RPC; once a node has been asked to send, its answer is final.
func sendTx(rpcURLs []string, contract string, w *wallet.Wallet, data []byte, value *big.Int) (models.TxResult, error) {
	if !w.CanSign() {
		return models.TxResult{}, wallet.ErrNoSigner
	}
	if contract == "" {
		return models.TxResult{}, ErrContractNotConfigured
	}
	if len(rpcURLs) == 0 {
		return models.TxResult{}, ErrNoRPC
	}
	to := common.HexToAddress(contract)
	from := common.HexToAddress(w.Address())

	var lastErr error
	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), TxTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			cancel()
			lastErr = err
			continue
		}
		chainID, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			cancel()
			lastErr = err
			continue
		}
		hash, err := buildAndSend(ctx, client, w, chainID, from, to, data, value)
		client.Close()
		cancel()
		if err != nil {
			return models.TxResult{}, err
		}
		return models.TxResult{Hash: hash, Submitted: time.Now()}, nil
	}
	return models.TxResult{}, lastErr
}

func buildAndSend(ctx context.Context, client *ethclient.Client, w *wallet.Wallet, chainID *big.Int, from, to common.Address, data []byte, value *big.Int) (string, error) {
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return "", fmt.Errorf("failed to estimate gas: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := w.Sign(tx, chainID)
	if err != nil {
		return "", err
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}
