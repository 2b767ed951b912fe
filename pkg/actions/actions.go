// Package actions performs chain reads and writes and records their results
// in the store. A failed action leaves the store untouched.
package actions

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"dndstake/pkg/config"
	"dndstake/pkg/models"
	"dndstake/pkg/network"
	"dndstake/pkg/rpc"
	"dndstake/pkg/store"
	"dndstake/pkg/wallet"

	"github.com/charmbracelet/log"
)

// ErrUnsupportedNetwork is returned when switching to a chain missing from the registry.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// DataSource defines the interface for talking to the chain.
type DataSource interface {
	FetchChainID(rpcURLs []string) (int64, []string, error)
	FetchBalance(rpcURLs []string, address string) (models.BalanceData, error)
	FetchValidators(rpcURLs []string, consensus, account string, legacy bool) (models.ValidatorSet, error)
	FetchTotalStake(rpcURLs []string, consensus string) (models.AmountData, error)
	FetchBlockReward(rpcURLs []string, blockReward string) (models.AmountData, error)
	FetchBlockNumber(rpcURLs []string) (models.BlockNumberData, error)
	SendDelegate(rpcURLs []string, consensus string, w *wallet.Wallet, validator string, amount *big.Int) (models.TxResult, error)
	SendWithdraw(rpcURLs []string, consensus string, w *wallet.Wallet, validator string, amount *big.Int) (models.TxResult, error)
}

// RealDataSource implements DataSource using the rpc package.
type RealDataSource struct{}

func (d *RealDataSource) FetchChainID(rpcURLs []string) (int64, []string, error) {
	return rpc.FetchChainID(rpcURLs)
}

func (d *RealDataSource) FetchBalance(rpcURLs []string, address string) (models.BalanceData, error) {
	return rpc.FetchBalance(rpcURLs, address)
}

func (d *RealDataSource) FetchValidators(rpcURLs []string, consensus, account string, legacy bool) (models.ValidatorSet, error) {
	return rpc.FetchValidators(rpcURLs, consensus, account, legacy)
}

func (d *RealDataSource) FetchTotalStake(rpcURLs []string, consensus string) (models.AmountData, error) {
	return rpc.FetchTotalStake(rpcURLs, consensus)
}

func (d *RealDataSource) FetchBlockReward(rpcURLs []string, blockReward string) (models.AmountData, error) {
	return rpc.FetchBlockReward(rpcURLs, blockReward)
}

func (d *RealDataSource) FetchBlockNumber(rpcURLs []string) (models.BlockNumberData, error) {
	return rpc.FetchBlockNumber(rpcURLs)
}

func (d *RealDataSource) SendDelegate(rpcURLs []string, consensus string, w *wallet.Wallet, validator string, amount *big.Int) (models.TxResult, error) {
	return rpc.SendDelegate(rpcURLs, consensus, w, validator, amount)
}

func (d *RealDataSource) SendWithdraw(rpcURLs []string, consensus string, w *wallet.Wallet, validator string, amount *big.Int) (models.TxResult, error) {
	return rpc.SendWithdraw(rpcURLs, consensus, w, validator, amount)
}

// Dispatcher runs actions against the active network.
type Dispatcher struct {
	store      *store.Store
	contracts  config.ContractsConfig
	wallet     *wallet.Wallet
	logger     *log.Logger
	mu         sync.RWMutex
	dataSource DataSource
}

// NewDispatcher creates a dispatcher writing into st.
func NewDispatcher(st *store.Store, contracts config.ContractsConfig, w *wallet.Wallet, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	if w == nil {
		w = &wallet.Wallet{}
	}
	return &Dispatcher{
		store:      st,
		contracts:  contracts,
		wallet:     w,
		logger:     logger.WithPrefix("actions"),
		dataSource: &RealDataSource{},
	}
}

// SetDataSource allows overriding the data source (useful for testing).
func (d *Dispatcher) SetDataSource(ds DataSource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dataSource = ds
}

func (d *Dispatcher) source() DataSource {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dataSource
}

func (d *Dispatcher) fail(action string, err error) error {
	d.logger.Warn("action failed", "action", action, "err", err)
	d.store.ReportFailure(action, err)
	return fmt.Errorf("%s: %w", action, err)
}

func (d *Dispatcher) logFailedRPCs(action string, failed []string) {
	for _, u := range failed {
		d.logger.Debug("rpc failed", "action", action, "url", u)
	}
}

// Connect reads the chain id of the configured endpoints and connects the
// wallet account when no account is set yet.
func (d *Dispatcher) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.store.AccountAddress() == "" && d.wallet.CanSign() {
		d.store.SetAccountAddress(d.wallet.Address())
	}
	urls := d.store.RPCURLs()
	id, failed, err := d.source().FetchChainID(urls)
	d.logFailedRPCs("connect", failed)
	if err != nil {
		return d.fail("connect", err)
	}
	d.store.SetNetwork(id, urls)
	d.logger.Info("connected", "chain_id", id)
	return nil
}

// WatchNetwork connects, then re-reads the chain id every interval so a node
// moving to another chain shows up as a network change. It returns when ctx
// is done.
func (d *Dispatcher) WatchNetwork(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		// Failures are already reported to the store.
		_ = d.Connect(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// BalanceOfNative refreshes the native balance of address.
func (d *Dispatcher) BalanceOfNative(ctx context.Context, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := d.source().FetchBalance(d.store.RPCURLs(), address)
	d.logFailedRPCs("balance", data.FailedRPCs)
	if err != nil {
		return d.fail("balance", err)
	}
	d.store.SetBalance(address, data.Balance)
	return nil
}

// GetValidators refreshes the current validator set.
func (d *Dispatcher) GetValidators(ctx context.Context) error {
	return d.refreshValidators(ctx, "validators", d.contracts.Consensus, false)
}

// GetOldValidators refreshes the validator set of the legacy consensus
// contract. It is a no-op when no legacy contract is configured.
func (d *Dispatcher) GetOldValidators(ctx context.Context) error {
	if d.contracts.LegacyConsensus == "" {
		return nil
	}
	return d.refreshValidators(ctx, "legacy_validators", d.contracts.LegacyConsensus, true)
}

func (d *Dispatcher) refreshValidators(ctx context.Context, action, contract string, legacy bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	set, err := d.source().FetchValidators(d.store.RPCURLs(), contract, d.store.AccountAddress(), legacy)
	d.logFailedRPCs(action, set.FailedRPCs)
	if err != nil {
		return d.fail(action, err)
	}
	d.store.MergeValidators(set)
	return nil
}

// GetTotalStakeAmount refreshes the network-wide staked amount.
func (d *Dispatcher) GetTotalStakeAmount(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := d.source().FetchTotalStake(d.store.RPCURLs(), d.contracts.Consensus)
	d.logFailedRPCs("total_stake", data.FailedRPCs)
	if err != nil {
		return d.fail("total_stake", err)
	}
	d.store.SetTotalStake(data.Amount)
	return nil
}

// GetBlockRewardAmount refreshes the per-block reward.
func (d *Dispatcher) GetBlockRewardAmount(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := d.source().FetchBlockReward(d.store.RPCURLs(), d.contracts.BlockReward)
	d.logFailedRPCs("block_reward", data.FailedRPCs)
	if err != nil {
		return d.fail("block_reward", err)
	}
	d.store.SetBlockReward(data.Amount)
	return nil
}

// GetBlockNumber refreshes the latest block height.
func (d *Dispatcher) GetBlockNumber(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := d.source().FetchBlockNumber(d.store.RPCURLs())
	d.logFailedRPCs("block_number", data.FailedRPCs)
	if err != nil {
		return d.fail("block_number", err)
	}
	d.store.SetBlockNumber(data.Number)
	return nil
}

// Delegate stakes amount base units with validator.
func (d *Dispatcher) Delegate(ctx context.Context, validator string, amount *big.Int) error {
	return d.submit(ctx, models.SubmitStake, validator, amount, d.source().SendDelegate)
}

// Withdraw unstakes amount base units from validator.
func (d *Dispatcher) Withdraw(ctx context.Context, validator string, amount *big.Int) error {
	return d.submit(ctx, models.SubmitUnstake, validator, amount, d.source().SendWithdraw)
}

type sendFunc func(rpcURLs []string, consensus string, w *wallet.Wallet, validator string, amount *big.Int) (models.TxResult, error)

func (d *Dispatcher) submit(ctx context.Context, kind, validator string, amount *big.Int, send sendFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	contract := d.contracts.Consensus
	if v, ok := d.store.Snapshot().Validators[validator]; ok && v.Legacy && d.contracts.LegacyConsensus != "" {
		contract = d.contracts.LegacyConsensus
	}
	res, err := send(d.store.RPCURLs(), contract, d.wallet, validator, amount)
	if err != nil {
		return d.fail(kind, err)
	}
	d.store.RecordTx(res)
	d.logger.Info("transaction sent", "kind", kind, "validator", validator, "amount", amount.String(), "hash", res.Hash)

	// Receipts land asynchronously; re-read what the transaction changes.
	if err := d.GetValidators(ctx); err != nil {
		d.logger.Debug("post-submit refresh failed", "err", err)
	}
	if err := d.GetOldValidators(ctx); err != nil {
		d.logger.Debug("post-submit refresh failed", "err", err)
	}
	if addr := d.store.AccountAddress(); addr != "" {
		if err := d.BalanceOfNative(ctx, addr); err != nil {
			d.logger.Debug("post-submit refresh failed", "err", err)
		}
	}
	return nil
}

// SwitchNetwork repoints the dashboard at the registered endpoint of chainID.
func (d *Dispatcher) SwitchNetwork(ctx context.Context, chainID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	desc, ok := network.Lookup(chainID)
	if !ok {
		return d.fail("switch_network", fmt.Errorf("%w: %d", ErrUnsupportedNetwork, chainID))
	}
	urls := []string{desc.RPC}
	id, failed, err := d.source().FetchChainID(urls)
	d.logFailedRPCs("switch_network", failed)
	if err != nil {
		return d.fail("switch_network", err)
	}
	d.store.SetNetwork(id, urls)
	d.logger.Info("switched network", "chain", desc.ChainName, "chain_id", id)
	return nil
}
