package models

import (
	"math/big"
	"time"
)

// Submit types accepted by the stake form.
const (
	SubmitStake   = "stake"
	SubmitUnstake = "unstake"
)

// ValidatorStake holds the staking figures of one validator. Amounts are
// base-unit integers encoded as decimal strings.
type ValidatorStake struct {
	ValidatorID string `json:"validator_id"`
	Name        string `json:"name,omitempty"`
	YourStake   string `json:"your_stake,omitempty"`
	TotalStake  string `json:"total_stake,omitempty"`
	Legacy      bool   `json:"legacy,omitempty"`
}

// ValidatorSet is the result of a validator list refresh.
type ValidatorSet struct {
	Validators []ValidatorStake
	Legacy     bool
	FailedRPCs []string
}

// BalanceData contains a native balance read.
type BalanceData struct {
	Address    string
	Balance    *big.Int
	FailedRPCs []string
}

// AmountData contains a single uint256 read such as total stake or block reward.
type AmountData struct {
	Amount     *big.Int
	FailedRPCs []string
}

// BlockNumberData contains the latest block height.
type BlockNumberData struct {
	Number     uint64
	FailedRPCs []string
}

// TxResult describes a submitted delegate or withdraw transaction.
type TxResult struct {
	Hash      string
	Validator string
	Amount    *big.Int
	Kind      string
	Submitted time.Time
}

// SubmitRequest is the stake form payload. Amount is a display amount.
type SubmitRequest struct {
	Amount     string `json:"amount"`
	SubmitType string `json:"submit_type"`
}

// StakePoint holds a timestamped total-staked value for the history graph.
type StakePoint struct {
	Timestamp time.Time
	Value     float64
}

// ChainResult holds test results for the configured chain.
type ChainResult struct {
	Name            string      `json:"name"`
	Symbol          string      `json:"symbol"`
	ConfigChainID   int64       `json:"config_chain_id"`
	RPCs            []RPCResult `json:"rpcs"`
	Inconsistent    bool        `json:"inconsistent"`
	ObservedChainID int64       `json:"observed_chain_id,omitempty"`
	Unsupported     bool        `json:"unsupported"`
}

// RPCResult holds test results for a specific RPC URL.
type RPCResult struct {
	URL         string `json:"url"`
	Status      string `json:"status"` // "ok" or "error"
	ChainID     int64  `json:"chain_id,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	Error       string `json:"error,omitempty"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string      `json:"config_path"`
	ValidStructure  bool        `json:"valid_structure"`
	StructureErrors []string    `json:"structure_errors,omitempty"`
	Account         string      `json:"account,omitempty"`
	ValidatorCount  int         `json:"validator_count"`
	Chain           ChainResult `json:"chain"`
	ConfigUpdated   bool        `json:"config_updated"`
	SaveError       string      `json:"save_error,omitempty"`
	DryRun          bool        `json:"dry_run"`
}
