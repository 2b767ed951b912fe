package home

import (
	"dndstake/pkg/network"
	"dndstake/pkg/staking"
	"dndstake/pkg/store"
	"dndstake/pkg/utils"
)

// Dashboard holds the display values of the main view.
type Dashboard struct {
	ChainID           int64   `json:"chain_id"`
	AccountAddress    string  `json:"account_address"`
	BlockNumber       uint64  `json:"block_number"`
	Balance           float64 `json:"balance"`
	YourTotalStaked   float64 `json:"your_total_staked"`
	TotalStaked       float64 `json:"total_staked"`
	BlockReward       float64 `json:"block_reward"`
	SelectedValidator string  `json:"selected_validator"`
	SelectedName      string  `json:"selected_name"`
	YourStake         float64 `json:"your_stake"`
	ValidatorCount    int     `json:"validator_count"`
	Mismatch          bool    `json:"network_mismatch"`
}

// Derive computes the display values for st. An unknown chain id (zero) is
// not treated as a mismatch.
func Derive(st store.State) Dashboard {
	d := Dashboard{
		ChainID:           st.ChainID,
		AccountAddress:    st.AccountAddress,
		BlockNumber:       st.BlockNumber,
		Balance:           utils.ToDisplayNumber(st.Balance(), utils.NativeDecimals),
		YourTotalStaked:   utils.WeiToNumber(staking.AggregateStake(st.Validators), utils.NativeDecimals),
		TotalStaked:       utils.ToDisplayNumber(st.TotalStakeAmount, utils.NativeDecimals),
		BlockReward:       utils.ToDisplayNumber(st.BlockRewardAmount, utils.NativeDecimals),
		SelectedValidator: st.SelectedValidator,
		YourStake:         utils.WeiToNumber(staking.SelectedStake(st.Validators, st.SelectedValidator), utils.NativeDecimals),
		ValidatorCount:    len(st.Validators),
		Mismatch:          st.ChainID != 0 && network.Mismatch(st.ChainID),
	}
	if v, ok := st.Validators[st.SelectedValidator]; ok {
		d.SelectedName = v.Name
	}
	return d
}

// Dashboard derives display values from the current store state.
func (c *Controller) Dashboard() Dashboard {
	return Derive(c.store.Snapshot())
}
