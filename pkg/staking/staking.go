// Package staking derives stake figures from the validator mapping.
package staking

import (
	"math/big"
	"sort"

	"dndstake/pkg/models"
	"dndstake/pkg/utils"
)

// AggregateStake sums YourStake over every validator with exact integer
// arithmetic. Missing or malformed amounts count as zero.
func AggregateStake(validators map[string]models.ValidatorStake) *big.Int {
	total := new(big.Int)
	for _, v := range validators {
		if amount, ok := utils.ParseBaseUnits(v.YourStake); ok {
			total.Add(total, amount)
		}
	}
	return total
}

// SelectedStake returns the connected account's stake with one validator.
func SelectedStake(validators map[string]models.ValidatorStake, id string) *big.Int {
	v, ok := validators[id]
	if !ok {
		return new(big.Int)
	}
	amount, ok := utils.ParseBaseUnits(v.YourStake)
	if !ok {
		return new(big.Int)
	}
	return amount
}

// Sorted lists validators by total stake, largest first, with id as tiebreak.
func Sorted(validators map[string]models.ValidatorStake) []models.ValidatorStake {
	out := make([]models.ValidatorStake, 0, len(validators))
	for _, v := range validators {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := utils.ParseBaseUnits(out[i].TotalStake)
		b, _ := utils.ParseBaseUnits(out[j].TotalStake)
		if a == nil {
			a = new(big.Int)
		}
		if b == nil {
			b = new(big.Int)
		}
		if c := a.Cmp(b); c != 0 {
			return c > 0
		}
		return out[i].ValidatorID < out[j].ValidatorID
	})
	return out
}
