package rpc

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Consensus contract ABI for the staking functions the dashboard uses.
const consensusABIJSON = `[
	{
		"inputs": [],
		"name": "getValidators",
		"outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalStakeAmount",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "_address", "type": "address"}],
		"name": "stakeAmount",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "_address", "type": "address"},
			{"internalType": "address", "name": "_validator", "type": "address"}
		],
		"name": "delegatedAmount",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "_validator", "type": "address"}],
		"name": "delegate",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "_validator", "type": "address"},
			{"internalType": "uint256", "name": "_amount", "type": "uint256"}
		],
		"name": "withdraw",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const blockRewardABIJSON = `[
	{
		"inputs": [],
		"name": "getBlockRewardAmount",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	consensusABI   = mustParseABI(consensusABIJSON)
	blockRewardABI = mustParseABI(blockRewardABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("rpc: invalid contract ABI: " + err.Error())
	}
	return parsed
}
