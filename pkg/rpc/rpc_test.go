package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"dndstake/pkg/models"
	"dndstake/pkg/wallet"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	consensusAddr   = "0x3014ca10b91cb3D0AD85fEf7A3Cb95BCAc9c0f79"
	blockRewardAddr = "0x63D4efeD2e3dA070247bea3073BCaB896dFF6C9B"
	accountAddr     = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	devKey          = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
)

var (
	validatorA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	validatorB = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeNode answers the JSON-RPC calls the dashboard makes against a DND node.
type fakeNode struct {
	mu        sync.Mutex
	rawTxs    []string
	stakes    map[common.Address]*big.Int
	delegated map[common.Address]*big.Int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		stakes: map[common.Address]*big.Int{
			validatorA: mustBig("3000000000000000000000"),
			validatorB: mustBig("1000000000000000000000"),
		},
		delegated: map[common.Address]*big.Int{
			validatorA: mustBig("10000000000000000000"),
			validatorB: mustBig("0"),
		},
	}
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func (n *fakeNode) handleCall(data []byte) (string, error) {
	if len(data) < 4 {
		return "", fmt.Errorf("short call data")
	}
	for _, parsed := range []abi.ABI{consensusABI, blockRewardABI} {
		method, err := parsed.MethodById(data[:4])
		if err != nil {
			continue
		}
		args, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return "", err
		}
		var out []byte
		switch method.Name {
		case "getValidators":
			out, err = method.Outputs.Pack([]common.Address{validatorA, validatorB})
		case "totalStakeAmount":
			out, err = method.Outputs.Pack(mustBig("4000000000000000000000"))
		case "stakeAmount":
			out, err = method.Outputs.Pack(n.stakes[args[0].(common.Address)])
		case "delegatedAmount":
			out, err = method.Outputs.Pack(n.delegated[args[1].(common.Address)])
		case "getBlockRewardAmount":
			out, err = method.Outputs.Pack(mustBig("2000000000000000000"))
		default:
			return "", fmt.Errorf("unexpected call %s", method.Name)
		}
		if err != nil {
			return "", err
		}
		return hexutil.Encode(out), nil
	}
	return "", fmt.Errorf("unknown selector %x", data[:4])
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var result interface{}
	var rpcErr error
	switch req.Method {
	case "eth_chainId":
		result = "0x1cc3"
	case "eth_blockNumber":
		result = "0x10"
	case "eth_getBalance":
		result = "0x22b1c8c1227a0000" // 2.5 DND
	case "eth_getTransactionCount":
		result = "0x3"
	case "eth_gasPrice":
		result = "0x3b9aca00"
	case "eth_estimateGas":
		result = "0x186a0"
	case "eth_call":
		var arg struct {
			Data  hexutil.Bytes `json:"data"`
			Input hexutil.Bytes `json:"input"`
		}
		_ = json.Unmarshal(req.Params[0], &arg)
		data := arg.Input
		if len(data) == 0 {
			data = arg.Data
		}
		result, rpcErr = n.handleCall(data)
	case "eth_sendRawTransaction":
		var raw string
		_ = json.Unmarshal(req.Params[0], &raw)
		n.mu.Lock()
		n.rawTxs = append(n.rawTxs, raw)
		n.mu.Unlock()
		result = "0x" + strings.Repeat("ab", 32)
	default:
		result = "0x0"
	}

	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
	}
	if rpcErr != nil {
		resp["error"] = map[string]interface{}{"code": -32000, "message": rpcErr.Error()}
	} else {
		resp["result"] = result
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) sent(t *testing.T) []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	var txs []*types.Transaction
	for _, raw := range n.rawTxs {
		b, err := hexutil.Decode(raw)
		require.NoError(t, err)
		tx := new(types.Transaction)
		require.NoError(t, tx.UnmarshalBinary(b))
		txs = append(txs, tx)
	}
	return txs
}

func TestFetchChainID(t *testing.T) {
	server := httptest.NewServer(newFakeNode())
	defer server.Close()

	id, failed, err := FetchChainID([]string{server.URL})
	require.NoError(t, err)
	assert.Equal(t, int64(7363), id)
	assert.Empty(t, failed)
}

func TestFetchBalance_Failover(t *testing.T) {
	server := httptest.NewServer(newFakeNode())
	defer server.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer dead.Close()

	data, err := FetchBalance([]string{dead.URL, server.URL}, accountAddr)
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", data.Balance.String())
	assert.Equal(t, []string{dead.URL}, data.FailedRPCs)
}

func TestFetchBalance_AllFail(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer dead.Close()

	_, err := FetchBalance([]string{dead.URL}, accountAddr)
	assert.Error(t, err)

	_, err = FetchBalance(nil, accountAddr)
	assert.ErrorIs(t, err, ErrNoRPC)
}

func TestFetchBlockNumber(t *testing.T) {
	server := httptest.NewServer(newFakeNode())
	defer server.Close()

	data, err := FetchBlockNumber([]string{server.URL})
	require.NoError(t, err)
	assert.Equal(t, uint64(16), data.Number)
}

func TestFetchTotalStakeAndReward(t *testing.T) {
	server := httptest.NewServer(newFakeNode())
	defer server.Close()

	total, err := FetchTotalStake([]string{server.URL}, consensusAddr)
	require.NoError(t, err)
	assert.Equal(t, "4000000000000000000000", total.Amount.String())

	reward, err := FetchBlockReward([]string{server.URL}, blockRewardAddr)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", reward.Amount.String())

	_, err = FetchTotalStake([]string{server.URL}, "")
	assert.ErrorIs(t, err, ErrContractNotConfigured)
}

func TestFetchValidators(t *testing.T) {
	server := httptest.NewServer(newFakeNode())
	defer server.Close()

	set, err := FetchValidators([]string{server.URL}, consensusAddr, accountAddr, false)
	require.NoError(t, err)
	require.Len(t, set.Validators, 2)

	byID := make(map[string]models.ValidatorStake)
	for _, v := range set.Validators {
		byID[v.ValidatorID] = v
	}
	a := byID[validatorA.Hex()]
	assert.Equal(t, "3000000000000000000000", a.TotalStake)
	assert.Equal(t, "10000000000000000000", a.YourStake)
	assert.False(t, a.Legacy)
	assert.Equal(t, "0", byID[validatorB.Hex()].YourStake)
}

func TestFetchValidators_NoAccount(t *testing.T) {
	server := httptest.NewServer(newFakeNode())
	defer server.Close()

	set, err := FetchValidators([]string{server.URL}, consensusAddr, "", true)
	require.NoError(t, err)
	require.Len(t, set.Validators, 2)
	for _, v := range set.Validators {
		assert.Equal(t, "", v.YourStake)
		assert.True(t, v.Legacy)
	}
}

func TestSendDelegate(t *testing.T) {
	node := newFakeNode()
	server := httptest.NewServer(node)
	defer server.Close()

	w, err := wallet.FromHex(devKey)
	require.NoError(t, err)

	amount := mustBig("10000000000000000000")
	res, err := SendDelegate([]string{server.URL}, consensusAddr, w, validatorA.Hex(), amount)
	require.NoError(t, err)
	assert.Equal(t, models.SubmitStake, res.Kind)
	assert.NotEmpty(t, res.Hash)

	txs := node.sent(t)
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, 0, tx.Value().Cmp(amount))
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, common.HexToAddress(consensusAddr), *tx.To())
	assert.Equal(t, consensusABI.Methods["delegate"].ID, tx.Data()[:4])

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(7363)), tx)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), from.Hex())
}

func TestSendWithdraw(t *testing.T) {
	node := newFakeNode()
	server := httptest.NewServer(node)
	defer server.Close()

	w, err := wallet.FromHex(devKey)
	require.NoError(t, err)

	amount := mustBig("5000000000000000000")
	_, err = SendWithdraw([]string{server.URL}, consensusAddr, w, validatorA.Hex(), amount)
	require.NoError(t, err)

	txs := node.sent(t)
	require.Len(t, txs, 1)
	assert.Equal(t, 0, txs[0].Value().Sign())

	args, err := consensusABI.Methods["withdraw"].Inputs.Unpack(txs[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, validatorA, args[0].(common.Address))
	assert.Equal(t, 0, args[1].(*big.Int).Cmp(amount))
}

func TestSend_Rejections(t *testing.T) {
	_, err := SendDelegate([]string{"http://unused"}, consensusAddr, &wallet.Wallet{}, validatorA.Hex(), big.NewInt(1))
	assert.ErrorIs(t, err, wallet.ErrNoSigner)

	w, err := wallet.FromHex(devKey)
	require.NoError(t, err)
	_, err = SendWithdraw([]string{"http://unused"}, consensusAddr, w, "not-an-address", big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidValidatorAddress)

	_, err = SendDelegate([]string{"http://unused"}, "", w, validatorA.Hex(), big.NewInt(1))
	assert.ErrorIs(t, err, ErrContractNotConfigured)
}
