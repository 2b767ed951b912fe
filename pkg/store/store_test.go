package store

import (
	"math/big"
	"testing"
	"time"

	"dndstake/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	s := New(nil, nil)
	sub := s.Subscribe()
	assert.NotNil(t, sub)

	s.mu.RLock()
	assert.Equal(t, 1, len(s.subscribers))
	s.mu.RUnlock()

	s.Unsubscribe(sub)
	s.mu.RLock()
	assert.Equal(t, 0, len(s.subscribers))
	s.mu.RUnlock()

	_, open := <-sub
	assert.False(t, open)
}

func TestSetters_Notify(t *testing.T) {
	s := New([]string{"http://a"}, nil)
	sub := s.Subscribe()

	s.SetAccountAddress("0xAbC")
	s.SetNetwork(7363, []string{"http://b"})
	s.SetBalance("0xabc", big.NewInt(5))
	s.SetTotalStake(big.NewInt(10))
	s.SetBlockReward(big.NewInt(2))
	s.SetBlockNumber(42)

	want := []EventType{
		EventAccountChanged,
		EventNetworkChanged,
		EventBalanceUpdated,
		EventTotalStakeUpdated,
		EventBlockRewardUpdated,
		EventBlockNumberUpdated,
	}
	timeout := time.After(time.Second)
	for _, w := range want {
		select {
		case ev := <-sub:
			assert.Equal(t, w, ev.Type)
		case <-timeout:
			t.Fatalf("timed out waiting for %s", w)
		}
	}

	st := s.Snapshot()
	assert.Equal(t, "0xAbC", st.AccountAddress)
	assert.Equal(t, int64(7363), st.ChainID)
	assert.Equal(t, []string{"http://b"}, st.RPCURLs)
	assert.Equal(t, "5", st.Balance())
	assert.Equal(t, "10", st.TotalStakeAmount)
	assert.Equal(t, "2", st.BlockRewardAmount)
	assert.Equal(t, uint64(42), st.BlockNumber)
}

func TestSetNetwork_SameChainNoEvent(t *testing.T) {
	s := New(nil, nil)
	s.SetNetwork(7363, nil)
	sub := s.Subscribe()
	s.SetNetwork(7363, nil)
	select {
	case ev := <-sub:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New(nil, nil)
	s.MergeValidators(models.ValidatorSet{Validators: []models.ValidatorStake{{ValidatorID: "0xa", YourStake: "1"}}})

	st := s.Snapshot()
	st.Validators["0xa"] = models.ValidatorStake{ValidatorID: "0xa", YourStake: "999"}
	st.Balances["x"] = "1"

	again := s.Snapshot()
	assert.Equal(t, "1", again.Validators["0xa"].YourStake)
	assert.Empty(t, again.Balances)
}

func TestMergeValidators(t *testing.T) {
	s := New(nil, map[string]string{"0xa": "Pool A"})

	s.MergeValidators(models.ValidatorSet{Validators: []models.ValidatorStake{
		{ValidatorID: "0xA", YourStake: "1"},
		{ValidatorID: "0xB", YourStake: "2"},
	}})
	s.MergeValidators(models.ValidatorSet{Legacy: true, Validators: []models.ValidatorStake{
		{ValidatorID: "0xB", YourStake: "7", Legacy: true},
		{ValidatorID: "0xC", YourStake: "3", Legacy: true},
	}})

	st := s.Snapshot()
	require.Len(t, st.Validators, 3)
	assert.Equal(t, "Pool A", st.Validators["0xA"].Name)
	assert.Equal(t, "2", st.Validators["0xB"].YourStake)
	assert.False(t, st.Validators["0xB"].Legacy)
	assert.True(t, st.Validators["0xC"].Legacy)
	assert.Equal(t, "0xA", st.SelectedValidator)

	// A refreshed current set drops validators that left it, keeps legacy ones.
	s.MergeValidators(models.ValidatorSet{Validators: []models.ValidatorStake{
		{ValidatorID: "0xB", YourStake: "2"},
	}})
	st = s.Snapshot()
	assert.Len(t, st.Validators, 2)
	assert.Contains(t, st.Validators, "0xB")
	assert.Contains(t, st.Validators, "0xC")
}

func TestSetAccountAddress_ClearsStakes(t *testing.T) {
	s := New(nil, nil)
	s.SetAccountAddress("0x1")
	s.MergeValidators(models.ValidatorSet{Validators: []models.ValidatorStake{{ValidatorID: "0xa", YourStake: "5", TotalStake: "9"}}})

	s.SetAccountAddress("0x2")
	st := s.Snapshot()
	assert.Equal(t, "", st.Validators["0xa"].YourStake)
	assert.Equal(t, "9", st.Validators["0xa"].TotalStake)
}

func TestSelectValidator(t *testing.T) {
	s := New(nil, nil)
	sub := s.Subscribe()
	s.SelectValidator("0xa")
	s.SelectValidator("0xa")

	ev := <-sub
	assert.Equal(t, EventSelectionChanged, ev.Type)
	select {
	case ev := <-sub:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
	assert.Equal(t, "0xa", s.Snapshot().SelectedValidator)
}
