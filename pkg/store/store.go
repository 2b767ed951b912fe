// Package store holds the dashboard's shared state. Only the action layer
// writes to it; views read snapshots and subscribe to change events.
package store

import (
	"math/big"
	"strings"
	"sync"

	"dndstake/pkg/models"
)

// State is a point-in-time copy of the shared state.
type State struct {
	AccountAddress    string                           `json:"account_address"`
	ChainID           int64                            `json:"chain_id"`
	RPCURLs           []string                         `json:"rpc_urls"`
	BlockNumber       uint64                           `json:"block_number"`
	TotalStakeAmount  string                           `json:"total_stake_amount"`
	BlockRewardAmount string                           `json:"block_reward_amount"`
	Balances          map[string]string                `json:"balances"`
	Validators        map[string]models.ValidatorStake `json:"validators"`
	SelectedValidator string                           `json:"selected_validator"`
	LastTx            *models.TxResult                 `json:"last_tx,omitempty"`
}

// Balance returns the native balance of the connected account.
func (s State) Balance() string {
	return s.Balances[strings.ToLower(s.AccountAddress)]
}

// Store is safe for concurrent use.
type Store struct {
	state       State
	names       map[string]string
	subscribers []Subscriber
	mu          sync.RWMutex
}

// New creates a store. names maps lowercased validator addresses to display
// names and is applied to every validator update.
func New(rpcURLs []string, names map[string]string) *Store {
	if names == nil {
		names = make(map[string]string)
	}
	return &Store{
		state: State{
			RPCURLs:    append([]string(nil), rpcURLs...),
			Balances:   make(map[string]string),
			Validators: make(map[string]models.ValidatorStake),
		},
		names: names,
	}
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (s *Store) Subscribe() Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(Subscriber, 100)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (s *Store) Unsubscribe(ch Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (s *Store) notify(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscribers {
		select {
		case sub <- event:
		default:
			// Slow subscriber, drop the event; the next snapshot catches it up.
		}
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := s.state
	cp.RPCURLs = append([]string(nil), s.state.RPCURLs...)
	cp.Balances = make(map[string]string, len(s.state.Balances))
	for k, v := range s.state.Balances {
		cp.Balances[k] = v
	}
	cp.Validators = make(map[string]models.ValidatorStake, len(s.state.Validators))
	for k, v := range s.state.Validators {
		cp.Validators[k] = v
	}
	if s.state.LastTx != nil {
		tx := *s.state.LastTx
		cp.LastTx = &tx
	}
	return cp
}

// RPCURLs returns the endpoints of the active network.
func (s *Store) RPCURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.state.RPCURLs...)
}

// AccountAddress returns the connected account.
func (s *Store) AccountAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccountAddress
}

// SetAccountAddress connects an account. Stakes read for a previous account
// are cleared.
func (s *Store) SetAccountAddress(address string) {
	s.mu.Lock()
	if strings.EqualFold(s.state.AccountAddress, address) {
		s.mu.Unlock()
		return
	}
	s.state.AccountAddress = address
	for id, v := range s.state.Validators {
		v.YourStake = ""
		s.state.Validators[id] = v
	}
	s.mu.Unlock()
	s.notify(Event{Type: EventAccountChanged, Data: address})
}

// SetNetwork records the active chain and the endpoints serving it.
func (s *Store) SetNetwork(chainID int64, rpcURLs []string) {
	s.mu.Lock()
	changed := s.state.ChainID != chainID
	s.state.ChainID = chainID
	if len(rpcURLs) > 0 {
		s.state.RPCURLs = append([]string(nil), rpcURLs...)
	}
	s.mu.Unlock()
	if changed {
		s.notify(Event{Type: EventNetworkChanged, Data: chainID})
	}
}

// SetBalance records the native balance of address.
func (s *Store) SetBalance(address string, balance *big.Int) {
	if balance == nil {
		return
	}
	s.mu.Lock()
	s.state.Balances[strings.ToLower(address)] = balance.String()
	s.mu.Unlock()
	s.notify(Event{Type: EventBalanceUpdated, Data: address})
}

// MergeValidators writes a refreshed validator set. Entries from the other
// set (current vs legacy) are kept; entries of the same set that disappeared
// are dropped.
func (s *Store) MergeValidators(set models.ValidatorSet) {
	s.mu.Lock()
	fresh := make(map[string]bool, len(set.Validators))
	for _, v := range set.Validators {
		id := v.ValidatorID
		fresh[id] = true
		if existing, ok := s.state.Validators[id]; ok && existing.Legacy != set.Legacy {
			// Present in both sets: the current set wins, legacy only adds stake info.
			if set.Legacy {
				continue
			}
		}
		if name, ok := s.names[strings.ToLower(id)]; ok && v.Name == "" {
			v.Name = name
		}
		s.state.Validators[id] = v
	}
	for id, v := range s.state.Validators {
		if v.Legacy == set.Legacy && !fresh[id] {
			delete(s.state.Validators, id)
		}
	}
	if s.state.SelectedValidator == "" && len(set.Validators) > 0 && !set.Legacy {
		s.state.SelectedValidator = set.Validators[0].ValidatorID
	}
	s.mu.Unlock()
	s.notify(Event{Type: EventValidatorsUpdated, Data: len(set.Validators)})
}

// SelectValidator marks id as the target of stake and unstake submissions.
func (s *Store) SelectValidator(id string) {
	s.mu.Lock()
	if s.state.SelectedValidator == id {
		s.mu.Unlock()
		return
	}
	s.state.SelectedValidator = id
	s.mu.Unlock()
	s.notify(Event{Type: EventSelectionChanged, Data: id})
}

// SetTotalStake records the network-wide staked amount.
func (s *Store) SetTotalStake(amount *big.Int) {
	if amount == nil {
		return
	}
	s.mu.Lock()
	s.state.TotalStakeAmount = amount.String()
	s.mu.Unlock()
	s.notify(Event{Type: EventTotalStakeUpdated, Data: amount.String()})
}

// SetBlockReward records the per-block reward.
func (s *Store) SetBlockReward(amount *big.Int) {
	if amount == nil {
		return
	}
	s.mu.Lock()
	s.state.BlockRewardAmount = amount.String()
	s.mu.Unlock()
	s.notify(Event{Type: EventBlockRewardUpdated, Data: amount.String()})
}

// SetBlockNumber records the latest block height.
func (s *Store) SetBlockNumber(n uint64) {
	s.mu.Lock()
	s.state.BlockNumber = n
	s.mu.Unlock()
	s.notify(Event{Type: EventBlockNumberUpdated, Data: n})
}

// RecordTx stores the last submitted transaction.
func (s *Store) RecordTx(tx models.TxResult) {
	s.mu.Lock()
	s.state.LastTx = &tx
	s.mu.Unlock()
	s.notify(Event{Type: EventTransactionSent, Data: tx})
}

// ReportFailure broadcasts a failed refresh without touching state.
func (s *Store) ReportFailure(action string, err error) {
	s.notify(Event{Type: EventRefreshFailed, Data: Failure{Action: action, Error: err.Error()}})
}
