package store

// EventType defines the type of state change being broadcast.
type EventType string

const (
	EventAccountChanged     EventType = "account_changed"
	EventNetworkChanged     EventType = "network_changed"
	EventBalanceUpdated     EventType = "balance_updated"
	EventValidatorsUpdated  EventType = "validators_updated"
	EventSelectionChanged   EventType = "selection_changed"
	EventTotalStakeUpdated  EventType = "total_stake_updated"
	EventBlockRewardUpdated EventType = "block_reward_updated"
	EventBlockNumberUpdated EventType = "block_number_updated"
	EventTransactionSent    EventType = "transaction_sent"
	EventRefreshFailed      EventType = "refresh_failed"
)

// Event represents a state change.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Failure describes a refresh that did not complete.
type Failure struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
