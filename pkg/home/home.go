// Package home drives the dashboard's main view: it decides which refreshes
// to dispatch as state changes and derives the figures the view displays.
package home

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"dndstake/pkg/analytics"
	"dndstake/pkg/models"
	"dndstake/pkg/network"
	"dndstake/pkg/store"
	"dndstake/pkg/utils"

	"github.com/charmbracelet/log"
)

// DefaultPollInterval is the block-number refresh period.
const DefaultPollInterval = 10 * time.Second

// ErrNoValidatorSelected is returned by Submit when there is no target validator.
var ErrNoValidatorSelected = errors.New("no validator selected")

// Actions is the asynchronous command interface of the chain action layer.
type Actions interface {
	BalanceOfNative(ctx context.Context, address string) error
	GetValidators(ctx context.Context) error
	GetOldValidators(ctx context.Context) error
	GetTotalStakeAmount(ctx context.Context) error
	GetBlockRewardAmount(ctx context.Context) error
	GetBlockNumber(ctx context.Context) error
	Delegate(ctx context.Context, validator string, amount *big.Int) error
	Withdraw(ctx context.Context, validator string, amount *big.Int) error
	SwitchNetwork(ctx context.Context, chainID int64) error
}

// Transition reports which triggers fired for an observed state.
type Transition struct {
	AccountChanged bool
	NetworkChanged bool
	ShowModal      bool
}

// Controller reacts to account and network changes, polls the block number
// and submits stake forms. It never writes to the store itself.
type Controller struct {
	store        *store.Store
	actions      Actions
	tracker      analytics.Tracker
	logger       *log.Logger
	pollInterval time.Duration

	mu          sync.Mutex
	mounted     bool
	lastAddress string
	lastChainID int64
	modalShown  bool
	pollCancel  context.CancelFunc
	pollDone    chan struct{}

	wg sync.WaitGroup
}

// NewController creates a controller. A zero pollInterval uses DefaultPollInterval.
func NewController(st *store.Store, actions Actions, tracker analytics.Tracker, pollInterval time.Duration, logger *log.Logger) *Controller {
	if tracker == nil {
		tracker = analytics.Noop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Controller{
		store:        st,
		actions:      actions,
		tracker:      tracker,
		logger:       logger.WithPrefix("home"),
		pollInterval: pollInterval,
	}
}

// dispatch runs fn in the background. Errors are already reported by the
// action layer, so they are only logged here.
func (c *Controller) dispatch(ctx context.Context, name string, fn func(context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := fn(ctx); err != nil {
			c.logger.Debug("refresh failed", "action", name, "err", err)
		}
	}()
}

// Wait blocks until every dispatched action has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Mount issues the one-time validator refresh. Later calls do nothing.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mu.Unlock()

	c.dispatch(ctx, "validators", c.actions.GetValidators)
	c.dispatch(ctx, "legacy_validators", c.actions.GetOldValidators)
}

// Observe compares st with the last observed state and dispatches the
// refreshes its account and network triggers call for.
func (c *Controller) Observe(ctx context.Context, st store.State) Transition {
	var tr Transition

	c.mu.Lock()
	address := st.AccountAddress
	if address != "" && !strings.EqualFold(address, c.lastAddress) {
		tr.AccountChanged = true
	}
	c.lastAddress = address

	reloadValidators := false
	if st.ChainID != 0 && st.ChainID != c.lastChainID {
		tr.NetworkChanged = true
		wasMismatch := c.lastChainID != 0 && network.Mismatch(c.lastChainID)
		mismatch := network.Mismatch(st.ChainID)
		tr.ShowModal = mismatch
		c.modalShown = mismatch
		// Validators read against the wrong chain are stale or missing.
		reloadValidators = !mismatch && (wasMismatch || len(st.Validators) == 0)
	}
	c.lastChainID = st.ChainID
	c.mu.Unlock()

	if tr.AccountChanged {
		c.dispatch(ctx, "balance", func(ctx context.Context) error {
			return c.actions.BalanceOfNative(ctx, address)
		})
	}
	// Per-validator stakes belong to the previous account or chain.
	if tr.AccountChanged || reloadValidators {
		c.dispatch(ctx, "validators", c.actions.GetValidators)
		c.dispatch(ctx, "legacy_validators", c.actions.GetOldValidators)
	}
	if tr.NetworkChanged {
		if address != "" && !tr.AccountChanged {
			c.dispatch(ctx, "balance", func(ctx context.Context) error {
				return c.actions.BalanceOfNative(ctx, address)
			})
		}
		c.dispatch(ctx, "total_stake", c.actions.GetTotalStakeAmount)
		c.dispatch(ctx, "block_reward", c.actions.GetBlockRewardAmount)
		c.dispatch(ctx, "block_number", c.actions.GetBlockNumber)
		if tr.ShowModal {
			c.logger.Warn("unsupported network", "chain_id", st.ChainID)
		}
	}
	return tr
}

// ModalShown reports whether the unsupported-network prompt is up.
func (c *Controller) ModalShown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modalShown
}

// StartPolling starts the block-number ticker. Only one ticker runs at a
// time; calls while it is running do nothing.
func (c *Controller) StartPolling(ctx context.Context) {
	c.mu.Lock()
	if c.pollCancel != nil {
		c.mu.Unlock()
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.pollCancel = cancel
	c.pollDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.actions.GetBlockNumber(pctx); err != nil {
					c.logger.Debug("block number poll failed", "err", err)
				}
			case <-pctx.Done():
				return
			}
		}
	}()
}

// Polling reports whether the ticker is running.
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollCancel != nil
}

// Stop disposes of the ticker and waits for it to exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.pollCancel, c.pollDone
	c.pollCancel, c.pollDone = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Run mounts the view, starts polling and re-observes the store on every
// event until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	sub := c.store.Subscribe()
	defer c.store.Unsubscribe(sub)

	c.Mount(ctx)
	c.StartPolling(ctx)
	defer c.Stop()
	c.Observe(ctx, c.store.Snapshot())

	for {
		select {
		case _, ok := <-sub:
			if !ok {
				return
			}
			// Events can be dropped, so any of them re-checks the triggers.
			c.Observe(ctx, c.store.Snapshot())
		case <-ctx.Done():
			return
		}
	}
}

// Refresh re-reads everything the view shows.
func (c *Controller) Refresh(ctx context.Context) {
	st := c.store.Snapshot()
	if st.AccountAddress != "" {
		c.dispatch(ctx, "balance", func(ctx context.Context) error {
			return c.actions.BalanceOfNative(ctx, st.AccountAddress)
		})
	}
	c.dispatch(ctx, "validators", c.actions.GetValidators)
	c.dispatch(ctx, "legacy_validators", c.actions.GetOldValidators)
	c.dispatch(ctx, "total_stake", c.actions.GetTotalStakeAmount)
	c.dispatch(ctx, "block_reward", c.actions.GetBlockRewardAmount)
	c.dispatch(ctx, "block_number", c.actions.GetBlockNumber)
}

// SwitchNetwork asks the action layer to move to the supported chain.
func (c *Controller) SwitchNetwork(ctx context.Context) error {
	return c.actions.SwitchNetwork(ctx, network.DND)
}

// Submit converts the form amount to base units and stakes or unstakes it
// with the selected validator. Every submission is tracked, including ones
// that are rejected or whose type issues no action.
func (c *Controller) Submit(ctx context.Context, req models.SubmitRequest) error {
	st := c.store.Snapshot()
	validator := st.SelectedValidator
	c.track(ctx, SubmitEvent(req, st.Validators[validator].Name, validator))

	if req.SubmitType != models.SubmitStake && req.SubmitType != models.SubmitUnstake {
		c.logger.Debug("ignoring submit", "type", req.SubmitType)
		return nil
	}

	if validator == "" {
		return ErrNoValidatorSelected
	}
	amount, err := utils.ToBaseUnits(req.Amount, utils.NativeDecimals)
	if err != nil {
		return fmt.Errorf("%w: %q", err, req.Amount)
	}
	if amount.Sign() == 0 {
		return fmt.Errorf("%w: amount must be greater than zero", utils.ErrInvalidAmount)
	}

	if req.SubmitType == models.SubmitStake {
		return c.actions.Delegate(ctx, validator, amount)
	}
	return c.actions.Withdraw(ctx, validator, amount)
}

// SubmitEvent builds the analytics event recorded for a stake form submission.
func SubmitEvent(req models.SubmitRequest, validatorName, validatorID string) analytics.Event {
	return analytics.Event{
		Category: "action",
		Action:   "Action - " + req.SubmitType,
		Label:    fmt.Sprintf("%s %s into pool: %s %s", req.SubmitType, req.Amount, validatorName, validatorID),
	}
}

// track sends ev without holding up the caller; failures are only logged.
func (c *Controller) track(ctx context.Context, ev analytics.Event) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := c.tracker.Track(tctx, ev); err != nil {
			c.logger.Warn("analytics event failed", "action", ev.Action, "err", err)
		}
	}()
}
