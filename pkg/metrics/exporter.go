// Package metrics exports dashboard state as Prometheus gauges.
package metrics

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"dndstake/pkg/home"
	"dndstake/pkg/store"
	"dndstake/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const DefaultPrefix = "dndstake"

type Exporter struct {
	registry       *prometheus.Registry
	store          *store.Store
	blockNumber    *prometheus.GaugeVec
	totalStake     *prometheus.GaugeVec
	accountStake   *prometheus.GaugeVec
	balance        *prometheus.GaugeVec
	blockReward    *prometheus.GaugeVec
	mismatch       *prometheus.GaugeVec
	validatorStake *prometheus.GaugeVec
	refreshFailed  *prometheus.CounterVec

	mu      sync.Mutex
	written labelSets
}

// NewExporter builds the gauges on a private registry, along with the
// process and Go runtime collectors.
func NewExporter(st *store.Store, prefix string) *Exporter {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	e := &Exporter{
		registry: prometheus.NewRegistry(),
		store:    st,
		blockNumber: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_block_number",
			Help: "Latest block number seen by the dashboard",
		}, []string{"chain_id"}),
		totalStake: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_total_stake",
			Help: "Network-wide staked amount in DND",
		}, []string{"chain_id"}),
		accountStake: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_account_stake",
			Help: "Total staked by the connected account across validators in DND",
		}, []string{"chain_id", "account"}),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_account_balance",
			Help: "Native balance of the connected account in DND",
		}, []string{"chain_id", "account"}),
		blockReward: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_block_reward",
			Help: "Per-block reward in DND",
		}, []string{"chain_id"}),
		mismatch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_network_mismatch",
			Help: "Whether the active chain is unsupported (1=unsupported, 0=ok)",
		}, []string{"chain_id"}),
		validatorStake: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_validator_stake",
			Help: "Amount staked by the connected account with a validator in DND",
		}, []string{"chain_id", "validator", "name", "legacy"}),
		refreshFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_refresh_failures_total",
			Help: "Failed chain reads and transactions",
		}, []string{"action"}),
	}

	e.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		e.blockNumber,
		e.totalStake,
		e.accountStake,
		e.balance,
		e.blockReward,
		e.mismatch,
		e.validatorStake,
		e.refreshFailed,
	)
	return e
}

// Registry is the gatherer the /metrics handler serves.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Start updates the gauges on every store event until ctx is done.
func (e *Exporter) Start(ctx context.Context) {
	sub := e.store.Subscribe()
	defer e.store.Unsubscribe(sub)

	e.Update()
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if ev.Type == store.EventRefreshFailed {
				if f, ok := ev.Data.(store.Failure); ok {
					e.refreshFailed.WithLabelValues(f.Action).Inc()
				}
				continue
			}
			e.Update()
		case <-ctx.Done():
			return
		}
	}
}

// Update writes the current state into the gauges in place. Label sets
// written by the previous update and not by this one are deleted, so a
// scrape never sees a gauge that is about to be rewritten go missing.
func (e *Exporter) Update() {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.store.Snapshot()
	d := home.Derive(st)
	chainID := strconv.FormatInt(st.ChainID, 10)
	cur := make(labelSets)

	cur.set(e.blockNumber, float64(d.BlockNumber), chainID)
	cur.set(e.totalStake, d.TotalStaked, chainID)
	cur.set(e.blockReward, d.BlockReward, chainID)

	mismatch := 0.0
	if d.Mismatch {
		mismatch = 1.0
	}
	cur.set(e.mismatch, mismatch, chainID)

	if st.AccountAddress != "" {
		cur.set(e.accountStake, d.YourTotalStaked, chainID, st.AccountAddress)
		cur.set(e.balance, d.Balance, chainID, st.AccountAddress)
	}

	for id, v := range st.Validators {
		stake := utils.ToDisplayNumber(v.YourStake, utils.NativeDecimals)
		cur.set(e.validatorStake, stake, chainID, id, v.Name, strconv.FormatBool(v.Legacy))
	}

	// Chain, account and validator changes leave series behind.
	for vec, prev := range e.written {
		for key, labels := range prev {
			if _, ok := cur[vec][key]; !ok {
				vec.DeleteLabelValues(labels...)
			}
		}
	}
	e.written = cur
}

// labelSets records the label values written per gauge during one update.
type labelSets map[*prometheus.GaugeVec]map[string][]string

func (l labelSets) set(vec *prometheus.GaugeVec, v float64, labels ...string) {
	vec.WithLabelValues(labels...).Set(v)
	if l[vec] == nil {
		l[vec] = make(map[string][]string)
	}
	l[vec][strings.Join(labels, "\x00")] = labels
}
