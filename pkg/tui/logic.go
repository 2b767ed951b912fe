package tui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"dndstake/pkg/config"
	"dndstake/pkg/home"
	"dndstake/pkg/models"
	"dndstake/pkg/network"
	"dndstake/pkg/staking"
	"dndstake/pkg/store"
	"dndstake/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// syncState refreshes the cached snapshot and everything derived from it.
func (m *model) syncState() {
	selectedID := ""
	if m.cursor < len(m.validators) {
		selectedID = m.validators[m.cursor].ValidatorID
	}

	m.state = m.store.Snapshot()
	m.dash = home.Derive(m.state)
	m.validators = staking.Sorted(m.state.Validators)
	if m.ctrl != nil {
		m.showModal = m.ctrl.ModalShown()
	}

	// Keep the cursor on the same validator across refreshes.
	if selectedID == "" {
		selectedID = m.state.SelectedValidator
	}
	m.cursor = 0
	for i, v := range m.validators {
		if v.ValidatorID == selectedID {
			m.cursor = i
			break
		}
	}
	if m.showDetail {
		m.updateDetailViewport()
	}
}

func (m *model) appendStakePoint(now time.Time) {
	m.stakeHistory = append(m.stakeHistory, models.StakePoint{Timestamp: now, Value: m.dash.TotalStaked})
	if len(m.stakeHistory) > maxHistory {
		m.stakeHistory = m.stakeHistory[len(m.stakeHistory)-maxHistory:]
	}
}

func (m model) historyValues() []float64 {
	values := make([]float64, len(m.stakeHistory))
	for i, p := range m.stakeHistory {
		values[i] = p.Value
	}
	return values
}

func (m model) cursorValidator() (models.ValidatorStake, bool) {
	if m.cursor < 0 || m.cursor >= len(m.validators) {
		return models.ValidatorStake{}, false
	}
	return m.validators[m.cursor], true
}

// maxAmount is the full amount available for the current tab: the native
// balance for stake, the stake with the selected validator for unstake.
func (m model) maxAmount() string {
	var amount *big.Int
	if m.submitType == models.SubmitUnstake {
		amount = staking.SelectedStake(m.state.Validators, m.state.SelectedValidator)
	} else {
		amount, _ = utils.ParseBaseUnits(m.state.Balance())
	}
	if amount == nil {
		return "0"
	}
	s := utils.FormatUnits(amount, utils.NativeDecimals, utils.NativeDecimals)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" {
		return "0"
	}
	return s
}

func (m model) explorer() network.ChainDescriptor {
	if d, ok := network.Lookup(m.state.ChainID); ok {
		return d
	}
	return network.Supported()
}

// persistSelection writes the selected validator back to the config file.
func (m model) persistSelection(id string) tea.Cmd {
	if m.configPath == "" {
		return nil
	}
	cfg := m.config
	cfg.SelectedValidator = id
	path := m.configPath
	return func() tea.Msg {
		if err := config.SaveConfig(cfg, path); err != nil {
			return statusMsg(fmt.Sprintf("Failed to save selection: %v", err))
		}
		return nil
	}
}

type statusMsg string

func (m *model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	return tea.Tick(time.Second*3, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m model) submitCmd(req models.SubmitRequest) tea.Cmd {
	return func() tea.Msg {
		err := m.ctrl.Submit(m.ctx, req)
		return submitResultMsg{kind: req.SubmitType, amount: req.Amount, err: err}
	}
}

func (m model) switchCmd() tea.Cmd {
	return func() tea.Msg {
		return switchResultMsg{err: m.ctrl.SwitchNetwork(m.ctx)}
	}
}

func (m *model) updateDetailViewport() {
	v, ok := m.cursorValidator()
	if !ok {
		m.viewport.SetContent("No validator selected.")
		return
	}
	name := v.Name
	if name == "" {
		name = "Unnamed"
	}
	kind := "current"
	if v.Legacy {
		kind = "legacy"
	}
	rows := []string{
		subtleStyle.Render("Validator"),
		fmt.Sprintf("  %-12s %s", "Name", name),
		fmt.Sprintf("  %-12s %s", "Address", v.ValidatorID),
		fmt.Sprintf("  %-12s %s", "Contract", kind),
		fmt.Sprintf("  %-12s %s DND", "Total stake", m.displayValue(utils.ToDisplayNumber(v.TotalStake, utils.NativeDecimals))),
		fmt.Sprintf("  %-12s %s DND", "Your stake", m.displayValue(utils.ToDisplayNumber(v.YourStake, utils.NativeDecimals))),
		fmt.Sprintf("  %-12s %s", "Explorer", m.explorer().AddressURL(v.ValidatorID)),
	}
	if tx := m.state.LastTx; tx != nil && strings.EqualFold(tx.Validator, v.ValidatorID) {
		rows = append(rows, "",
			subtleStyle.Render("Last transaction"),
			fmt.Sprintf("  %-12s %s", "Kind", tx.Kind),
			fmt.Sprintf("  %-12s %s DND", "Amount", utils.FormatUnits(tx.Amount, utils.NativeDecimals, m.config.DisplayDecimals)),
			fmt.Sprintf("  %-12s %s", "Hash", tx.Hash),
			fmt.Sprintf("  %-12s %s", "Submitted", tx.Submitted.Format(time.RFC1123)),
		)
	}
	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// listenForStore waits for the next event on an existing subscription.
func listenForStore(sub store.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}
