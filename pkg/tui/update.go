package tui

import (
	"errors"
	"fmt"
	"time"

	"dndstake/pkg/models"
	"dndstake/pkg/store"
	"dndstake/pkg/utils"
	"dndstake/pkg/wallet"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport = viewport.New(msg.Width-8, msg.Height-10)
		if m.showDetail {
			m.updateDetailViewport()
		}

	case store.Event:
		// Keep listening on the same subscription.
		cmds = append(cmds, listenForStore(m.sub))

		m.syncState()
		switch msg.Type {
		case store.EventTotalStakeUpdated:
			m.appendStakePoint(time.Now())
		case store.EventValidatorsUpdated, store.EventBlockNumberUpdated:
			m.loading = false
		case store.EventRefreshFailed:
			if f, ok := msg.Data.(store.Failure); ok {
				cmds = append(cmds, m.setStatus(fmt.Sprintf("Refresh failed (%s): %s", f.Action, utils.TruncateString(f.Error, 60))))
			}
		}
		m.lastUpdate = time.Now()

	case submitResultMsg:
		m.submitting = false
		if msg.err != nil {
			text := fmt.Sprintf("%s failed: %v", msg.kind, msg.err)
			if errors.Is(msg.err, wallet.ErrNoSigner) {
				text = "No signing key loaded, dashboard is read-only"
			}
			cmds = append(cmds, m.setStatus(text))
			break
		}
		m.amountInput.SetValue("")
		cmds = append(cmds, m.setStatus(fmt.Sprintf("%s of %s DND submitted", msg.kind, msg.amount)))

	case switchResultMsg:
		m.switching = false
		if msg.err != nil {
			cmds = append(cmds, m.setStatus(fmt.Sprintf("Network switch failed: %v", msg.err)))
		} else {
			cmds = append(cmds, m.setStatus("Switched to DynoChain"))
		}

	case statusMsg:
		cmds = append(cmds, m.setStatus(string(msg)))

	case tea.KeyMsg:
		return m.handleKey(msg)

	case uiTickMsg:
		if m.ctrl != nil {
			m.showModal = m.ctrl.ModalShown()
		}
		cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))

	case clearStatusMsg:
		m.statusMsg = ""
	}

	if m.loading || m.submitting || m.switching {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.enteringAmt {
		return m.handleAmountKey(msg)
	}

	// The unsupported-network prompt blocks everything but switching and quitting.
	if m.showModal {
		switch msg.String() {
		case "s", "enter":
			if m.switching {
				return m, nil
			}
			m.switching = true
			return m, tea.Batch(m.switchCmd(), m.spinner.Tick)
		case "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	if msg.String() == "?" {
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		if msg.String() == "q" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	if m.showGraph {
		switch msg.String() {
		case "g", "q", "esc":
			m.showGraph = false
		}
		return m, nil
	}

	if m.showDetail {
		switch msg.String() {
		case "d", "q", "esc":
			m.showDetail = false
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.validators)-1 {
			m.cursor++
		}

	case "enter", " ":
		if v, ok := m.cursorValidator(); ok {
			m.store.SelectValidator(v.ValidatorID)
			m.config.SelectedValidator = v.ValidatorID
			m.syncState()
			cmds = append(cmds, m.setStatus(fmt.Sprintf("Selected %s", shortAddress(v.ValidatorID))))
			if cmd := m.persistSelection(v.ValidatorID); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

	case "tab":
		if m.submitType == models.SubmitStake {
			m.submitType = models.SubmitUnstake
		} else {
			m.submitType = models.SubmitStake
		}

	case "a", "i":
		if m.readOnly {
			cmds = append(cmds, m.setStatus("No signing key loaded, dashboard is read-only"))
			break
		}
		if m.state.SelectedValidator == "" {
			cmds = append(cmds, m.setStatus("Select a validator first"))
			break
		}
		m.enteringAmt = true
		m.amountInput.Focus()
		cmds = append(cmds, textinput.Blink)

	case "r":
		m.loading = true
		m.ctrl.Refresh(m.ctx)
		cmds = append(cmds, m.setStatus("Refreshing data..."), m.spinner.Tick)

	case "c":
		if v, ok := m.cursorValidator(); ok {
			if err := clipboard.WriteAll(v.ValidatorID); err != nil {
				cmds = append(cmds, m.setStatus("Failed to copy to clipboard"))
			} else {
				cmds = append(cmds, m.setStatus("Validator address copied to clipboard!"))
			}
		}

	case "o":
		if v, ok := m.cursorValidator(); ok {
			cmds = append(cmds, m.open(m.explorer().AddressURL(v.ValidatorID)))
		}
	case "O":
		if m.state.LastTx != nil {
			cmds = append(cmds, m.open(m.explorer().TxURL(m.state.LastTx.Hash)))
		} else {
			cmds = append(cmds, m.setStatus("No transaction submitted yet"))
		}

	case "d":
		if len(m.validators) > 0 {
			m.showDetail = true
			m.updateDetailViewport()
			m.viewport.YOffset = 0
		}
	case "g":
		m.showGraph = true
	case "P":
		m.privacyMode = !m.privacyMode
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleAmountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.enteringAmt = false
		m.amountInput.Blur()
		return m, nil
	case "tab":
		m.amountInput.SetValue(m.maxAmount())
		m.amountInput.CursorEnd()
		return m, nil
	case "enter":
		amount := m.amountInput.Value()
		if _, err := utils.ToBaseUnits(amount, utils.NativeDecimals); err != nil {
			cmd := m.setStatus(fmt.Sprintf("Invalid amount: %q", amount))
			return m, cmd
		}
		m.enteringAmt = false
		m.amountInput.Blur()
		m.submitting = true
		req := models.SubmitRequest{Amount: amount, SubmitType: m.submitType}
		status := m.setStatus(fmt.Sprintf("Submitting %s...", m.submitType))
		return m, tea.Batch(m.submitCmd(req), m.spinner.Tick, status)
	}

	var cmd tea.Cmd
	m.amountInput, cmd = m.amountInput.Update(msg)
	return m, cmd
}

func (m *model) open(url string) tea.Cmd {
	if err := openBrowser(url); err != nil {
		return m.setStatus(fmt.Sprintf("Failed to open browser: %v", err))
	}
	return m.setStatus("Opened in browser")
}
