package tui

import (
	"fmt"
	"strings"

	"dndstake/pkg/models"
	"dndstake/pkg/network"
	"dndstake/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// communityLinks are listed on the help screen.
var communityLinks = []string{
	"Twitter   https://twitter.com/dyno_chain",
	"GitHub    https://github.com/dyno-protocol",
	"Medium    https://dynochain.medium.com",
	"Discord   https://discord.gg/WC5thfjRDt",
	"Telegram  https://t.me/dynochain",
}

func (m model) View() string {
	if m.showModal {
		return m.viewNetworkModal()
	}
	if m.showHelp {
		return m.viewHelp()
	}
	if m.showGraph {
		return m.viewStakeGraph()
	}
	if m.showDetail {
		return m.viewDetail()
	}
	return m.viewMain()
}

func (m model) viewMain() string {
	targetWidth := m.width - 4
	if targetWidth < 0 {
		targetWidth = 0
	}

	header := titleStyle.Render("DND Staking Dashboard")
	account := "Account: not connected (read-only)"
	if m.dash.AccountAddress != "" {
		account = fmt.Sprintf("Account: %s", m.maskAddress(m.dash.AccountAddress))
		if m.readOnly {
			account += subtleStyle.Render(" (read-only)")
		}
	}

	boxes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.infoBox("Block Number", fmt.Sprintf("#%s", utils.AddCommas(fmt.Sprintf("%d", m.dash.BlockNumber)))),
		m.infoBox("Balance", m.displayValue(m.dash.Balance)+" DND"),
		m.infoBox("Your Total Staked / Total Staked", fmt.Sprintf("%s / %s DND", m.displayValue(m.dash.YourTotalStaked), m.displayValue(m.dash.TotalStaked))),
		m.infoBox("Block Reward", m.displayValue(m.dash.BlockReward)+" DND"),
	)

	var body string
	if m.loading && len(m.validators) == 0 {
		body = m.spinner.View() + " Connecting to DynoChain..."
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, m.viewValidators(), "\n", m.viewStakeForm())
	}

	content := boxStyle.Width(targetWidth).Render(lipgloss.JoinVertical(lipgloss.Center,
		header,
		account,
		"\n",
		boxes,
		"\n",
		body,
	))

	line1 := "↑/↓:move • enter:select • tab:stake/unstake • a:amount • r:refresh • ?:help • q:quit"
	line2 := fmt.Sprintf("c:copy • o:explorer • O:last tx • d:details • g:graph • P:privacy • v%s", Version)
	var footer string
	if m.width > 0 {
		l1 := subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line1)
		l2 := subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line2)
		footer = lipgloss.JoinVertical(lipgloss.Center, l1, l2)
	} else {
		footer = subtleStyle.Render(line1 + "\n" + line2)
	}
	if m.statusMsg != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMsg), footer)
	}

	spinnerView := ""
	if m.loading || m.submitting {
		spinnerView = m.spinner.View() + " "
	}
	chainName := fmt.Sprintf("Chain %d", m.dash.ChainID)
	if d, ok := network.Lookup(m.dash.ChainID); ok {
		chainName = d.ChainName
	}
	leftBlock := subtleStyle.Render(" " + chainName)
	rightBlock := subtleStyle.Render(fmt.Sprintf("%sLast updated: %s ", spinnerView, m.lastUpdate.Format("15:04:05")))
	gap := m.width - lipgloss.Width(leftBlock) - lipgloss.Width(rightBlock)
	if gap < 0 {
		gap = 0
	}
	topBar := lipgloss.JoinHorizontal(lipgloss.Top, leftBlock, strings.Repeat(" ", gap), rightBlock)

	h := m.height - 1
	if h < 0 {
		h = 0
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		topBar,
		lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
		),
	)
}

func (m model) infoBox(label, value string) string {
	return infoBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		subtleStyle.Render(label),
		valueStyle.Render(value),
	))
}

func (m model) viewValidators() string {
	if len(m.validators) == 0 {
		return subtleStyle.Render("No validators found")
	}

	headers := tableHeaderStyle.Render(fmt.Sprintf("  %-18s %-14s %18s %16s", "NAME", "ADDRESS", "TOTAL STAKE", "YOUR STAKE"))
	rows := []string{headers}
	for i, v := range m.validators {
		name := v.Name
		if name == "" {
			name = "-"
		}
		if v.Legacy {
			name += " (legacy)"
		}
		marker := " "
		if v.ValidatorID == m.state.SelectedValidator {
			marker = "*"
		}
		row := fmt.Sprintf("%s %-18s %-14s %18s %16s",
			marker,
			utils.TruncateString(name, 18),
			shortAddress(v.ValidatorID),
			m.displayValue(utils.ToDisplayNumber(v.TotalStake, utils.NativeDecimals)),
			m.displayValue(utils.ToDisplayNumber(v.YourStake, utils.NativeDecimals)),
		)
		if i == m.cursor {
			row = cursorStyle.Render(row)
		}
		rows = append(rows, row)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m model) viewStakeForm() string {
	stakeTab, unstakeTab := inactiveTabStyle.Render("Stake"), inactiveTabStyle.Render("Unstake")
	if m.submitType == models.SubmitUnstake {
		unstakeTab = activeTabStyle.Render("Unstake")
	} else {
		stakeTab = activeTabStyle.Render("Stake")
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, stakeTab, " ", unstakeTab)

	selected := "none"
	if m.dash.SelectedValidator != "" {
		selected = shortAddress(m.dash.SelectedValidator)
		if m.dash.SelectedName != "" {
			selected = fmt.Sprintf("%s (%s)", m.dash.SelectedName, selected)
		}
	}

	var input string
	switch {
	case m.submitting:
		input = m.spinner.View() + " Waiting for transaction..."
	case m.enteringAmt:
		input = lipgloss.JoinVertical(lipgloss.Left,
			m.amountInput.View(),
			subtleStyle.Render(fmt.Sprintf("= %s wei", utils.ToBaseUnitsString(m.amountInput.Value(), utils.NativeDecimals))),
			subtleStyle.Render("enter: submit • tab: max • esc: cancel"),
		)
	case m.readOnly:
		input = subtleStyle.Render("Set the signing key env var to stake")
	default:
		input = subtleStyle.Render("Press 'a' to enter an amount")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		tabs,
		fmt.Sprintf("Validator:  %s", selected),
		fmt.Sprintf("Your stake: %s DND", m.displayValue(m.dash.YourStake)),
		fmt.Sprintf("Balance:    %s DND", m.displayValue(m.dash.Balance)),
		input,
	)
}

func (m model) viewNetworkModal() string {
	hint := subtleStyle.Render("(s) Switch network • (q) Quit")
	if m.switching {
		hint = m.spinner.View() + " Switching..."
	}
	expected := network.Supported()
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Unsupported Network"),
		"\n",
		fmt.Sprintf("Connected to chain %d.", m.state.ChainID),
		fmt.Sprintf("Please switch to %s (chain %s).", expected.ChainName, expected.ChainID),
		"\n",
		hint,
	))
	footer := ""
	if m.statusMsg != "" {
		footer = errStyle.Render(m.statusMsg)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewHelp() string {
	var title string
	var shortcuts []string

	if m.showDetail {
		title = "Validator Details"
		shortcuts = []string{"↑/k: Scroll Up", "↓/j: Scroll Down", "d/esc/q: Close"}
	} else {
		title = "Main View"
		shortcuts = []string{
			"↑/k ↓/j: Move Cursor",
			"enter/space: Select Validator",
			"tab: Toggle Stake/Unstake",
			"a/i: Enter Amount (tab fills max)",
			"r: Refresh Data",
			"c: Copy Validator Address",
			"o: Open Validator in Explorer",
			"O: Open Last Transaction",
			"d: Validator Details",
			"g: Total Staked Graph",
			"P: Toggle Privacy",
			"q/esc: Quit",
			"?: Toggle Help",
		}
	}

	header := titleStyle.Render(fmt.Sprintf("Help: %s", title))
	links := lipgloss.JoinVertical(lipgloss.Left, append([]string{subtleStyle.Render("Community")}, communityLinks...)...)
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n"), "\n", links))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}

func (m model) viewStakeGraph() string {
	header := titleStyle.Render("Total Staked (DND)")

	targetBoxWidth := m.width - 4
	if targetBoxWidth < 0 {
		targetBoxWidth = 0
	}

	values := m.historyValues()
	var graph, stats string
	if len(values) > 1 {
		min, max := values[0], values[0]
		for _, v := range values {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		stats = subtleStyle.Render(fmt.Sprintf("Low: %s • Now: %s • High: %s",
			utils.FormatFloat(min, 2), utils.FormatFloat(values[len(values)-1], 2), utils.FormatFloat(max, 2)))

		graphWidth := targetBoxWidth - 14 // 4 for box borders/padding, ~10 for axis labels
		if graphWidth < 10 {
			graphWidth = 10
		}
		graphHeight := m.height - 14
		if graphHeight < 1 {
			graphHeight = 1
		}
		graph = asciigraph.Plot(values,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("Network-wide staked amount"),
		)
	} else {
		graph = "Not enough data to draw graph."
	}

	content := boxStyle.Width(targetBoxWidth).Align(lipgloss.Center).Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", stats, "\n", graph))
	footer := subtleStyle.Render("g/q/esc: back")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewDetail() string {
	header := titleStyle.Render("Validator Details")
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", m.viewport.View()))
	footer := subtleStyle.Render("↑/↓: scroll • d/q/esc: back")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}
