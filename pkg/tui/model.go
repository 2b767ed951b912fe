package tui

import (
	"context"
	"time"

	"dndstake/pkg/config"
	"dndstake/pkg/home"
	"dndstake/pkg/models"
	"dndstake/pkg/store"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version is set by Start()
var Version = "dev"

// maxHistory caps the total-staked graph at one day of 30s samples.
const maxHistory = 2880

// --- Messages ---

type clearStatusMsg struct{}
type uiTickMsg time.Time

type submitResultMsg struct {
	kind   string
	amount string
	err    error
}

type switchResultMsg struct {
	err error
}

// --- Model ---

type model struct {
	ctx          context.Context
	ctrl         *home.Controller
	store        *store.Store
	sub          store.Subscriber
	config       config.Config
	configPath   string
	readOnly     bool
	state        store.State
	dash         home.Dashboard
	validators   []models.ValidatorStake
	cursor       int
	width        int
	height       int
	loading      bool
	lastUpdate   time.Time
	spinner      spinner.Model
	statusMsg    string
	submitType   string
	amountInput  textinput.Model
	enteringAmt  bool
	submitting   bool
	switching    bool
	showModal    bool
	showHelp     bool
	showGraph    bool
	showDetail   bool
	viewport     viewport.Model
	privacyMode  bool
	stakeHistory []models.StakePoint
}

func initialModel(ctx context.Context, ctrl *home.Controller, st *store.Store, cfg config.Config, configPath string, readOnly bool) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Amount in DND"
	ti.Width = 30
	ti.CharLimit = 40

	m := model{
		ctx:         ctx,
		ctrl:        ctrl,
		store:       st,
		sub:         st.Subscribe(),
		config:      cfg,
		configPath:  configPath,
		readOnly:    readOnly,
		loading:     true,
		spinner:     s,
		submitType:  models.SubmitStake,
		amountInput: ti,
		viewport:    viewport.New(0, 0),
	}
	m.syncState()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		listenForStore(m.sub),
		m.spinner.Tick,
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }),
	)
}
