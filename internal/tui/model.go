// Package tui implements the interactive advisor dashboard. It renders the
// current snapshot, a narrative modal, and the login and onboarding forms,
// all driven by the same refresher the watch service uses.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
	"github.com/samg3003/wfs-fintech-hackathon/internal/dashboard"
	"github.com/samg3003/wfs-fintech-hackathon/internal/derive"
	"github.com/samg3003/wfs-fintech-hackathon/internal/session"
)

type view int

const (
	viewLogin view = iota
	viewDashboard
	viewNarrative
	viewOnboard
)

const (
	loginFieldEmail = iota
	loginFieldPassword
)

const (
	onboardFieldName = iota
	onboardFieldRiskLabel
	onboardFieldTargetVol
)

type Model struct {
	client    *api.Client
	sessions  *session.Store
	refresher *dashboard.Refresher
	logger    zerolog.Logger

	refreshInterval time.Duration

	view   view
	width  int
	height int
	ready  bool

	snapshot *dashboard.Snapshot
	fetching bool
	lastErr  string
	advisor  string
	selected int

	loginInputs []textinput.Model
	loginFocus  int
	loginErr    string

	narrative    *api.Narrative
	narrativeErr string
	viewport     viewport.Model

	onboardInputs []textinput.Model
	onboardFocus  int
	onboardErr    string
}

// Messages

type snapshotMsg struct {
	snapshot *dashboard.Snapshot
	err      error
}

type loginMsg struct {
	advisor string
	err     error
}

type narrativeMsg struct {
	narrative api.Narrative
	err       error
}

type clientCreatedMsg struct {
	profile api.ClientProfile
	err     error
}

type refreshTickMsg struct{}

var (
	errEmptyName    = errors.New("client name is required")
	errBadTargetVol = errors.New("target vol must be a positive percent")
)

// NewModel constructs the dashboard model. With a stored session it opens
// straight onto the dashboard, otherwise onto the login form.
func NewModel(client *api.Client, sessions *session.Store, refresher *dashboard.Refresher, refreshInterval time.Duration, logger zerolog.Logger) Model {
	m := Model{
		client:          client,
		sessions:        sessions,
		refresher:       refresher,
		logger:          logger.With().Str("component", "tui").Logger(),
		refreshInterval: refreshInterval,
		loginInputs:     newLoginInputs(),
		onboardInputs:   newOnboardInputs(),
	}
	if _, ok := sessions.Get(); ok {
		m.view = viewDashboard
		m.fetching = true
	}
	return m
}

func newLoginInputs() []textinput.Model {
	email := textinput.New()
	email.Placeholder = "advisor@wfs.com"
	email.Prompt = "Email    > "
	email.CharLimit = 120
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password > "
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 120

	return []textinput.Model{email, password}
}

func newOnboardInputs() []textinput.Model {
	name := textinput.New()
	name.Placeholder = "Client name"
	name.Prompt = "Name        > "
	name.CharLimit = 120
	name.Focus()

	label := textinput.New()
	label.Placeholder = "CONSERVATIVE | MODERATE | AGGRESSIVE (default AGGRESSIVE)"
	label.Prompt = "Risk label  > "
	label.CharLimit = 20

	targetVol := textinput.New()
	targetVol.Placeholder = "annual vol %, blank for label default"
	targetVol.Prompt = "Target vol  > "
	targetVol.CharLimit = 10

	return []textinput.Model{name, label, targetVol}
}

func (m Model) Init() tea.Cmd {
	if m.view == viewDashboard {
		return tea.Batch(fetchSnapshot(m.refresher), scheduleRefresh(m.refreshInterval), textinput.Blink)
	}
	return textinput.Blink
}

// Commands

func fetchSnapshot(r *dashboard.Refresher) tea.Cmd {
	return func() tea.Msg {
		snap, err := r.Refresh(context.Background())
		return snapshotMsg{snapshot: snap, err: err}
	}
}

func scheduleRefresh(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func loginCmd(client *api.Client, sessions *session.Store, email, password string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Login(context.Background(), email, password)
		if err != nil {
			return loginMsg{err: err}
		}
		if err := sessions.Set(resp.Token); err != nil {
			return loginMsg{err: err}
		}
		return loginMsg{advisor: resp.Advisor.Name}
	}
}

func explainCmd(client *api.Client, clientID string) tea.Cmd {
	return func() tea.Msg {
		narrative, err := client.Explain(context.Background(), clientID)
		return narrativeMsg{narrative: narrative, err: err}
	}
}

func createClientCmd(client *api.Client, req api.CreateClientRequest) tea.Cmd {
	return func() tea.Msg {
		profile, err := client.CreateClient(context.Background(), req)
		return clientCreatedMsg{profile: profile, err: err}
	}
}

// buildCreateRequest validates the onboarding form. The risk label defaults
// to AGGRESSIVE when blank; the target vol is entered as a percent and
// falls back to the label's default fraction when blank.
func buildCreateRequest(name, label, targetVol string) (api.CreateClientRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return api.CreateClientRequest{}, errEmptyName
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = string(derive.RiskAggressive)
	}
	riskLabel, err := derive.ParseRiskLabel(label)
	if err != nil {
		return api.CreateClientRequest{}, err
	}

	vol := riskLabel.DefaultTargetVol()
	if trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(targetVol), "%")); trimmed != "" {
		pct, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || pct <= 0 {
			return api.CreateClientRequest{}, errBadTargetVol
		}
		vol = pct / 100
	}

	return api.CreateClientRequest{
		Name:            name,
		RiskLabel:       string(riskLabel),
		TargetAnnualVol: vol,
	}, nil
}
