package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport = viewport.New(m.width-4, m.height-6)
		if m.narrative != nil {
			m.viewport.SetContent(m.renderNarrative())
		}
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case refreshTickMsg:
		if m.view == viewLogin {
			return m, nil
		}
		m.fetching = true
		return m, tea.Batch(fetchSnapshot(m.refresher), scheduleRefresh(m.refreshInterval))

	case snapshotMsg:
		return m.handleSnapshot(msg)

	case loginMsg:
		if msg.err != nil {
			m.loginErr = msg.err.Error()
			return m, nil
		}
		m.advisor = msg.advisor
		m.loginErr = ""
		m.view = viewDashboard
		m.fetching = true
		return m, tea.Batch(fetchSnapshot(m.refresher), scheduleRefresh(m.refreshInterval))

	case narrativeMsg:
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrSessionExpired) {
				return m.toLogin("Session expired, please log in again."), nil
			}
			m.narrative = nil
			m.narrativeErr = msg.err.Error()
			return m, nil
		}
		m.narrativeErr = ""
		narrative := msg.narrative
		m.narrative = &narrative
		if m.ready {
			m.viewport.SetContent(m.renderNarrative())
			m.viewport.GotoTop()
		}
		return m, nil

	case clientCreatedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrSessionExpired) {
				return m.toLogin("Session expired, please log in again."), nil
			}
			m.onboardErr = msg.err.Error()
			return m, nil
		}
		m.onboardErr = ""
		m.onboardInputs = newOnboardInputs()
		m.onboardFocus = 0
		m.view = viewDashboard
		m.fetching = true
		return m, fetchSnapshot(m.refresher)
	}

	return m.updateFocusedInput(msg)
}

// handleSnapshot applies a completed refresh. A snapshot superseded by a
// newer in-flight refresh is discarded so a slow cycle can never roll the
// dashboard back in time.
func (m Model) handleSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	m.fetching = false

	if msg.err != nil {
		if errors.Is(msg.err, api.ErrSessionExpired) {
			return m.toLogin("Session expired, please log in again."), nil
		}
		m.lastErr = msg.err.Error()
		return m, nil
	}

	if msg.snapshot.Generation < m.refresher.Latest() {
		m.logger.Debug().
			Uint64("generation", msg.snapshot.Generation).
			Uint64("latest", m.refresher.Latest()).
			Msg("discarding superseded snapshot")
		return m, nil
	}

	m.snapshot = msg.snapshot
	m.lastErr = ""
	if m.selected >= len(msg.snapshot.Cards) {
		m.selected = 0
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) && m.view != viewLogin && m.view != viewOnboard {
		return m, tea.Quit
	}
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.view {
	case viewLogin:
		return m.handleLoginKey(msg)
	case viewDashboard:
		return m.handleDashboardKey(msg)
	case viewNarrative:
		return m.handleNarrativeKey(msg)
	case viewOnboard:
		return m.handleOnboardKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Next):
		m.loginFocus = (m.loginFocus + 1) % len(m.loginInputs)
		return m.focusLoginField(), nil
	case key.Matches(msg, keys.Submit):
		if m.loginFocus == loginFieldEmail {
			m.loginFocus = loginFieldPassword
			return m.focusLoginField(), nil
		}
		email := m.loginInputs[loginFieldEmail].Value()
		password := m.loginInputs[loginFieldPassword].Value()
		if email == "" || password == "" {
			m.loginErr = "email and password are required"
			return m, nil
		}
		m.loginErr = ""
		return m, loginCmd(m.client, m.sessions, email, password)
	}
	return m.updateFocusedInput(msg)
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Refresh):
		m.fetching = true
		return m, fetchSnapshot(m.refresher)
	case key.Matches(msg, keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, keys.Down):
		if m.snapshot != nil && m.selected < len(m.snapshot.Cards)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, keys.Explain):
		if m.snapshot == nil || len(m.snapshot.Cards) == 0 {
			return m, nil
		}
		card := m.snapshot.Cards[m.selected]
		m.view = viewNarrative
		m.narrative = nil
		m.narrativeErr = ""
		return m, explainCmd(m.client, card.ClientID)
	case key.Matches(msg, keys.Onboard):
		m.view = viewOnboard
		m.onboardErr = ""
		m.onboardFocus = 0
		return m.focusOnboardField(), nil
	}
	return m, nil
}

func (m Model) handleNarrativeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Back) {
		m.view = viewDashboard
		m.narrative = nil
		m.narrativeErr = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleOnboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.view = viewDashboard
		m.onboardErr = ""
		return m, nil
	case key.Matches(msg, keys.Next):
		m.onboardFocus = (m.onboardFocus + 1) % len(m.onboardInputs)
		return m.focusOnboardField(), nil
	case key.Matches(msg, keys.Submit):
		if m.onboardFocus < len(m.onboardInputs)-1 {
			m.onboardFocus++
			return m.focusOnboardField(), nil
		}
		req, err := buildCreateRequest(
			m.onboardInputs[onboardFieldName].Value(),
			m.onboardInputs[onboardFieldRiskLabel].Value(),
			m.onboardInputs[onboardFieldTargetVol].Value(),
		)
		if err != nil {
			m.onboardErr = err.Error()
			return m, nil
		}
		m.onboardErr = ""
		return m, createClientCmd(m.client, req)
	}
	return m.updateFocusedInput(msg)
}

func (m Model) toLogin(notice string) Model {
	m.view = viewLogin
	m.loginErr = notice
	m.loginFocus = loginFieldEmail
	m.loginInputs = newLoginInputs()
	m.snapshot = nil
	m.narrative = nil
	return m
}

func (m Model) focusLoginField() Model {
	for i := range m.loginInputs {
		if i == m.loginFocus {
			m.loginInputs[i].Focus()
		} else {
			m.loginInputs[i].Blur()
		}
	}
	return m
}

func (m Model) focusOnboardField() Model {
	for i := range m.onboardInputs {
		if i == m.onboardFocus {
			m.onboardInputs[i].Focus()
		} else {
			m.onboardInputs[i].Blur()
		}
	}
	return m
}

func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch m.view {
	case viewLogin:
		for i := range m.loginInputs {
			var cmd tea.Cmd
			m.loginInputs[i], cmd = m.loginInputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	case viewOnboard:
		for i := range m.onboardInputs {
			var cmd tea.Cmd
			m.onboardInputs[i], cmd = m.onboardInputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}
