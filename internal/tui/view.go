package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/samg3003/wfs-fintech-hackathon/internal/dashboard"
	"github.com/samg3003/wfs-fintech-hackathon/internal/derive"
)

func (m Model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}
	switch m.view {
	case viewLogin:
		return m.viewLogin()
	case viewNarrative:
		return m.viewNarrativeModal()
	case viewOnboard:
		return m.viewOnboard()
	default:
		return m.viewDashboard()
	}
}

func (m Model) viewLogin() string {
	t := defaultTheme
	title := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("AdvisorIQ")
	sub := lipgloss.NewStyle().Foreground(t.Muted).Render("Sign in to your advisor account")

	lines := []string{"", "  " + title, "  " + sub, ""}
	for _, input := range m.loginInputs {
		lines = append(lines, "  "+input.View())
	}
	if m.loginErr != "" {
		lines = append(lines, "", "  "+lipgloss.NewStyle().Foreground(t.Error).Render(m.loginErr))
	}
	lines = append(lines, "", "  "+lipgloss.NewStyle().Foreground(t.Muted).Render("tab: next field | enter: sign in | ctrl+c: quit"))
	return strings.Join(lines, "\n")
}

func (m Model) viewOnboard() string {
	t := defaultTheme
	title := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("Onboard client")

	lines := []string{"", "  " + title, ""}
	for _, input := range m.onboardInputs {
		lines = append(lines, "  "+input.View())
	}
	if m.onboardErr != "" {
		lines = append(lines, "", "  "+lipgloss.NewStyle().Foreground(t.Error).Render(m.onboardErr))
	}
	lines = append(lines, "", "  "+lipgloss.NewStyle().Foreground(t.Muted).Render("tab: next field | enter: submit | esc: back"))
	return strings.Join(lines, "\n")
}

func (m Model) viewDashboard() string {
	t := defaultTheme
	var b strings.Builder

	b.WriteString("\n  " + m.renderHeader() + "\n\n")

	if m.snapshot == nil {
		if m.lastErr != "" {
			b.WriteString("  " + lipgloss.NewStyle().Foreground(t.Error).Render("Refresh failed: "+m.lastErr) + "\n")
		} else {
			b.WriteString("  " + lipgloss.NewStyle().Foreground(t.Muted).Render("Fetching dashboard...") + "\n")
		}
		return b.String()
	}

	b.WriteString("  " + m.renderMetrics() + "\n\n")
	b.WriteString(m.renderCards())
	b.WriteString("\n" + m.renderScenarios())

	if m.lastErr != "" {
		b.WriteString("\n  " + lipgloss.NewStyle().Foreground(t.Warning).Render("Last refresh failed: "+m.lastErr+" (showing previous data)") + "\n")
	}

	b.WriteString("\n  " + lipgloss.NewStyle().Foreground(t.Muted).Render("r: refresh | up/down: select | enter: explain | n: new client | q: quit") + "\n")
	return b.String()
}

func (m Model) renderHeader() string {
	t := defaultTheme
	title := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("AdvisorIQ")

	regime := dashboard.RegimePlaceholder
	fetched := ""
	if m.snapshot != nil {
		regime = m.snapshot.Regime
		fetched = m.snapshot.FetchedAt.Format("15:04:05")
	}

	parts := []string{title, regimeStyle(regime).Render("Regime: " + regime)}
	if m.advisor != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Text).Render(m.advisor))
	}
	if fetched != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Muted).Render("as of "+fetched))
	}
	if m.fetching {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Info).Render("refreshing..."))
	}
	return strings.Join(parts, "    ")
}

func (m Model) renderMetrics() string {
	t := defaultTheme
	metrics := m.snapshot.Metrics

	meanIV := "unavailable"
	if metrics.MeanIV.Valid {
		meanIV = fmt.Sprintf("%.1f%%", metrics.MeanIV.Value*100)
	}
	maxIVR := "unavailable"
	if metrics.MaxIVR.Valid {
		maxIVR = fmt.Sprintf("%.2f", metrics.MaxIVR.Value)
	}
	fear := "unavailable"
	if metrics.HasSignals {
		fear = fmt.Sprintf("%d", metrics.FearCount)
	}

	style := lipgloss.NewStyle().Foreground(t.Info)
	label := lipgloss.NewStyle().Foreground(t.Muted)
	return strings.Join([]string{
		label.Render("Mean IV ") + style.Render(meanIV),
		label.Render("Max IVR ") + style.Render(maxIVR),
		label.Render("Fear signals ") + style.Render(fear),
		label.Render("Universe ") + style.Render(fmt.Sprintf("%d tickers", len(m.snapshot.Tickers))),
	}, "    ")
}

func (m Model) renderCards() string {
	t := defaultTheme
	if len(m.snapshot.Cards) == 0 {
		return "  " + lipgloss.NewStyle().Foreground(t.Muted).Render("No client portfolios.") + "\n"
	}

	var b strings.Builder
	for i, card := range m.snapshot.Cards {
		cursor := "  "
		if i == m.selected {
			cursor = lipgloss.NewStyle().Foreground(t.Accent).Render("> ")
		}

		status := statusStyle(card.Status).Render(fmt.Sprintf("%-7s", card.Status.String()))
		name := lipgloss.NewStyle().Foreground(t.Text).Bold(i == m.selected).Render(fmt.Sprintf("%-22s", card.Name))
		label := lipgloss.NewStyle().Foreground(t.Muted).Render(fmt.Sprintf("%-13s", card.RiskLabel))

		vol := "vol n/a"
		if card.CurrentVol.Valid && card.TargetVol.Valid && card.TargetVol.Value > 0 {
			vol = fmt.Sprintf("vol %.1f%% / %.1f%% (%.2fx)",
				card.CurrentVol.Value*100, card.TargetVol.Value*100,
				card.CurrentVol.Value/card.TargetVol.Value)
		}

		b.WriteString(cursor + status + " " + name + " " + label + " " + lipgloss.NewStyle().Foreground(t.Text).Render(vol))
		if card.Misaligned {
			b.WriteString(" " + lipgloss.NewStyle().Foreground(t.Warning).Render("[misaligned]"))
		}
		b.WriteString("\n")
		b.WriteString("           " + lipgloss.NewStyle().Foreground(t.Muted).Render("drift: "+card.DriftSummary) + "\n")
	}
	return b.String()
}

func (m Model) renderScenarios() string {
	t := defaultTheme
	if len(m.snapshot.Scenarios) == 0 {
		return ""
	}

	title := lipgloss.NewStyle().Foreground(t.Primary).Render("Stress scenarios")
	lines := []string{"  " + title}
	for _, scenario := range m.snapshot.Scenarios {
		current := "n/a"
		if scenario.PortfolioLossPctCurrent.Valid {
			current = fmt.Sprintf("%+.1f%%", scenario.PortfolioLossPctCurrent.Value*100)
		}
		adjusted := "n/a"
		if scenario.PortfolioLossPctIVAdjusted.Valid {
			adjusted = fmt.Sprintf("%+.1f%%", scenario.PortfolioLossPctIVAdjusted.Value*100)
		}
		lines = append(lines, fmt.Sprintf("  %-26s current %s  iv-adjusted %s",
			scenario.Name,
			lipgloss.NewStyle().Foreground(t.Warning).Render(current),
			lipgloss.NewStyle().Foreground(t.Error).Render(adjusted)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) viewNarrativeModal() string {
	t := defaultTheme
	header := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("Client narrative")
	footer := lipgloss.NewStyle().Foreground(t.Muted).Render("esc: back | up/down: scroll")

	var body string
	switch {
	case m.narrativeErr != "":
		body = lipgloss.NewStyle().Foreground(t.Error).Render("Could not load narrative: " + m.narrativeErr)
	case m.narrative == nil:
		body = lipgloss.NewStyle().Foreground(t.Muted).Render("Loading narrative...")
	default:
		body = m.viewport.View()
	}

	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(1, 2).
		Width(minInt(m.width-2, 100))

	return frame.Render(header + "\n\n" + body + "\n\n" + footer)
}

func (m Model) renderNarrative() string {
	if m.narrative == nil {
		return ""
	}
	t := defaultTheme

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(t.Text).Bold(true).Render(m.narrative.Title) + "\n")
	b.WriteString(regimeStyle(m.narrative.Regime).Render("Regime: "+m.narrative.Regime) + "\n\n")
	b.WriteString(m.narrative.Body + "\n")

	if len(m.narrative.KeyPoints) > 0 {
		b.WriteString("\n")
		for _, point := range m.narrative.KeyPoints {
			b.WriteString("  - " + point + "\n")
		}
	}
	if len(m.narrative.TopFearSignals) > 0 {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(t.Warning).Render("Fear signals") + "\n")
		for _, signal := range m.narrative.TopFearSignals {
			ivr := "n/a"
			if signal.IVR.Valid {
				ivr = fmt.Sprintf("%.2f", signal.IVR.Value)
			}
			b.WriteString(fmt.Sprintf("  %-6s %-14s IVR %s\n", signal.Symbol, signal.FearLevel, ivr))
		}
	}
	return b.String()
}

func statusStyle(status derive.Status) lipgloss.Style {
	t := defaultTheme
	switch status {
	case derive.StatusGood:
		return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
	case derive.StatusRisk:
		return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(t.Muted)
	}
}

func regimeStyle(regime string) lipgloss.Style {
	t := defaultTheme
	switch regime {
	case "CRISIS":
		return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
	case "STRESS":
		return lipgloss.NewStyle().Foreground(t.Warning).Bold(true)
	case "LOW_VOL":
		return lipgloss.NewStyle().Foreground(t.Success)
	default:
		return lipgloss.NewStyle().Foreground(t.Info)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
