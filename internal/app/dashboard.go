package app

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/samg3003/wfs-fintech-hackathon/internal/dashboard"
	"github.com/samg3003/wfs-fintech-hackathon/internal/logging"
	"github.com/samg3003/wfs-fintech-hackathon/internal/session"
	"github.com/samg3003/wfs-fintech-hackathon/internal/tui"
)

// Dashboard launches the interactive TUI. Log output is redirected to a file
// so it cannot corrupt the terminal the dashboard is drawing on.
func (a *App) Dashboard(ctx context.Context) error {
	sessions, err := a.newSessionStore()
	if err != nil {
		return err
	}

	logger := a.Logger
	if a.Config.Logging.File == "" {
		logPath := "advisoriq.log"
		if defaultSession, err := session.DefaultPath(); err == nil {
			logPath = filepath.Join(filepath.Dir(defaultSession), "advisoriq.log")
		}
		logger = logging.NewFileLogger(a.Config.Logging, logPath)
	}

	client := a.newAPIClient(sessions)
	refresher := dashboard.NewRefresher(client, logger)

	model := tui.NewModel(client, sessions, refresher, a.Config.Dashboard.RefreshInterval, logger)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
