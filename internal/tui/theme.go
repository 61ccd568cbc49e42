package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the semantic color palette for the dashboard TUI.
type Theme struct {
	Border  lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color
}

var defaultTheme = Theme{
	Border:  lipgloss.Color("#4D4C57"),
	Muted:   lipgloss.Color("#858392"),
	Text:    lipgloss.Color("#DFDBDD"),
	Primary: lipgloss.Color("#6B50FF"),
	Accent:  lipgloss.Color("#FF60FF"),
	Success: lipgloss.Color("#00FFB2"),
	Warning: lipgloss.Color("#FFD300"),
	Error:   lipgloss.Color("#E94090"),
	Info:    lipgloss.Color("#00CED1"),
}
