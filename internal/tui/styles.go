package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/karpella/ec2console/internal/tui/theme"
)

var (
	// Dashboard-specific styles that compose from the shared theme
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary)

	headerStyle = theme.HeaderStyle

	metricLabelStyle = theme.MutedStyle

	metricValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.Success)

	costValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Warning)

	identityStyle = lipgloss.NewStyle().
			Foreground(theme.Primary)

	helpStyle = theme.HelpStyle

	errorStyle = theme.ErrorStyle

	successStyle = theme.SuccessStyle

	loadingStyle = theme.LoadingStyle

	dashboardStyle = theme.DashboardStyle
)
