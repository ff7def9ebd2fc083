package cli

import "github.com/charmbracelet/lipgloss"

const (
	colorPrimary = lipgloss.Color("#B01E66")
	colorMuted   = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorCode    = lipgloss.Color("#3B82F6")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	codeStyle    = lipgloss.NewStyle().Foreground(colorCode)

	// sectionStyle indents detail lines under a heading.
	sectionStyle = lipgloss.NewStyle().PaddingLeft(2)
)
