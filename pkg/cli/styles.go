package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for styled terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/help text color
}

// DefaultTheme is the default cyan theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#22d3ee"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Help  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
	}
}
