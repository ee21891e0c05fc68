package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
// - Default (white/black): cell values
// - Accent (soft purple #A78BFA): column headers, paths
// - Muted (gray): borders, row numbers, hints

var (
	// Accent style for headers and paths
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	// Muted style for secondary info and borders
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().Bold(true)

	// AccentBold combines accent color with bold
	AccentBold = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)
)
