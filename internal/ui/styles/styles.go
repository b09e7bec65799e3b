// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#CCCCCC"} // Cell text
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"} // Column headers
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#696969"} // Status line, help

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"} // Success states
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"} // Warnings
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"} // Errors, negative numbers

	// Cell interaction
	CellSelectedBgColor = lipgloss.AdaptiveColor{Light: "#D6EAF8", Dark: "#1A5276"}

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondaryColor)
	StatusStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	ErrorStyle  = lipgloss.NewStyle().Foreground(StatusErrorColor)
)
