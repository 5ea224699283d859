// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	colorOK      = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorPackage = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}

	// TitleStyle renders section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	// SubtitleStyle renders labels, hints and placeholders.
	SubtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)
	SuccessStyle  = lipgloss.NewStyle().Foreground(colorOK)
	WarningStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
	// KeyStyle renders configuration keys, bundle labels and package names.
	KeyStyle = lipgloss.NewStyle().Foreground(colorPackage)
)
