package ui

import (
	"vs-mods-updater/mods"

	"github.com/charmbracelet/lipgloss"
)

var (
	Header  = lipgloss.NewStyle().Bold(true)
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Failure = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	Muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	Accent  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// StatusStyle returns the style used to render a plan status.
func StatusStyle(s mods.Status) lipgloss.Style {
	switch s {
	case mods.StatusUpToDate:
		return Success
	case mods.StatusUpdateAvailable:
		return Warning
	case mods.StatusIncompatible:
		return Failure
	default:
		return Muted
	}
}

// Status renders a plan status with its color.
func Status(s mods.Status) string {
	return StatusStyle(s).Render(string(s))
}
