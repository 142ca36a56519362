package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Bold headings and names
	primaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B61FF"))

	// Success style for completed renames
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#73F59F"))

	// Error style for failures
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	// Warning style for skipped or risky actions
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	// Status style for secondary information
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#959595"))
)

func primaryText(s string) string { return primaryStyle.Render(s) }

func successText(s string) string { return successStyle.Render("✓ " + s) }

func errorText(s string) string { return errorStyle.Render("✗ " + s) }

func warningText(s string) string { return warningStyle.Render("! " + s) }

func infoText(s string) string { return infoStyle.Render(s) }
