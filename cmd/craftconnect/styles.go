package main

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#E07A5F")
	colorGreen  = lipgloss.Color("#81B29A")
	colorGray   = lipgloss.Color("#777777")
	colorRed    = lipgloss.Color("#D62828")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	successStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	// messageStyle frames the generated WhatsApp text so it is easy to copy.
	messageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGreen).
			Padding(0, 1).
			Width(64)

	transcriptStyle = lipgloss.NewStyle().
			PaddingLeft(3).
			Width(72)
)
