package ui

import (
	"github.com/charmbracelet/lipgloss"

	"serverless-todo/backend/internal/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

var priorityStyles = map[models.Priority]lipgloss.Style{
	models.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	models.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	models.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
}

func renderPriority(p models.Priority) string {
	if style, ok := priorityStyles[p]; ok {
		return style.Render(string(p))
	}
	return string(p)
}
