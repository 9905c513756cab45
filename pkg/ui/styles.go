package ui

import "github.com/charmbracelet/lipgloss"

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	dimWhite    = lipgloss.Color("#B0B0B0")

	headerStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Foreground(neonMagenta)

	titleStyle = lipgloss.NewStyle().
			Foreground(neonMagenta).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)
)

// progressStyle picks the bar color by completion percentage
func progressStyle(percentage float64) lipgloss.Style {
	switch {
	case percentage >= 100:
		return cellStyle.Foreground(neonGreen)
	case percentage >= 50:
		return cellStyle.Foreground(neonYellow)
	case percentage > 0:
		return cellStyle.Foreground(neonOrange)
	default:
		return cellStyle.Foreground(dimWhite)
	}
}
