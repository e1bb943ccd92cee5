package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)

	// Step status colors
	StatusRunning   = lipgloss.Color("#10B981") // Green
	StatusPending   = lipgloss.Color("#9CA3AF") // Gray
	StatusRetrying  = lipgloss.Color("#F59E0B") // Amber
	StatusCompleted = lipgloss.Color("#A78BFA") // Purple
	StatusFailed    = lipgloss.Color("#F87171") // Red
	StatusSkipped   = lipgloss.Color("#FB923C") // Orange

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	// Content area
	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	// Help bar at the bottom of the screen
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)
)

// ForStatus returns the color for a step status string.
func ForStatus(status string) lipgloss.Color {
	switch status {
	case "running":
		return StatusRunning
	case "retrying":
		return StatusRetrying
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	case "skipped":
		return StatusSkipped
	default:
		return StatusPending
	}
}
