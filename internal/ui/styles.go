package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorAccent    = lipgloss.Color("#10B981") // Green
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber

	ColorText    = lipgloss.Color("#E5E7EB") // Light gray
	ColorTextDim = lipgloss.Color("#9CA3AF") // Medium gray
	ColorBorder  = lipgloss.Color("#4B5563") // Dark gray
)

// Styles holds the terminal styles used by the command output.
type Styles struct {
	Panel      lipgloss.Style
	ListHeader lipgloss.Style

	// Tree
	Folder     lipgloss.Style
	Connection lipgloss.Style
	Protocol   lipgloss.Style
	Branch     lipgloss.Style

	// Details
	DetailLabel lipgloss.Style
	DetailValue lipgloss.Style

	// Status indicators
	StatusReady   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Info     lipgloss.Style
}

// NewStyles creates a new Styles instance with default styling
func NewStyles() *Styles {
	s := &Styles{}

	s.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	s.ListHeader = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true).
		Underline(true)

	s.Folder = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	s.Connection = lipgloss.NewStyle().
		Foreground(ColorText)

	s.Protocol = lipgloss.NewStyle().
		Foreground(ColorSecondary)

	s.Branch = lipgloss.NewStyle().
		Foreground(ColorBorder)

	s.DetailLabel = lipgloss.NewStyle().
		Foreground(ColorTextDim).
		Width(15).
		Align(lipgloss.Right).
		MarginRight(1)

	s.DetailValue = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true)

	s.StatusReady = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	s.StatusWarning = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Bold(true)

	s.StatusError = lipgloss.NewStyle().
		Foreground(ColorDanger).
		Bold(true)

	s.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	s.Subtitle = lipgloss.NewStyle().
		Foreground(ColorTextDim).
		Italic(true)

	s.Error = lipgloss.NewStyle().
		Foreground(ColorDanger).
		Bold(true)

	s.Success = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	s.Info = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true)

	return s
}
