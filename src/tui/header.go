package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Header represents the top status bar component.
type Header struct {
	organization string
	windowDays   int
	projectCount int
	refreshing   bool
	styles       *StyleConfig
}

// NewHeader creates a new header with default styles
func NewHeader(organization string, windowDays int) Header {
	return Header{
		organization: organization,
		windowDays:   windowDays,
		styles:       DefaultStyles(),
	}
}

// NewHeaderWithStyles creates a new header with custom styles
func NewHeaderWithStyles(organization string, windowDays int, styles *StyleConfig) Header {
	return Header{
		organization: organization,
		windowDays:   windowDays,
		styles:       styles,
	}
}

// SetProjectCount updates the displayed project count
func (h *Header) SetProjectCount(n int) {
	h.projectCount = n
}

// SetRefreshing toggles the refresh indicator
func (h *Header) SetRefreshing(refreshing bool) {
	h.refreshing = refreshing
}

// Render renders the header
func (h Header) Render(width int) string {
	statusStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	status := statusStyle.Render(fmt.Sprintf("📊 %s", h.organization))

	windowStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	window := windowStyle.Render(fmt.Sprintf("⏱ Last %d days", h.windowDays))

	countStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)

	var countText string
	if h.refreshing {
		countText = "⟳ Refreshing..."
	} else {
		countText = fmt.Sprintf("%d projects", h.projectCount)
	}
	count := countStyle.Render(countText)

	leftSection := lipgloss.JoinHorizontal(lipgloss.Left, status, window, count)

	headerStyle := lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width)

	spacer := lipgloss.NewStyle().Width(width - lipgloss.Width(leftSection)).Render("")

	content := lipgloss.JoinHorizontal(lipgloss.Left, leftSection, spacer)

	return headerStyle.Render(content)
}
