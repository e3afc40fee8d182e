package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sonardash/src/contracts"
)

// renderDetail renders the metric trends for a project item
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	content := strings.Builder{}

	header := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Render(fmt.Sprintf("%s │ %s │ %d observations",
			item.Ref.ProjectKey,
			item.Ref.Branch,
			len(item.Records)))
	fmt.Fprintf(&content, "%s\n\n", header)

	if len(item.Records) == 0 {
		fmt.Fprintln(&content, lipgloss.NewStyle().
			Foreground(m.styles.TextSecondary).
			Faint(true).
			Render("No cached data for this branch. Press r to refresh."))
		return content.String()
	}

	labelStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)
	valueStyle := lipgloss.NewStyle().Foreground(m.styles.TextPrimary).Bold(true)

	chartWidth := maxWidth - 40
	if chartWidth < 10 {
		chartWidth = 10
	}

	for _, metric := range contracts.AllMetrics {
		series := item.Series(metric)
		if len(series) == 0 {
			continue
		}

		latest := valueStyle.Render(fmt.Sprintf("%8s", item.FormatLatest(metric)))
		if !metric.IsPercent() && !metric.IsCount() {
			rating, _ := item.Latest(metric)
			latest = lipgloss.NewStyle().
				Foreground(m.styles.RatingColor(rating)).
				Bold(true).
				Render(fmt.Sprintf("%8s", item.FormatLatest(metric)))
		}

		spark := lipgloss.NewStyle().
			Foreground(m.styles.AccentBlue).
			Render(Sparkline(series, chartWidth))

		fmt.Fprintf(&content, "%s %s  %s\n",
			labelStyle.Render(TruncateAndPad(string(metric), 28, true)),
			latest,
			spark)
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	// The viewport's width is the max width for the content.
	// Subtract a small amount for internal padding.
	maxWidth := m.detailViewport.Width - 2 // 1 char padding on each side
	content := m.renderDetail(item, maxWidth)
	m.detailViewport.SetContent(content)
}

// renderDetailPanel renders the right panel with the trend viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		headerRow := lipgloss.NewStyle().
			Foreground(m.styles.PrimaryBlue).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("Trends: %s", selectedItem.Ref.ProjectKey))

		borderStyle := m.styles.BorderColor
		if m.detailFocused {
			borderStyle = m.styles.AccentBlue
		}

		detailWithHeader := lipgloss.JoinVertical(lipgloss.Left, headerRow,
			lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(borderStyle).
				Width(width).
				Height(height).
				Render(m.detailViewport.View()))

		return detailWithHeader
	}

	// No selection - show empty state
	placeholderRow := lipgloss.NewStyle().
		Foreground(m.styles.TextSecondary).
		Padding(0, 1).
		Render(" ")

	emptyStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.BorderColor).
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(m.styles.TextSecondary).
		Faint(true)

	return lipgloss.JoinVertical(lipgloss.Left, placeholderRow, emptyStyle.Render("← Navigate list to view trends"))
}
