package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sonardash/src/contracts"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	// Breakdown: panel border (2) + list internal padding/margins (8) = 10 chars total.
	listRenderingOverhead = 10

	coverageWidth = 8
	bugsWidth     = 5
	ratingWidth   = 4
)

// Delegate renders dashboard items as table rows.
type Delegate struct {
	BranchWidth int
	styles      *StyleConfig
}

// NewDelegate creates a new dashboard table delegate with default styles
func NewDelegate() Delegate {
	return Delegate{
		BranchWidth: 6, // default minimum
		styles:      DefaultStyles(),
	}
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		BranchWidth: 6,
		styles:      styles,
	}
}

// SetColumnWidths sizes the branch column to the widest branch name.
func (d *Delegate) SetColumnWidths(items []Item) {
	width := 6
	for _, item := range items {
		if w := VisualWidth(item.Ref.Branch); w > width {
			width = w
		}
	}
	if width > 20 {
		width = 20
	}
	d.BranchWidth = width
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render draws one project row: key, branch, coverage, bugs, security rating.
func (d Delegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(Item)
	if !ok {
		return
	}

	keyWidth := m.Width() - listRenderingOverhead - d.BranchWidth - coverageWidth - bugsWidth - ratingWidth - 4
	if keyWidth < 10 {
		keyWidth = 10
	}

	rating, _ := item.Latest(contracts.MetricSecurityRating)

	row := fmt.Sprintf("%s %s %s %s %s",
		TruncateAndPad(item.Ref.ProjectKey, keyWidth, true),
		TruncateAndPad(item.Ref.Branch, d.BranchWidth, true),
		TruncateAndPad(item.FormatLatest(contracts.MetricCoverage), coverageWidth, false),
		TruncateAndPad(item.FormatLatest(contracts.MetricBugs), bugsWidth, false),
		lipgloss.NewStyle().
			Foreground(d.styles.RatingColor(rating)).
			Render(TruncateAndPad(item.FormatLatest(contracts.MetricSecurityRating), ratingWidth, false)),
	)

	if index == m.Index() {
		cursor := lipgloss.NewStyle().Foreground(d.styles.PrimaryBlue).Render("► ")
		fmt.Fprint(w, cursor+lipgloss.NewStyle().Bold(true).Render(row))
	} else {
		fmt.Fprint(w, "  "+row)
	}
}
