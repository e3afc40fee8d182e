// Package tui provides the terminal dashboard for cached code-quality
// metrics. Projects appear in a list on the left; the right panel shows
// metric trends for the selected project and branch.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"sonardash/src/contracts"
)

// Status describes the dashboard loading state.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
)

// DataSource supplies the dashboard with cached metric data.
type DataSource interface {
	ListKnownProjects(ctx context.Context) ([]contracts.ProjectRef, error)
	FetchMetrics(ctx context.Context, projectKey, branch string, days int) ([]contracts.MetricRecord, error)
}

// MainModel is the Bubble Tea model for the dashboard.
type MainModel struct {
	source     DataSource
	windowDays int

	header         Header
	listView       View
	detailViewport viewport.Model
	styles         *StyleConfig

	items         []Item
	status        Status
	loadErr       error
	detailFocused bool
	ready         bool
	width         int
	height        int
}

// itemsLoadedMsg carries the loaded dashboard items.
type itemsLoadedMsg struct {
	items []Item
	err   error
}

// NewMainModel creates the dashboard model.
func NewMainModel(source DataSource, organization string, windowDays int) MainModel {
	styles := DefaultStyles()
	return MainModel{
		source:     source,
		windowDays: windowDays,
		header:     NewHeaderWithStyles(organization, windowDays, styles),
		listView:   NewView(),
		styles:     styles,
		status:     StatusLoading,
	}
}

// Init starts the initial data load. Required by tea.Model interface.
func (m MainModel) Init() tea.Cmd {
	return m.loadItems()
}

// loadItems reads every known identity and its records from the source.
func (m MainModel) loadItems() tea.Cmd {
	source := m.source
	days := m.windowDays
	return func() tea.Msg {
		ctx := context.Background()
		refs, err := source.ListKnownProjects(ctx)
		if err != nil {
			return itemsLoadedMsg{err: err}
		}

		items := make([]Item, 0, len(refs))
		for _, ref := range refs {
			records, err := source.FetchMetrics(ctx, ref.ProjectKey, ref.Branch, days)
			if err != nil {
				return itemsLoadedMsg{err: err}
			}
			items = append(items, NewItem(ref, records))
		}
		return itemsLoadedMsg{items: items}
	}
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case itemsLoadedMsg:
		m.status = StatusReady
		m.loadErr = msg.err
		m.header.SetRefreshing(false)
		if msg.err == nil {
			m.items = msg.items
			m.header.SetProjectCount(len(msg.items))
			m.listView.SetItems(msg.items)
			if selected, ok := m.listView.GetSelectedItem(); ok {
				m.updateDetailContent(selected)
			}
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "r":
			m.status = StatusLoading
			m.header.SetRefreshing(true)
			return m, m.loadItems()

		case "enter":
			if !m.detailFocused {
				m.detailFocused = true
				return m, nil
			}

		case "esc":
			if m.detailFocused {
				m.detailFocused = false
				return m, nil
			}
		}

		if m.detailFocused {
			var cmd tea.Cmd
			m.detailViewport, cmd = m.detailViewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.listView, cmd = m.listView.Update(msg)
		if selected, ok := m.listView.GetSelectedItem(); ok {
			m.updateDetailContent(selected)
		}
		return m, cmd
	}

	return m, nil
}

// Start launches the dashboard and blocks until the user exits.
func Start(source DataSource, organization string, windowDays int) error {
	model := NewMainModel(source, organization, windowDays)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
