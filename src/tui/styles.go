package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds all customizable style colors for the dashboard UI.
type StyleConfig struct {
	// Primary colors
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	CardBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	// Severity colors for ratings (A through E)
	RatingColors []lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		CardBackground: lipgloss.Color("#2D2D2D"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		RatingColors: []lipgloss.Color{
			lipgloss.Color("#34A853"), // A - Green
			lipgloss.Color("#A8C853"), // B - Yellow-green
			lipgloss.Color("#FBBC04"), // C - Yellow
			lipgloss.Color("#F29900"), // D - Orange
			lipgloss.Color("#EA4335"), // E - Red
		},
	}
}

// RatingColor maps a numeric rating (1.0 = A .. 5.0 = E) to its color.
func (s *StyleConfig) RatingColor(rating float64) lipgloss.Color {
	idx := int(rating) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.RatingColors) {
		idx = len(s.RatingColors) - 1
	}
	return s.RatingColors[idx]
}

// BaseStyle returns a base lipgloss style using this config
func (s *StyleConfig) BaseStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(s.DarkBackground).
		Foreground(s.TextPrimary)
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// ListStyle returns a list container lipgloss style using this config
func (s *StyleConfig) ListStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(s.CardBackground).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}

// ViewportStyle returns a viewport container lipgloss style using this config
func (s *StyleConfig) ViewportStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(s.CardBackground).
		Foreground(s.TextPrimary).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}
