package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-focus/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar with a title and a right-aligned
// status. The bar switches color while a focus session is running.
func (l Layout) RenderHeader(title string, status string, focusing bool) string {
	style := theme.HeaderStyle
	if focusing {
		style = theme.FocusHeaderStyle
	}
	return fillBar(l.Width, style, title, status)
}

// RenderStatusBar renders the bottom status bar with keyboard hints on the
// left and the latest notice, if any, on the right.
func (l Layout) RenderStatusBar(hints string, notice string) string {
	return fillBar(l.Width, theme.StatusBarStyle, hints, notice)
}

// fillBar lays out left and right text on a full-width bar of style.
func fillBar(width int, style lipgloss.Style, left, right string) string {
	leftRendered := style.Render(left)
	rightRendered := ""
	if right != "" {
		rightRendered = style.Align(lipgloss.Right).Render(right)
	}

	gap := width -
		lipgloss.Width(leftRendered) -
		lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftRendered,
		filler,
		rightRendered,
	)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
