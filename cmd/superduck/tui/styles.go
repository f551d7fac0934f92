// Package tui provides the interactive catalog browser. It uses
// Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/logging"
)

var (
	duckYellow = lipgloss.Color("#F4B400")
	pondBlue   = lipgloss.Color("#4FC3F7")
	reedGreen  = lipgloss.Color("#7CB342")
	beakOrange = lipgloss.Color("#FB8C00")
	alertRed   = lipgloss.Color("#E53935")
	feather    = lipgloss.Color("#EEEEEE")
	dim        = lipgloss.Color("#8A8A8A")
	mud        = lipgloss.Color("#3A3A3A")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Frame and header.
var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(duckYellow).
			Padding(0, 1)
	ruleStyle  = fg(mud)
	brandStyle = fg(duckYellow).Bold(true)
)

// Plain text by tone.
var (
	dimStyle     = fg(dim)
	goodStyle    = fg(reedGreen)
	cautionStyle = fg(beakOrange)
	badStyle     = fg(alertRed)
)

// Catalog rows. The cursor row is drawn on a dark yellow band.
var (
	rowStyle       = fg(lipgloss.Color("#C8C8C8"))
	cursorRowStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#5C4A00")).
			Foreground(feather).
			Bold(true)
	dirNameStyle = fg(pondBlue).Bold(true)
	sizeStyle    = fg(pondBlue)
	markOnStyle  = fg(reedGreen).Bold(true)
	markOffStyle = fg(mud)
)

var (
	barDoneStyle = fg(duckYellow)
	barLeftStyle = fg(mud)
	hintKeyStyle = fg(duckYellow).Bold(true)
	hintStyle    = fg(dim)
)

// Deleting is the only confirmed action, so the dialog is red.
var (
	confirmFrameStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(alertRed).
				Padding(1, 2).
				Width(56)
	confirmTitleStyle = fg(alertRed).Bold(true)
	confirmBodyStyle  = fg(feather)
)

func statusStyle(k statusKind) lipgloss.Style {
	switch k {
	case statusOK:
		return goodStyle
	case statusWarn:
		return cautionStyle
	case statusError:
		return badStyle
	}
	return dimStyle
}

func levelStyle(l logging.Level) lipgloss.Style {
	switch l {
	case logging.LevelWarn:
		return cautionStyle
	case logging.LevelError:
		return badStyle
	}
	return dimStyle
}

func rule(width int) string {
	return ruleStyle.Render(strings.Repeat("─", max(width, 0)))
}

// ellipsize shortens s to n runes, keeping its tail, which is where object
// names are.
func ellipsize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:max(n, 0)])
	}
	return "..." + string(r[len(r)-(n-3):])
}
