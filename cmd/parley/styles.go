package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/parley"
	"github.com/mattn/go-runewidth"
)

// Styles maps a parley.Theme to lipgloss styles for terminal output.
type Styles struct {
	theme parley.Theme

	Error  lipgloss.Style
	Muted  lipgloss.Style
	Accent lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t parley.Theme) Styles {
	return Styles{
		theme:  t,
		Error:  lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Muted:  lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent: lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
	}
}

// Role returns the label style for a message role.
func (s Styles) Role(r parley.Role) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ansiColor(s.theme.RoleColor(r))).Bold(true)
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// preview flattens s to one line no wider than width terminal cells.
func preview(s string, width int) string {
	flat := []rune(s)
	for i, r := range flat {
		if r == '\n' || r == '\r' || r == '\t' {
			flat[i] = ' '
		}
	}
	return runewidth.Truncate(string(flat), width, "…")
}
