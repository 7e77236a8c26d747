// Package goldmark renders chat messages to ANSI-styled terminal output,
// parsing assistant markdown with goldmark and styling it with lipgloss.
package goldmark

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/parley"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// DefaultWidth is used when a non-positive width is given.
const DefaultWidth = 80

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks keep
// their lines as written. Bare URLs are underlined.
func Render(source string, width int, theme parley.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))
	p := newPrinter(src, theme)
	return strings.Join(p.blocks(doc, width), "\n\n")
}

// RenderMessage renders m under a role label. Assistant content is treated
// as markdown; user and system content is wrapped as plain text.
func RenderMessage(m parley.Message, width int, theme parley.Theme) string {
	if width <= 0 {
		width = DefaultWidth
	}
	label := lipgloss.NewStyle().Foreground(ansiColor(theme.RoleColor(m.Role))).Bold(true).Render(string(m.Role))
	if m.Important {
		label += " " + lipgloss.NewStyle().Foreground(ansiColor(theme.Important)).Render("(important)")
	}

	var body string
	switch {
	case strings.TrimSpace(m.Content) == "":
		body = lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true).Render("(empty)")
	case m.Role == parley.RoleAssistant:
		body = Render(m.Content, width, theme)
	default:
		body = wrap(m.Content, width)
	}
	return label + "\n" + body
}
