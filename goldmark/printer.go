package goldmark

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/parley"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// minItemWidth keeps deeply nested list items readable.
const minItemWidth = 10

type printer struct {
	src []byte

	heading lipgloss.Style
	strong  lipgloss.Style
	em      lipgloss.Style
	strike  lipgloss.Style
	code    lipgloss.Style
	link    lipgloss.Style
	faint   lipgloss.Style
}

func newPrinter(src []byte, theme parley.Theme) *printer {
	return &printer{
		src:     src,
		heading: lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		strong:  lipgloss.NewStyle().Bold(true),
		em:      lipgloss.NewStyle().Italic(true),
		strike:  lipgloss.NewStyle().Strikethrough(true),
		code:    lipgloss.NewStyle().Bold(true),
		link:    lipgloss.NewStyle().Underline(true),
		faint:   lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// blocks renders each child block of parent.
func (p *printer) blocks(parent ast.Node, width int) []string {
	var out []string
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if s := p.block(n, width); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *printer) block(n ast.Node, width int) string {
	switch n := n.(type) {
	case *ast.Heading:
		return wrap(p.heading.Render(p.inline(n)), width)
	case *ast.Paragraph, *ast.TextBlock:
		return wrap(p.inline(n), width)
	case *ast.FencedCodeBlock:
		return p.codeBlock(string(n.Language(p.src)), n.Lines())
	case *ast.CodeBlock:
		return p.codeBlock("", n.Lines())
	case *ast.List:
		return p.list(n, width, 0)
	case *ast.Blockquote:
		inner := strings.Join(p.blocks(n, width-2), "\n\n")
		return prefixLines(inner, p.faint.Render(">")+" ", p.faint.Render(">")+" ")
	case *ast.ThematicBreak:
		return p.faint.Render("---")
	case *ast.HTMLBlock:
		return strings.TrimRight(p.lines(n.Lines()), "\n")
	default:
		return strings.Join(p.blocks(n, width), "\n\n")
	}
}

func (p *printer) codeBlock(lang string, lines *text.Segments) string {
	var out []string
	if lang != "" {
		out = append(out, p.faint.Render(lang))
	}
	gutter := p.faint.Render("│") + " "
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, gutter+strings.TrimRight(string(seg.Value(p.src)), "\r\n"))
	}
	return strings.Join(out, "\n")
}

func (p *printer) lines(lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(p.src))
	}
	return b.String()
}

func (p *printer) list(l *ast.List, width, depth int) string {
	indent := strings.Repeat("  ", depth)
	num := l.Start
	var out []string
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if l.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		itemWidth := max(width-len(indent)-len(marker), minItemWidth)
		hang := indent + strings.Repeat(" ", len(marker))
		first := indent + marker
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				out = append(out, p.list(sub, width, depth+1))
				continue
			}
			out = append(out, prefixLines(p.block(c, itemWidth), first, hang))
			first = hang
		}
	}
	return strings.Join(out, "\n")
}

// prefixLines prefixes the first line of s with first and the rest with rest.
func prefixLines(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = first + line
		} else {
			lines[i] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}

func (p *printer) inline(parent ast.Node) string {
	var b strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		p.span(&b, n)
	}
	return b.String()
}

func (p *printer) span(b *strings.Builder, n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(p.src))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.CodeSpan:
		b.WriteString(p.code.Render(p.inline(n)))
	case *ast.Emphasis:
		style := p.em
		if n.Level >= 2 {
			style = p.strong
		}
		b.WriteString(style.Render(p.inline(n)))
	case *east.Strikethrough:
		b.WriteString(p.strike.Render(p.inline(n)))
	case *ast.Link:
		b.WriteString(p.link.Render(p.inline(n)) + " " + p.faint.Render("("+string(n.Destination)+")"))
	case *ast.Image:
		b.WriteString(p.link.Render(p.inline(n)) + " " + p.faint.Render("("+string(n.Destination)+")"))
	case *ast.AutoLink:
		b.WriteString(p.link.Render(string(n.URL(p.src))))
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(p.src))
		}
	default:
		b.WriteString(p.inline(n))
	}
}
