package chatui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Renderer turns an assistant reply (markdown) into terminal text.
type Renderer interface {
	Render(markdown string) (string, error)
}

// RendererFactory builds a Renderer for the given terminal width.
type RendererFactory func(width int) Renderer

// hasDarkBackground queries the terminal.
var hasDarkBackground = termenv.HasDarkBackground

// BackgroundStyle returns the glamour standard style ("dark" or "light")
// matching the terminal background. It talks to the terminal, so call it
// before a program starts reading input.
func BackgroundStyle() string {
	if hasDarkBackground() {
		return "dark"
	}
	return "light"
}

// GlamourRenderer returns a factory of glamour renderers using the given
// standard style. A renderer that fails to build degrades to PlainRenderer.
func GlamourRenderer(style string) RendererFactory {
	return func(width int) Renderer {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return PlainRenderer{}
		}
		return r
	}
}

// PlainRenderer passes markdown through untouched.
type PlainRenderer struct{}

func (PlainRenderer) Render(markdown string) (string, error) {
	return markdown + "\n", nil
}

type styles struct {
	title     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	status    lipgloss.Style
	help      lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		help:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}
