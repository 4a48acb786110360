package logging

import "github.com/charmbracelet/lipgloss"

var levelStyles = map[Level]lipgloss.Style{
	LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

func styleForLevel(l Level) lipgloss.Style {
	if s, ok := levelStyles[l]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// statusColorStyles maps the six wire status colors from spec.md §6.1 to
// terminal styles for RenderStatusLine. The IPC transport itself carries
// the bare color token, never escape codes — see internal/statusbus.
var statusColorStyles = map[string]lipgloss.Style{
	"grey":   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	"blue":   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	"green":  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	"orange": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	"red":    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	"yellow": lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
}

// RenderStatusLine styles text for terminal display using one of the six
// status colors defined by the IPC contract. Unknown colors render
// unstyled rather than erroring, since this is a display nicety only.
func RenderStatusLine(color, text string) string {
	style, ok := statusColorStyles[color]
	if !ok {
		return text
	}
	return style.Render(text)
}
