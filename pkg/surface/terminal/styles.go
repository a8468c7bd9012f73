package terminal

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/chatbox/pkg/surface"
)

type styles struct {
	width     int
	user      lipgloss.Style
	assistant lipgloss.Style
	userHead  lipgloss.Style
	aiHead    lipgloss.Style
	frameBase lipgloss.Style
	title     lipgloss.Style
	feedback  lipgloss.Style
	states    map[surface.State]lipgloss.Color
}

func newStyles(r *lipgloss.Renderer, width int) styles {
	bubble := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(width - 2)
	return styles{
		width:     width,
		user:      bubble.BorderForeground(lipgloss.Color("#22C55E")),
		assistant: bubble.BorderForeground(lipgloss.Color("#3B82F6")),
		userHead:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#22C55E")),
		aiHead:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")),
		frameBase: r.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1),
		title:     r.NewStyle().Bold(true),
		feedback:  r.NewStyle().Faint(true).Italic(true),
		states: map[surface.State]lipgloss.Color{
			surface.StateRunning:  lipgloss.Color("#EAB308"),
			surface.StateComplete: lipgloss.Color("#22C55E"),
			surface.StateError:    lipgloss.Color("#EF4444"),
		},
	}
}

func (s styles) bubble(role string) lipgloss.Style {
	if role == "user" {
		return s.user
	}
	return s.assistant
}

func (s styles) header(role string) lipgloss.Style {
	if role == "user" {
		return s.userHead
	}
	return s.aiHead
}

var stateIcons = map[surface.State]string{
	surface.StateRunning:  "…",
	surface.StateComplete: "✓",
	surface.StateError:    "✗",
}

// frame wraps content in a status frame. Collapsed frames only show the title.
func (s styles) frame(st surface.Status, content string) string {
	icon, ok := stateIcons[st.State]
	if !ok {
		icon = "?"
	}
	marker := "▸"
	if st.Expanded {
		marker = "▾"
	}
	head := s.title.Foreground(s.states[st.State]).Render(marker + " " + icon + " " + st.Title)
	if !st.Expanded {
		return head
	}
	return lipgloss.JoinVertical(lipgloss.Left, head, s.frameBase.BorderForeground(s.states[st.State]).Render(content))
}
