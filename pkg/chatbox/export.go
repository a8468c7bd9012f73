package chatbox

import (
	"fmt"
	"strings"
)

type exportSettings struct {
	chatName    string
	userAvatar  string
	aiAvatar    string
	userBgColor string
	aiBgColor   string
	callback    func(msg *Message) string
}

type ExportOption func(s *exportSettings)

func ExportChat(name string) ExportOption {
	return func(s *exportSettings) { s.chatName = name }
}

func ExportAvatars(user, ai string) ExportOption {
	return func(s *exportSettings) {
		s.userAvatar = user
		s.aiAvatar = ai
	}
}

// ExportColors sets the cell background colors.
func ExportColors(user, ai string) ExportOption {
	return func(s *exportSettings) {
		s.userBgColor = user
		s.aiBgColor = ai
	}
}

// ExportCallback replaces the default row of every message. The callback
// returns the complete line, newline included.
func ExportCallback(fn func(msg *Message) string) ExportOption {
	return func(s *exportSettings) { s.callback = fn }
}

// ExportMarkdown renders a conversation as a two column markdown table of
// avatar and content. Every line of the result ends with a newline.
func (cb *ChatBox) ExportMarkdown(opts ...ExportOption) []string {
	s := &exportSettings{
		userAvatar:  "User",
		aiAvatar:    "AI",
		userBgColor: "#DCFDC8",
		aiBgColor:   "#E0F7FA",
	}
	for _, opt := range opts {
		opt(s)
	}

	lines := []string{
		"<style> td, th {border: none!important;}</style>\n|  |  |\n",
		"|--|--|\n",
	}
	for _, msg := range cb.OtherHistory(s.chatName) {
		if s.callback != nil {
			lines = append(lines, s.callback(msg))
			continue
		}
		avatar, color := s.aiAvatar, s.aiBgColor
		if msg.Role == RoleUser {
			avatar, color = s.userAvatar, s.userBgColor
		}
		cells := make([]string, 0, len(msg.Elements))
		for _, e := range msg.Elements {
			cells = append(cells, withBgColor(e.Content, color))
		}
		lines = append(lines, fmt.Sprintf("|%s|%s|\n", withBgColor(avatar, color), strings.Join(cells, "<br><br>")))
	}
	return lines
}

func withBgColor(text, color string) string {
	text = strings.ReplaceAll(text, "\n", "<br>")
	return fmt.Sprintf("<div style=\"background-color:%s\">%s</div>", color, text)
}
