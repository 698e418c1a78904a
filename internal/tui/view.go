package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bobmcallan/insight/internal/models"
)

// View renders the active screen.
func (m Model) View() string {
	var b strings.Builder

	title := "Insight"
	if m.company != "" {
		title += " - " + m.company
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(DividerStyle.Render(strings.Repeat("─", max(10, m.width))))
	b.WriteString("\n")

	if m.mode == ModePicker {
		b.WriteString(m.viewPicker())
	} else {
		b.WriteString(m.viewChat())
	}

	b.WriteString("\n")
	b.WriteString(m.viewStatus())
	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m Model) viewPicker() string {
	var b strings.Builder
	b.WriteString("Company: ")
	b.WriteString(InputStyle.Render(m.filter))
	b.WriteString(DimStyle.Render("▏"))
	b.WriteString("\n\n")

	matches := m.filtered()
	if len(matches) == 0 {
		b.WriteString(DimStyle.Render("  No matching companies"))
		b.WriteString("\n")
		return b.String()
	}

	visible := max(1, m.height-8)
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}
	end := min(len(matches), start+visible)
	for i := start; i < end; i++ {
		if i == m.selected {
			b.WriteString(SelectedStyle.Render("▸ " + matches[i]))
		} else {
			b.WriteString("  " + matches[i])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewChat() string {
	width := max(20, m.width-2)
	var lines []string
	for _, msg := range m.messages {
		lines = append(lines, renderMessage(msg, width)...)
		lines = append(lines, "")
	}

	// Keep the newest lines in view unless scrolled back.
	visible := m.pageSize()
	end := max(0, len(lines)-m.scroll)
	start := max(0, end-visible)

	var b strings.Builder
	for _, l := range lines[start:end] {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString(DividerStyle.Render(strings.Repeat("─", max(10, m.width))))
	b.WriteString("\n> ")
	b.WriteString(InputStyle.Render(m.input))
	b.WriteString(DimStyle.Render("▏"))
	b.WriteString("\n")
	return b.String()
}

// renderMessage lays out one chat message as wrapped lines.
func renderMessage(msg models.ChatMessage, width int) []string {
	label := AssistantLabelStyle.Render("Assistant")
	if msg.Role == models.RoleUser {
		label = UserLabelStyle.Render("You")
	}
	body := lipgloss.NewStyle().Width(width).Render(msg.Content)
	lines := append([]string{label}, strings.Split(body, "\n")...)
	return lines
}

func (m Model) viewStatus() string {
	if m.errorMessage != "" {
		return ErrorStyle.Render("Error: " + m.errorMessage)
	}
	if m.busy {
		return SpinnerStyle.Render(spinnerFrames[m.spinnerFrame]) + " " + StatusStyle.Render(m.status)
	}
	return StatusStyle.Render(m.status)
}

func (m Model) viewFooter() string {
	var keys [][2]string
	if m.mode == ModePicker {
		keys = [][2]string{{"↑/↓", "move"}, {"enter", "select"}, {"esc", "clear/back"}, {"ctrl+c", "quit"}}
	} else {
		keys = [][2]string{{"enter", "send"}, {"pgup/pgdn", "scroll"}, {"tab", "change company"}, {"ctrl+c", "quit"}}
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %s", FooterKeyStyle.Render(k[0]), FooterDescStyle.Render(k[1]))
	}
	return strings.Join(parts, "  ")
}
