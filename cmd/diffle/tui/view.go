package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dounan/diffle-solver/internal/feedback"

	"github.com/charmbracelet/lipgloss"
)

const sidebarWidth = 26

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()

	transcript := m.styles.Content.Render(m.viewport.View())
	sidebar := m.renderSidebar()
	body := lipgloss.JoinHorizontal(lipgloss.Top, transcript, sidebar)

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1).
		Width(m.width - 4)
	inputArea := inputStyle.Render(m.input.View())

	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, inputArea, footer)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" diffle ")

	var status string
	if m.isLoading {
		msg := m.statusMessage
		if msg == "" {
			msg = "thinking"
		}
		status = lipgloss.JoinHorizontal(lipgloss.Center, m.spinner.View(), " ", m.styles.Badge.Render(msg))
	} else if m.inputMode == InputModeFeedback {
		status = m.styles.Warning.Render(fmt.Sprintf("feedback for %s", strings.ToUpper(m.pendingGuess)))
	} else {
		status = m.styles.Success.Render("your guess")
	}

	dicts := m.styles.Muted.Render(fmt.Sprintf(" answers:%s allowed:%s", m.answers.Name, m.allowed.Name))

	headerLine := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status)
	return lipgloss.JoinVertical(lipgloss.Left, headerLine, dicts, m.styles.RenderDivider(m.width))
}

func (m Model) renderFooter() string {
	hint := "Enter: submit | empty Enter: accept suggestion | /help | Esc: quit"
	return m.styles.Footer.Render(hint)
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	for _, msg := range m.history {
		switch msg.Role {
		case roleUser:
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		case roleSolver:
			sb.WriteString(m.styles.Suggestion.Render(msg.Content))
			sb.WriteString("\n\n")
		default:
			sb.WriteString(m.styles.Muted.Render(msg.Content))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// renderTiles draws one feedback row as colored tiles.
func (m Model) renderTiles(result feedback.Result) string {
	var parts []string
	for _, mark := range result.Marks {
		letter := strings.ToUpper(string(mark.Letter))
		if mark.Start {
			letter = "^" + letter
		}
		if mark.End {
			letter = letter + "$"
		}
		var style lipgloss.Style
		switch {
		case mark.Absent:
			style = m.styles.TileAbsent
		case mark.Misplaced:
			style = m.styles.TileMisplaced
		case mark.Start || mark.End:
			style = m.styles.TileAnchor
		case mark.Tail:
			style = m.styles.TileTail
		default:
			style = m.styles.TileHead
		}
		parts = append(parts, style.Render(letter))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

// renderSidebar shows what the session knows about the hidden word.
func (m Model) renderSidebar() string {
	k := m.session.Knowledge()

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Known") + "\n")
	fmt.Fprintf(&sb, "remaining %d\n", k.Remaining)
	fmt.Fprintf(&sb, "turns %d\n", len(m.session.Turns))
	fmt.Fprintf(&sb, "letters %d\n", m.session.LettersUsed())

	if k.StartLetter != 0 || k.EndLetter != 0 {
		sb.WriteString("\n")
		if k.StartLetter != 0 {
			fmt.Fprintf(&sb, "starts %c\n", k.StartLetter)
		}
		if k.EndLetter != 0 {
			fmt.Fprintf(&sb, "ends %c\n", k.EndLetter)
		}
	}

	if len(k.Runs) > 0 {
		sb.WriteString("\n" + m.styles.Bold.Render("runs") + "\n")
		for _, run := range k.Runs {
			sb.WriteString(run + "\n")
		}
	}

	if len(k.Letters) > 0 {
		sb.WriteString("\n" + m.styles.Bold.Render("letters") + "\n")
		letters := make([]byte, 0, len(k.Letters))
		for c := range k.Letters {
			letters = append(letters, c)
		}
		sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
		for _, c := range letters {
			b := k.Letters[c]
			op := "≥"
			if b.Exact {
				op = "="
			}
			fmt.Fprintf(&sb, "%c %s %d\n", c, op, b.Min)
		}
	}

	height := m.viewport.Height
	return m.styles.Sidebar.
		Width(sidebarWidth).
		Height(height).
		Render(strings.TrimRight(sb.String(), "\n"))
}

// renderMarkdown renders help text, falling back to plain text if the
// renderer is unavailable or panics.
func (m Model) renderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}
