package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dounan/diffle-solver/internal/feedback"
	"github.com/dounan/diffle-solver/internal/game"

	tea "github.com/charmbracelet/bubbletea"
)

const helpMarkdown = `# diffle solver

Type a guess and press Enter, then enter the board's feedback for it.
Pressing Enter on an empty line plays the suggested guess.

## Feedback code

One symbol per guess letter, in order:

| symbol | meaning |
|--------|---------|
| ` + "`x`" + ` | letter is not in the word (this occurrence) |
| ` + "`h`" + ` | letter is in the word and starts a new in-order run |
| ` + "`t`" + ` | letter directly follows the previous guess letter |
| ` + "`?`" + ` | letter is in the word but out of order |

Append ` + "`^`" + ` after a symbol if that letter is the first letter of the
hidden word, ` + "`$`" + ` if it is the last. Example: for the guess ` + "`crane`" + `
the code ` + "`h^txx?`" + ` means C starts the word, R follows it, A and N are
absent, E is present somewhere later.

## Commands

- ` + "`/new`" + ` — start a new game
- ` + "`/words [n]`" + ` — show up to n remaining candidates (default 20)
- ` + "`/html <fragment>`" + ` — parse a copied guess-row HTML fragment
- ` + "`/board`" + ` — read the latest row from the connected browser
- ` + "`/resume <id>`" + ` — pick up a stored session (ids from ` + "`/status`" + ` or ` + "`diffle status`" + `)
- ` + "`/status`" + ` — session summary
- ` + "`/help`" + ` — this help
- ` + "`/quit`" + ` — exit
`

// handleCommand dispatches a /command line.
func (m Model) handleCommand(line string) (tea.Model, tea.Cmd) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/help":
		m.push(roleSolver, m.renderMarkdown(helpMarkdown))

	case "/new":
		m.session = game.NewSession(m.allowed, m.answers)
		m.inputMode = InputModeGuess
		m.pendingGuess = ""
		m.suggestion = nil
		m.err = nil
		m.input.Placeholder = "guess"
		m.persistSession()
		m.push(roleSystem, fmt.Sprintf("New game: %d candidate answers.", m.answers.Len()))
		return m, tea.Batch(m.spinner.Tick, m.suggestCmd("computing opening guess"))

	case "/words":
		limit := 20
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 1 {
				m.push(roleSystem, m.styles.Warning.Render("usage: /words [n]"))
				return m, nil
			}
			limit = n
		}
		m.push(roleSolver, m.renderRemaining(limit))

	case "/html":
		if rest == "" {
			m.push(roleSystem, m.styles.Warning.Render("usage: /html <guess-row fragment>"))
			return m, nil
		}
		result, err := feedback.ParseHTML(rest)
		if err != nil {
			m.push(roleSystem, m.styles.Warning.Render("parse html: "+err.Error()))
			return m, nil
		}
		if m.pendingGuess != "" && result.Guess != m.pendingGuess {
			m.push(roleSystem, m.styles.Warning.Render(
				fmt.Sprintf("row is for %q but the pending guess is %q", result.Guess, m.pendingGuess)))
			return m, nil
		}
		return m.applyResult(result)

	case "/board":
		if m.reader == nil {
			m.push(roleSystem, m.styles.Warning.Render("browser capture is not enabled; see the browser section of config.yaml"))
			return m, nil
		}
		return m, tea.Batch(m.spinner.Tick, m.captureCmd())

	case "/resume":
		if rest == "" {
			m.push(roleSystem, m.styles.Warning.Render("usage: /resume <session-id>"))
			return m, nil
		}
		if m.store == nil {
			m.push(roleSystem, m.styles.Warning.Render("no store configured; nothing to resume"))
			return m, nil
		}
		return m.resumeSession(rest)

	case "/status":
		m.push(roleSolver, m.renderStatus())

	default:
		m.push(roleSystem, m.styles.Warning.Render("unknown command "+cmd+"; /help lists commands"))
	}
	return m, nil
}

// resumeSession swaps in a stored session, replaying its turns against
// the current answer list.
func (m Model) resumeSession(idPrefix string) (tea.Model, tea.Cmd) {
	info, err := m.store.FindSession(idPrefix)
	if err != nil {
		m.push(roleSystem, m.styles.Warning.Render(err.Error()))
		return m, nil
	}
	records, err := m.store.SessionTurns(info.ID)
	if err != nil {
		m.push(roleSystem, m.styles.Warning.Render(err.Error()))
		return m, nil
	}

	results := make([]feedback.Result, 0, len(records))
	for _, rec := range records {
		result, err := feedback.ParseShorthand(rec.Guess, rec.Marks)
		if err != nil {
			m.push(roleSystem, m.styles.Warning.Render(fmt.Sprintf("stored turn %d: %v", rec.Turn, err)))
			return m, nil
		}
		results = append(results, result)
	}

	session, err := game.Resume(m.allowed, m.answers, info.ID, info.CreatedAt, results)
	if err != nil {
		m.push(roleSystem, m.styles.Warning.Render(err.Error()))
		return m, nil
	}

	m.session = session
	m.inputMode = InputModeGuess
	m.pendingGuess = ""
	m.suggestion = nil
	m.err = nil
	m.input.Placeholder = "guess"

	for _, result := range results {
		m.push(roleUser, m.renderTiles(result))
	}
	if session.Solved {
		m.push(roleSystem, fmt.Sprintf("Resumed session %s: already solved as %s.",
			session.ID[:8], strings.ToUpper(session.Turns[len(session.Turns)-1].Guess)))
		return m, nil
	}
	m.push(roleSystem, fmt.Sprintf("Resumed session %s at turn %d: %d candidate(s) remain.",
		session.ID[:8], len(session.Turns), len(session.Remaining)))
	return m, tea.Batch(m.spinner.Tick, m.suggestCmd("scoring"))
}

// renderRemaining lists a sample of the remaining candidates.
func (m Model) renderRemaining(limit int) string {
	remaining := m.session.Remaining
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d candidate(s) remain", len(remaining))
	if len(remaining) == 0 {
		return sb.String()
	}
	sb.WriteString(":\n")
	shown := remaining
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, w := range shown {
		sb.WriteString("  " + w.Text + "\n")
	}
	if len(remaining) > limit {
		fmt.Fprintf(&sb, "  … and %d more", len(remaining)-limit)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderStatus summarizes the session.
func (m Model) renderStatus() string {
	k := m.session.Knowledge()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %s\n", m.session.ID)
	fmt.Fprintf(&sb, "Turns: %d  Letters used: %d  Remaining: %d\n",
		len(m.session.Turns), m.session.LettersUsed(), k.Remaining)
	if k.StartLetter != 0 {
		fmt.Fprintf(&sb, "Starts with: %c\n", k.StartLetter)
	}
	if k.EndLetter != 0 {
		fmt.Fprintf(&sb, "Ends with: %c\n", k.EndLetter)
	}
	if len(k.Runs) > 0 {
		fmt.Fprintf(&sb, "Known runs: %s\n", strings.Join(k.Runs, ", "))
	}
	letters := make([]string, 0, len(k.Letters))
	for c, b := range k.Letters {
		if b.Exact {
			letters = append(letters, fmt.Sprintf("%c=%d", c, b.Min))
		} else {
			letters = append(letters, fmt.Sprintf("%c≥%d", c, b.Min))
		}
	}
	sort.Strings(letters)
	if len(letters) > 0 {
		fmt.Fprintf(&sb, "Letter counts: %s", strings.Join(letters, " "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
