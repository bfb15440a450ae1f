// Package tui provides the interactive terminal interface for the diffle
// solver: type a guess, enter the board's feedback, get the next guess.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dounan/diffle-solver/cmd/diffle/ui"
	"github.com/dounan/diffle-solver/internal/board"
	"github.com/dounan/diffle-solver/internal/config"
	"github.com/dounan/diffle-solver/internal/feedback"
	"github.com/dounan/diffle-solver/internal/game"
	"github.com/dounan/diffle-solver/internal/logging"
	"github.com/dounan/diffle-solver/internal/solver"
	"github.com/dounan/diffle-solver/internal/store"
	"github.com/dounan/diffle-solver/internal/words"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// InputMode is the input state machine: either a guess word is expected,
// or the feedback code for the guess just played.
type InputMode int

const (
	InputModeGuess InputMode = iota
	InputModeFeedback
)

// Message roles in the transcript.
const (
	roleUser   = "user"
	roleSolver = "solver"
	roleSystem = "system"
)

// Message is one transcript entry.
type Message struct {
	Role    string
	Content string
}

// Options wires the interface to its collaborators. Store and Reader may
// be nil; the interface degrades to in-memory play.
type Options struct {
	Config  *config.Config
	Allowed *words.Dictionary
	Answers *words.Dictionary
	Solver  *solver.Solver
	Store   *store.Store
	Reader  *board.Reader
}

// Model is the bubbletea model for the interactive solver.
type Model struct {
	// UI components
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   ui.Styles
	renderer *glamour.TermRenderer

	// Collaborators
	cfg     *config.Config
	allowed *words.Dictionary
	answers *words.Dictionary
	solver  *solver.Solver
	store   *store.Store
	reader  *board.Reader

	// Game state
	session      *game.Session
	inputMode    InputMode
	pendingGuess string
	suggestion   *solver.Recommendation

	// View state
	history       []Message
	width, height int
	ready         bool
	isLoading     bool
	statusMessage string
	err           error
}

// suggestMsg carries an async solver recommendation.
type suggestMsg struct {
	rec solver.Recommendation
	err error
}

// boardRowMsg carries feedback captured from the live board.
type boardRowMsg struct {
	result feedback.Result
	err    error
}

// DictionariesReloadedMsg is sent from outside the program when a
// dictionary file changed on disk and has been re-read.
type DictionariesReloadedMsg struct {
	Allowed *words.Dictionary
	Answers *words.Dictionary
}

// New builds the interactive model.
func New(opts Options) Model {
	styles := ui.DefaultStyles()

	input := textinput.New()
	input.Placeholder = "guess"
	input.Prompt = styles.Prompt.Render("> ")
	input.CharLimit = 256
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := Model{
		input:     input,
		spinner:   sp,
		styles:    styles,
		cfg:       opts.Config,
		allowed:   opts.Allowed,
		answers:   opts.Answers,
		solver:    opts.Solver,
		store:     opts.Store,
		reader:    opts.Reader,
		session:   game.NewSession(opts.Allowed, opts.Answers),
		inputMode: InputModeGuess,
	}
	m.persistSession()
	m.push(roleSystem, fmt.Sprintf("New game: %d candidate answers, %d allowed guesses. /help for commands.",
		opts.Answers.Len(), opts.Allowed.Len()))
	// Init's receiver is a copy bubbletea discards, so the opening scan's
	// loading state has to be set here.
	m.isLoading = true
	m.statusMessage = "computing opening guess"
	return m
}

// Init starts the spinner and kicks off the opening suggestion.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.suggestCmd("computing opening guess"),
	)
}

// suggestCmd asks the solver for the next guess off the main loop.
func (m *Model) suggestCmd(status string) tea.Cmd {
	m.isLoading = true
	m.statusMessage = status
	s := m.solver
	// Snapshot both fields: the session mutates them on the Update
	// goroutine while the scan runs.
	req := solver.Request{
		Remaining: append([]*words.Word(nil), m.session.Remaining...),
		Attempted: m.session.AttemptedLetters(),
	}
	return func() tea.Msg {
		rec, err := s.NextGuess(context.Background(), req)
		return suggestMsg{rec: rec, err: err}
	}
}

// captureCmd reads the latest guess row off the live board.
func (m *Model) captureCmd() tea.Cmd {
	m.isLoading = true
	m.statusMessage = "reading board"
	reader := m.reader
	timeout := 10 * time.Second
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		html, err := reader.LatestRowHTML(ctx)
		if err != nil {
			return boardRowMsg{err: err}
		}
		result, err := feedback.ParseHTML(html)
		return boardRowMsg{result: result, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		inCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 4
		footerHeight := 4
		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width-sidebarWidth-6, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - sidebarWidth - 6
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 8
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(m.viewport.Width-2),
		)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			value := strings.TrimSpace(strings.ToLower(m.input.Value()))
			m.input.Reset()
			return m.handleInput(value)
		}

	case suggestMsg:
		m.isLoading = false
		m.statusMessage = ""
		if msg.err != nil {
			m.err = msg.err
			m.push(roleSystem, m.styles.Error.Render("solver: "+msg.err.Error()))
			break
		}
		rec := msg.rec
		m.suggestion = &rec
		m.push(roleSolver, fmt.Sprintf("Try %s  (worst case %d of %d, %s, %v)",
			m.styles.Bold.Render(strings.ToUpper(rec.Word.Text)),
			rec.Score, len(m.session.Remaining), rec.Strategy, rec.Elapsed.Round(time.Millisecond)))

	case boardRowMsg:
		m.isLoading = false
		m.statusMessage = ""
		if msg.err != nil {
			m.err = msg.err
			m.push(roleSystem, m.styles.Error.Render("board: "+msg.err.Error()))
			break
		}
		return m.applyResult(msg.result)

	case DictionariesReloadedMsg:
		// The running session keeps its word pool; the fresh lists take
		// effect on /new.
		m.allowed = msg.Allowed
		m.answers = msg.Answers
		m.solver = solver.New(msg.Allowed, solver.Options{
			Strategy: solver.Strategy(m.cfg.Solver.Strategy),
			Workers:  m.cfg.Solver.Workers,
			Seed:     m.cfg.Solver.Seed,
		})
		m.push(roleSystem, fmt.Sprintf("Dictionaries reloaded from disk (%d answers, %d allowed). /new to play on the updated lists.",
			msg.Answers.Len(), msg.Allowed.Len()))

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
		}
	}

	m.input, inCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(inCmd, vpCmd, spCmd)
}

// handleInput routes one submitted line.
func (m Model) handleInput(value string) (tea.Model, tea.Cmd) {
	if value == "" {
		// Empty guess entry accepts the current suggestion; empty
		// feedback entry reads the board when a browser is connected.
		if m.inputMode == InputModeGuess && m.suggestion != nil {
			return m.acceptGuess(m.suggestion.Word.Text)
		}
		if m.inputMode == InputModeFeedback && m.reader != nil {
			return m, tea.Batch(m.spinner.Tick, m.captureCmd())
		}
		return m, nil
	}
	if strings.HasPrefix(value, "/") {
		return m.handleCommand(value)
	}

	switch m.inputMode {
	case InputModeGuess:
		return m.acceptGuess(value)
	default:
		return m.acceptFeedback(value)
	}
}

// acceptGuess validates a guess word and switches to feedback entry.
func (m Model) acceptGuess(text string) (tea.Model, tea.Cmd) {
	w, err := words.New(text)
	if err != nil {
		m.push(roleSystem, m.styles.Warning.Render(err.Error()))
		return m, nil
	}
	if m.allowed.Lookup(w.Text) == nil {
		m.push(roleSystem, m.styles.Warning.Render(fmt.Sprintf("%q is not in the allowed word list", w.Text)))
		return m, nil
	}
	m.pendingGuess = w.Text
	m.inputMode = InputModeFeedback
	m.push(roleUser, strings.ToUpper(w.Text))

	if m.reader != nil {
		m.push(roleSystem, "Play it, then press Enter on an empty line to read the board, or type the feedback code.")
	} else {
		m.push(roleSystem, fmt.Sprintf("Feedback for %s: one symbol per letter (x absent, h new run, t continues, ? out of order), ^/$ after a symbol for word start/end.", strings.ToUpper(w.Text)))
	}
	m.input.Placeholder = "feedback"
	return m, nil
}

// acceptFeedback parses a shorthand code for the pending guess.
func (m Model) acceptFeedback(code string) (tea.Model, tea.Cmd) {
	if m.pendingGuess == "" {
		m.push(roleSystem, m.styles.Warning.Render("no guess pending"))
		m.inputMode = InputModeGuess
		return m, nil
	}
	result, err := feedback.ParseShorthand(m.pendingGuess, code)
	if err != nil {
		m.push(roleSystem, m.styles.Warning.Render(err.Error()))
		return m, nil
	}
	return m.applyResult(result)
}

// applyResult folds one feedback result into the session and asks for
// the next guess.
func (m Model) applyResult(result feedback.Result) (tea.Model, tea.Cmd) {
	m.push(roleUser, m.renderTiles(result))

	if err := m.session.Apply(result); err != nil {
		m.err = err
		m.push(roleSystem, m.styles.Error.Render(err.Error()+" — check the feedback entry"))
		return m, nil
	}
	m.pendingGuess = ""
	m.inputMode = InputModeGuess
	m.input.Placeholder = "guess"
	m.suggestion = nil
	m.persistTurn()

	if m.session.Solved {
		turn := m.session.Turns[len(m.session.Turns)-1]
		m.push(roleSystem, m.styles.Success.Render(fmt.Sprintf("Solved: %s in %d guesses, %d letters.",
			strings.ToUpper(turn.Guess), len(m.session.Turns), m.session.LettersUsed())))
		m.push(roleSystem, "/new starts another game.")
		if m.store != nil {
			if err := m.store.FinishSession(m.session.ID); err != nil {
				logging.TUI("finish session: %v", err)
			}
		}
		return m, nil
	}

	m.push(roleSystem, fmt.Sprintf("%d candidate(s) remain.", len(m.session.Remaining)))
	return m, tea.Batch(m.spinner.Tick, m.suggestCmd("scoring guesses"))
}

// push appends a transcript message and scrolls to the bottom.
func (m *Model) push(role, content string) {
	m.history = append(m.history, Message{Role: role, Content: content})
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// persistSession records the new session, best effort.
func (m *Model) persistSession() {
	if m.store == nil {
		return
	}
	if err := m.store.CreateSession(m.session.ID, m.allowed.Fingerprint(), m.answers.Fingerprint()); err != nil {
		logging.TUI("create session: %v", err)
	}
}

// persistTurn records the latest turn, best effort.
func (m *Model) persistTurn() {
	if m.store == nil || len(m.session.Turns) == 0 {
		return
	}
	turn := m.session.Turns[len(m.session.Turns)-1]
	if err := m.store.RecordTurn(m.session.ID, len(m.session.Turns), turn.Guess, turn.Result.Shorthand(), turn.RemainingAfter); err != nil {
		logging.TUI("record turn: %v", err)
	}
}
