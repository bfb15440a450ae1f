package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dounan/diffle-solver/internal/board"
	"github.com/dounan/diffle-solver/internal/config"
	"github.com/dounan/diffle-solver/internal/feedback"
	"github.com/dounan/diffle-solver/internal/game"
	"github.com/dounan/diffle-solver/internal/solver"
	"github.com/dounan/diffle-solver/internal/words"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rootCtx     context.Context
	rootCtxOnce sync.Once
)

// rootContext returns a process-wide context cancelled on SIGINT/SIGTERM.
func rootContext() context.Context {
	rootCtxOnce.Do(func() {
		rootCtx, _ = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	})
	return rootCtx
}

func boardConfig(cfg *config.Config) board.Config {
	bc := board.DefaultConfig()
	bc.DebuggerURL = cfg.Browser.DebuggerURL
	bc.Headless = cfg.Browser.Headless
	if cfg.Browser.GameURL != "" {
		bc.GameURL = cfg.Browser.GameURL
	}
	if cfg.Browser.RowSelector != "" {
		bc.RowSelector = cfg.Browser.RowSelector
	}
	if cfg.Browser.TimeoutSecs > 0 {
		bc.NavigationTimeout = time.Duration(cfg.Browser.TimeoutSecs) * time.Second
	}
	return bc
}

// suggestCmd scores one position from the command line
var suggestCmd = &cobra.Command{
	Use:   "suggest [guess:code ...]",
	Short: "Print the best next guess for a position",
	Long: `Replays the given turns and prints the best next guess.

Each turn is guess:code where code is the feedback, one symbol per
letter: x absent, h starts a run, t continues the previous letter,
? present but out of order. Append ^ or $ to a symbol for the hidden
word's first or last letter.

Example:
  diffle suggest crane:h^txx?`,
	RunE: runSuggest,
}

func runSuggest(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.close()

	if len(args) == 0 {
		guess, score, err := openingGuess(env)
		if err != nil {
			return err
		}
		logger.Info("opening guess", zap.String("guess", guess), zap.Int("worst_case", score))
		fmt.Printf("%s  (worst case %d of %d)\n", strings.ToUpper(guess), score, env.answers.Len())
		return nil
	}

	session := game.NewSession(env.allowed, env.answers)
	for _, arg := range args {
		guess, code, err := parseTurn(arg)
		if err != nil {
			return err
		}
		result, err := feedback.ParseShorthand(guess, code)
		if err != nil {
			return fmt.Errorf("turn %q: %w", arg, err)
		}
		if err := session.Apply(result); err != nil {
			return fmt.Errorf("turn %q: %w", arg, err)
		}
	}

	if session.Solved {
		last := session.Turns[len(session.Turns)-1]
		fmt.Printf("already solved: %s\n", strings.ToUpper(last.Guess))
		return nil
	}

	rec, err := env.solver.NextGuess(rootContext(), solver.Request{
		Remaining: session.Remaining,
		Attempted: session.Attempted,
	})
	if err != nil {
		return err
	}
	logger.Info("next guess",
		zap.String("guess", rec.Word.Text),
		zap.Int("worst_case", rec.Score),
		zap.Int("remaining", len(session.Remaining)),
		zap.Duration("elapsed", rec.Elapsed))
	fmt.Printf("%s  (worst case %d of %d remaining)\n", strings.ToUpper(rec.Word.Text), rec.Score, len(session.Remaining))
	return nil
}

// simulateCmd self-plays the solver against the answer list
var (
	simSample  int
	simOpening string
	simWorkers int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Self-play the solver against the answer list",
	Long: `Plays every answer (or a sample) against the solver, generating
feedback the way the game would, and reports turn and letter counts.`,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.close()

	opening := strings.ToLower(simOpening)
	if opening == "" {
		// Reuse the cached opening so runs are comparable.
		opening, _, err = openingGuess(env)
		if err != nil {
			return err
		}
	}

	logger.Info("simulation start",
		zap.Int("answers", env.answers.Len()),
		zap.Int("sample", simSample),
		zap.String("opening", opening))

	report, err := game.Simulate(rootContext(), env.allowed, env.answers, env.solver, game.SimOptions{
		Sample:  simSample,
		Workers: simWorkers,
		Opening: opening,
	})
	if err != nil {
		return err
	}

	fmt.Printf("games:        %d\n", report.Games)
	fmt.Printf("solved:       %d\n", report.SolvedGames)
	fmt.Printf("mean turns:   %.2f\n", report.MeanTurns())
	fmt.Printf("mean letters: %.2f\n", report.MeanLetters())
	fmt.Printf("worst turns:  %d\n", report.WorstTurns)
	fmt.Printf("elapsed:      %v\n", report.Elapsed.Round(time.Millisecond))

	turns := make([]int, 0, len(report.TurnHistogram))
	for t := range report.TurnHistogram {
		turns = append(turns, t)
	}
	sort.Ints(turns)
	for _, t := range turns {
		fmt.Printf("  %2d turns: %d\n", t, report.TurnHistogram[t])
	}
	if len(report.Failed) > 0 {
		fmt.Printf("unsolved: %s\n", strings.Join(report.Failed, ", "))
	}
	return nil
}

// dictCmd groups dictionary management
var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage word lists",
}

var dictImportCmd = &cobra.Command{
	Use:   "import [name] [csv-path]",
	Short: "Import a CSV word list into the store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, err := loadStore()
		if err != nil {
			return err
		}
		defer st.Close()

		// Answer lists are trusted as valid; only guess lists are
		// cleaned of over-length words.
		maxLen := cfg.Solver.MaxWordLength
		if args[0] == "answers" {
			maxLen = 0
		}
		d, err := words.LoadDictionary(args[0], args[1], maxLen)
		if err != nil {
			return err
		}
		if err := st.ImportDictionary(d); err != nil {
			return err
		}
		logger.Info("dictionary imported",
			zap.String("name", d.Name),
			zap.Int("words", d.Len()),
			zap.String("fingerprint", d.Fingerprint()))
		fmt.Printf("imported %q: %d words\n", d.Name, d.Len())
		return nil
	},
}

var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported word lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := loadStore()
		if err != nil {
			return err
		}
		defer st.Close()

		infos, err := st.ListDictionaries()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("no dictionaries imported; see: diffle dict import")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%-12s %6d words  %s  %s\n", info.Name, info.WordCount, info.Fingerprint[:12], info.ImportedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var dictShowLimit int

var dictShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show words from an imported list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := loadStore()
		if err != nil {
			return err
		}
		defer st.Close()

		d, err := st.LoadDictionary(args[0])
		if err != nil {
			return err
		}
		shown := d.Words
		if dictShowLimit > 0 && len(shown) > dictShowLimit {
			shown = shown[:dictShowLimit]
		}
		for _, w := range shown {
			fmt.Println(w.Text)
		}
		if len(shown) < d.Len() {
			fmt.Printf("… %d of %d words\n", len(shown), d.Len())
		}
		return nil
	},
}

const rulesMarkdown = `# How Diffle feedback works

Diffle hides a word of unknown length; guesses may be up to ten
letters. Each guess letter is marked:

- **absent** — that occurrence of the letter is not in the hidden word.
  A repeated guess letter can be present once and absent the second
  time, which pins down its exact count.
- **head** — the letter is in the hidden word and starts a new run of
  guess letters that appear consecutively, in order, in the hidden word.
- **tail** — the letter directly follows the previous guess letter in
  the hidden word, extending the current run.
- **misplaced** — the letter is in the hidden word but not in an
  in-order position relative to its neighbors.
- **start / end** — the letter is the hidden word's first or last
  letter.

The score of a game is the total number of letters in all guesses, so
shorter solving guesses beat long ones.

The solver turns each mark into constraints (letter counts, anchored
first and last letters, ordered runs of consecutive letters) and keeps
only the answers satisfying all of them. Its minimax strategy picks the
guess whose worst-case feedback leaves the fewest candidates.`

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Explain the game's feedback marks",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := glamour.Render(rulesMarkdown, "auto")
		if err != nil {
			fmt.Println(rulesMarkdown)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

// statusCmd reports store contents
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics and recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := loadStore()
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats()
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-18s %d\n", k, stats[k])
		}

		infos, err := st.ListDictionaries()
		if err != nil {
			return err
		}
		if len(infos) > 0 {
			fmt.Println("\ndictionaries:")
			for _, info := range infos {
				fmt.Printf("  %-12s %6d words  imported %s\n", info.Name, info.WordCount, info.ImportedAt.Format("2006-01-02 15:04"))
			}
		}

		sessions, err := st.ListSessions(10)
		if err != nil {
			return err
		}
		if len(sessions) > 0 {
			fmt.Println("\nrecent sessions:")
			for _, s := range sessions {
				state := "open"
				if s.Solved {
					state = "solved"
				}
				fmt.Printf("  %s  %2d turns  %-6s  %s\n", s.ID[:8], s.Turns, state, s.CreatedAt.Format("2006-01-02 15:04"))
			}
		}
		return nil
	},
}

// initCmd writes a default configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the home directory with a default config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		home := resolveHome()
		cfg := config.DefaultConfig(home)
		if _, err := os.Stat(home + "/config.yaml"); err == nil {
			return fmt.Errorf("%s/config.yaml already exists", home)
		}
		if err := cfg.Save(home); err != nil {
			return err
		}
		fmt.Printf("wrote %s/config.yaml\n", home)
		fmt.Println("point dictionaries.allowed and dictionaries.answers at CSV word lists, then run: diffle")
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simSample, "sample", 0, "Play only the first N answers (0 = all)")
	simulateCmd.Flags().StringVar(&simOpening, "opening", "", "Fixed opening guess (default: cached best opening)")
	simulateCmd.Flags().IntVar(&simWorkers, "workers", 0, "Concurrent games (default: 1)")
	dictShowCmd.Flags().IntVar(&dictShowLimit, "limit", 50, "Maximum words to print (0 = all)")
}
