package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dounan/diffle-solver/cmd/diffle/tui"
	"github.com/dounan/diffle-solver/internal/board"
	"github.com/dounan/diffle-solver/internal/config"
	"github.com/dounan/diffle-solver/internal/logging"
	"github.com/dounan/diffle-solver/internal/solver"
	"github.com/dounan/diffle-solver/internal/store"
	"github.com/dounan/diffle-solver/internal/words"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose      bool
	homeDir      string
	strategyFlag string
	workersFlag  int
	seedFlag     int64

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "diffle",
	Short: "diffle - solver for the variable-length word guessing game",
	Long: `diffle suggests guesses for Diffle, the word game where the hidden
word's length is unknown and feedback tells you which guess letters
appear in the hidden word in order.

Run without arguments to start the interactive solver.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive UI has its own logging; keep its terminal clean.
		if cmd.Use == "diffle" && cmd.CalledAs() == "diffle" {
			return logging.Initialize(resolveHome())
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return logging.Initialize(resolveHome())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

func resolveHome() string {
	if homeDir != "" {
		return homeDir
	}
	return config.DefaultHome()
}

// loadConfig loads config.yaml from the home directory and applies
// command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveHome())
	if err != nil {
		return nil, err
	}
	if strategyFlag != "" {
		cfg.Solver.Strategy = strategyFlag
	}
	if workersFlag > 0 {
		cfg.Solver.Workers = workersFlag
	}
	if seedFlag != 0 {
		cfg.Solver.Seed = seedFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// environment is everything a solving command needs.
type environment struct {
	cfg     *config.Config
	allowed *words.Dictionary
	answers *words.Dictionary
	solver  *solver.Solver
	store   *store.Store
}

func (e *environment) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// loadStore opens just the config and store, for commands that manage
// the store before any dictionary exists.
func loadStore() (*config.Config, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, st, nil
}

// loadEnvironment opens the store and loads both dictionaries, falling
// back to the store for a dictionary whose file is missing.
func loadEnvironment() (*environment, error) {
	cfg, st, err := loadStore()
	if err != nil {
		return nil, err
	}

	allowed, err := loadDictionary(st, "allowed", cfg.Dictionaries.Allowed, cfg.Solver.MaxWordLength)
	if err != nil {
		st.Close()
		return nil, err
	}
	answers, err := loadDictionary(st, "answers", cfg.Dictionaries.Answers, 0)
	if err != nil {
		st.Close()
		return nil, err
	}

	slv := solver.New(allowed, solver.Options{
		Strategy: solver.Strategy(cfg.Solver.Strategy),
		Workers:  cfg.Solver.Workers,
		Seed:     cfg.Solver.Seed,
	})

	return &environment{cfg: cfg, allowed: allowed, answers: answers, solver: slv, store: st}, nil
}

// loadDictionary prefers the CSV file and falls back to the imported
// copy in the store.
func loadDictionary(st *store.Store, name, path string, maxLen int) (*words.Dictionary, error) {
	d, err := words.LoadDictionary(name, path, maxLen)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s dictionary: %w", name, err)
	}
	d, serr := st.LoadDictionary(name)
	if serr != nil {
		return nil, fmt.Errorf("load %s dictionary: %w (and no imported copy: %v)", name, err, serr)
	}
	logging.Dict("%s: file %s missing, using imported copy (%d words)", name, path, d.Len())
	return d, nil
}

// openingGuess returns the cached opening for the dictionary pair, or
// computes and caches it.
func openingGuess(env *environment) (string, int, error) {
	afp, nfp := env.allowed.Fingerprint(), env.answers.Fingerprint()
	strategy := env.cfg.Solver.Strategy

	if guess, score, ok, err := env.store.OpeningGuess(afp, nfp, strategy); err == nil && ok {
		logging.Solver("opening guess from cache: %s (score %d)", guess, score)
		return guess, score, nil
	}

	rec, err := env.solver.NextGuess(rootContext(), solver.Request{Remaining: env.answers.Words})
	if err != nil {
		return "", 0, err
	}
	if err := env.store.SaveOpeningGuess(afp, nfp, strategy, rec.Word.Text, rec.Score); err != nil {
		logging.Store("cache opening guess: %v", err)
	}
	return rec.Word.Text, rec.Score, nil
}

// runInteractive launches the TUI.
func runInteractive() error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.close()

	var reader *board.Reader
	if env.cfg.Browser.Enabled {
		reader = board.NewReader(boardConfig(env.cfg))
		ctx := rootContext()
		if err := reader.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "browser capture unavailable: %v\n", err)
			reader = nil
		} else if err := reader.Open(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "browser capture unavailable: %v\n", err)
			_ = reader.Close()
			reader = nil
		} else {
			defer reader.Close()
		}
	}

	model := tui.New(tui.Options{
		Config:  env.cfg,
		Allowed: env.allowed,
		Answers: env.answers,
		Solver:  env.solver,
		Store:   env.store,
		Reader:  reader,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	// Hot-reload dictionary edits into the running program.
	paths := []string{env.cfg.Dictionaries.Allowed, env.cfg.Dictionaries.Answers}
	watcher, werr := words.NewWatcher(paths, func(path string) {
		allowed, lerr := words.LoadDictionary("allowed", env.cfg.Dictionaries.Allowed, env.cfg.Solver.MaxWordLength)
		if lerr != nil {
			logging.DictError("reload after %s changed: %v", path, lerr)
			return
		}
		answers, lerr := words.LoadDictionary("answers", env.cfg.Dictionaries.Answers, env.cfg.Solver.MaxWordLength)
		if lerr != nil {
			logging.DictError("reload after %s changed: %v", path, lerr)
			return
		}
		p.Send(tui.DictionariesReloadedMsg{Allowed: allowed, Answers: answers})
	})
	if werr != nil {
		logging.DictError("dictionary watcher unavailable: %v", werr)
	} else if werr = watcher.Start(rootContext()); werr != nil {
		logging.DictError("dictionary watcher unavailable: %v", werr)
	} else {
		defer watcher.Stop()
	}

	_, err = p.Run()
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Solver home directory (default: $DIFFLE_HOME or ~/.diffle)")
	rootCmd.PersistentFlags().StringVar(&strategyFlag, "strategy", "", "Scoring strategy: minimax or frequency")
	rootCmd.PersistentFlags().IntVar(&workersFlag, "workers", 0, "Scoring worker count (default: all CPUs)")
	rootCmd.PersistentFlags().Int64Var(&seedFlag, "seed", 0, "Random seed for tie-breaking (default: time)")

	dictCmd.AddCommand(dictImportCmd)
	dictCmd.AddCommand(dictListCmd)
	dictCmd.AddCommand(dictShowCmd)

	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(dictCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// parseTurn splits a guess:code argument.
func parseTurn(arg string) (guess, code string, err error) {
	guess, code, ok := strings.Cut(arg, ":")
	if !ok {
		return "", "", fmt.Errorf("turn %q: want guess:code, e.g. crane:h^txx?", arg)
	}
	return strings.ToLower(guess), code, nil
}
