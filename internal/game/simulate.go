package game

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dounan/diffle-solver/internal/feedback"
	"github.com/dounan/diffle-solver/internal/logging"
	"github.com/dounan/diffle-solver/internal/solver"
	"github.com/dounan/diffle-solver/internal/words"

	"golang.org/x/sync/errgroup"
)

// maxSimTurns caps a self-play game; a run this long means the guess
// loop is not converging.
const maxSimTurns = 64

// SimOptions configures a simulation run.
type SimOptions struct {
	Sample  int    // 0 = every answer
	Workers int    // concurrent games; 0 = 1
	Opening string // fixed first guess, "" = let the solver choose
}

// GameResult is the outcome of one self-play game.
type GameResult struct {
	Hidden  string
	Turns   int
	Letters int
	Solved  bool
}

// SimReport aggregates a simulation run.
type SimReport struct {
	Games         int
	SolvedGames   int
	Failed        []string
	TurnHistogram map[int]int
	TotalTurns    int
	TotalLetters  int
	WorstTurns    int
	Elapsed       time.Duration
}

// MeanTurns returns the average turn count over solved games.
func (r SimReport) MeanTurns() float64 {
	if r.SolvedGames == 0 {
		return 0
	}
	return float64(r.TotalTurns) / float64(r.SolvedGames)
}

// MeanLetters returns the average letters spent over solved games.
func (r SimReport) MeanLetters() float64 {
	if r.SolvedGames == 0 {
		return 0
	}
	return float64(r.TotalLetters) / float64(r.SolvedGames)
}

// Simulate self-plays the solver against hidden answers using the
// feedback oracle. The opening guess is computed once and shared, since
// it only depends on the dictionaries.
func Simulate(ctx context.Context, allowed, answers *words.Dictionary, s *solver.Solver, opts SimOptions) (SimReport, error) {
	timer := logging.StartTimer(logging.CategoryGame, "Simulate")
	defer timer.Stop()
	start := time.Now()

	hiddens := answers.Words
	if opts.Sample > 0 && opts.Sample < len(hiddens) {
		hiddens = hiddens[:opts.Sample]
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	var opening *words.Word
	if opts.Opening != "" {
		opening = allowed.Lookup(opts.Opening)
		if opening == nil {
			return SimReport{}, fmt.Errorf("opening guess %q is not in the allowed list", opts.Opening)
		}
	} else {
		rec, err := s.NextGuess(ctx, solver.Request{Remaining: answers.Words})
		if err != nil {
			return SimReport{}, fmt.Errorf("compute opening guess: %w", err)
		}
		opening = rec.Word
	}
	logging.Game("simulate: %d games, opening=%q, workers=%d", len(hiddens), opening, workers)

	results := make([]GameResult, len(hiddens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, hidden := range hiddens {
		i, hidden := i, hidden
		g.Go(func() error {
			res, err := playOne(gctx, allowed, answers, s, opening, hidden)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SimReport{}, err
	}

	report := SimReport{TurnHistogram: make(map[int]int), Games: len(results)}
	for _, res := range results {
		if !res.Solved {
			report.Failed = append(report.Failed, res.Hidden)
			continue
		}
		report.SolvedGames++
		report.TotalTurns += res.Turns
		report.TotalLetters += res.Letters
		report.TurnHistogram[res.Turns]++
		if res.Turns > report.WorstTurns {
			report.WorstTurns = res.Turns
		}
	}
	sort.Strings(report.Failed)
	report.Elapsed = time.Since(start)
	logging.Game("simulate done: %d/%d solved, mean turns %.2f, mean letters %.2f",
		report.SolvedGames, report.Games, report.MeanTurns(), report.MeanLetters())
	return report, nil
}

// playOne runs a single self-play game against a known hidden word.
func playOne(ctx context.Context, allowed, answers *words.Dictionary, s *solver.Solver, opening, hidden *words.Word) (GameResult, error) {
	session := NewSession(allowed, answers)
	guess := opening

	for turn := 1; turn <= maxSimTurns; turn++ {
		if ctx.Err() != nil {
			return GameResult{}, ctx.Err()
		}

		result := feedback.Score(guess, hidden)
		if err := session.Apply(result); err != nil {
			// The oracle never contradicts the hidden word; a failure
			// here is a solver bug worth surfacing.
			return GameResult{}, fmt.Errorf("hidden %q, guess %q: %w", hidden, guess, err)
		}
		if guess.Text == hidden.Text {
			return GameResult{Hidden: hidden.Text, Turns: turn, Letters: session.LettersUsed(), Solved: true}, nil
		}

		rec, err := s.NextGuess(ctx, solver.Request{Remaining: session.Remaining, Attempted: session.Attempted})
		if err != nil {
			return GameResult{}, fmt.Errorf("hidden %q: %w", hidden, err)
		}
		guess = rec.Word
	}
	return GameResult{Hidden: hidden.Text, Solved: false}, nil
}
