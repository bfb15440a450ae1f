// Package solver picks the next guess. The default strategy is minimax:
// a guess is scored by the largest group of remaining candidates that
// any feedback could leave behind, and the guess with the smallest worst
// case wins. A cheaper letter-frequency strategy is available as an
// alternative.
package solver

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/dounan/diffle-solver/internal/logging"
	"github.com/dounan/diffle-solver/internal/rules"
	"github.com/dounan/diffle-solver/internal/words"

	"golang.org/x/sync/errgroup"
)

// Strategy selects the scoring function.
type Strategy string

const (
	// StrategyMinimax minimizes the worst-case number of remaining words.
	StrategyMinimax Strategy = "minimax"
	// StrategyFrequency maximizes coverage of untried letters weighted by
	// how many remaining words contain them.
	StrategyFrequency Strategy = "frequency"
)

// ErrNoCandidates is returned when no remaining word can be the answer.
var ErrNoCandidates = errors.New("no candidate words remain")

// Options configures a Solver.
type Options struct {
	Strategy Strategy
	Workers  int   // 0 = GOMAXPROCS
	Seed     int64 // 0 = time-seeded
}

// Solver scores guesses against the remaining candidates. Safe for use
// from a single goroutine; scoring fans out internally.
type Solver struct {
	allowed    *words.Dictionary
	guessRules [][]rules.Rule // partition rules per allowed word, same index
	strategy   Strategy
	workers    int

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Recommendation is a scored next-guess suggestion.
type Recommendation struct {
	Word       *words.Word
	Score      int // worst-case remaining (minimax) or coverage (frequency)
	Strategy   Strategy
	Considered int
	Elapsed    time.Duration
}

// Request carries the solver inputs for one turn.
type Request struct {
	Remaining []*words.Word
	// Attempted letters, used by the frequency strategy to skip letters
	// that already carry information.
	Attempted map[byte]bool
}

// New builds a solver over the allowed guess list. Partition rules for
// every allowed word are precomputed once; they only depend on the word.
func New(allowed *words.Dictionary, opts Options) *Solver {
	timer := logging.StartTimer(logging.CategorySolver, "solver.New")
	defer timer.Stop()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyMinimax
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Solver{
		allowed:    allowed,
		guessRules: make([][]rules.Rule, allowed.Len()),
		strategy:   strategy,
		workers:    workers,
		rng:        rand.New(rand.NewSource(seed)),
	}
	for i, w := range allowed.Words {
		s.guessRules[i] = rules.ForGuess(w)
	}
	logging.Solver("solver ready: %d allowed words, strategy=%s, workers=%d", allowed.Len(), strategy, workers)
	return s
}

// NextGuess picks the best next guess for the remaining candidates: a
// single remaining word is picked outright, two remaining words are a
// coin flip, and anything larger runs the scoring scan over the full
// allowed list.
func (s *Solver) NextGuess(ctx context.Context, req Request) (Recommendation, error) {
	start := time.Now()

	switch len(req.Remaining) {
	case 0:
		return Recommendation{}, ErrNoCandidates
	case 1:
		return Recommendation{Word: req.Remaining[0], Score: 1, Strategy: s.strategy, Considered: 1, Elapsed: time.Since(start)}, nil
	case 2:
		s.rngMu.Lock()
		pick := req.Remaining[s.rng.Intn(2)]
		s.rngMu.Unlock()
		return Recommendation{Word: pick, Score: 1, Strategy: s.strategy, Considered: 2, Elapsed: time.Since(start)}, nil
	}

	var rec Recommendation
	var err error
	switch s.strategy {
	case StrategyFrequency:
		rec, err = s.frequencyScan(ctx, req)
	default:
		rec, err = s.minimaxScan(ctx, req.Remaining)
	}
	if err != nil {
		return Recommendation{}, err
	}
	rec.Strategy = s.strategy
	rec.Elapsed = time.Since(start)
	logging.SolverDebug("next guess: %s score=%d considered=%d elapsed=%v",
		rec.Word, rec.Score, rec.Considered, rec.Elapsed)
	return rec, nil
}

// candidate is a scored scan result; Less orders by (score, word length,
// dictionary index) so scans are deterministic for a fixed dictionary.
type candidate struct {
	index int
	score int
}

func (c candidate) less(o candidate, dict *words.Dictionary) bool {
	if c.score != o.score {
		return c.score < o.score
	}
	a, b := dict.Words[c.index], dict.Words[o.index]
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	return c.index < o.index
}

// minimaxScan scores every allowed word and keeps the minimum worst case.
func (s *Solver) minimaxScan(ctx context.Context, remaining []*words.Word) (Recommendation, error) {
	n := s.allowed.Len()
	chunks := s.workers
	if chunks > n {
		chunks = n
	}
	locals := make([]candidate, chunks)

	g, ctx := errgroup.WithContext(ctx)
	for c := 0; c < chunks; c++ {
		c := c
		g.Go(func() error {
			best := candidate{index: -1}
			scanned := 0
			for i := c; i < n; i += chunks {
				if scanned++; scanned%256 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				score := maxRemaining(s.guessRules[i], remaining)
				cand := candidate{index: i, score: score}
				if best.index < 0 || cand.less(best, s.allowed) {
					best = cand
				}
			}
			locals[c] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Recommendation{}, err
	}

	best := candidate{index: -1}
	for _, cand := range locals {
		if cand.index < 0 {
			continue
		}
		if best.index < 0 || cand.less(best, s.allowed) {
			best = cand
		}
	}
	if best.index < 0 {
		return Recommendation{}, ErrNoCandidates
	}
	return Recommendation{Word: s.allowed.Words[best.index], Score: best.score, Considered: n}, nil
}

// maxRemaining computes the worst-case candidate count after guessing a
// word with the given partition rules. Candidates answering every rule
// identically are indistinguishable to the feedback, so the partition is
// the group-by over rule-match signatures; the score is the largest
// group. A guess carries at most words.MaxGuessLength+2 rules (one per
// letter plus the two anchors), so the signature fits in 16 bits;
// config.Validate caps max_word_length accordingly.
func maxRemaining(guessRules []rules.Rule, remaining []*words.Word) int {
	groups := make(map[uint16]int, 32)
	max := 0
	for _, w := range remaining {
		var sig uint16
		for bit, r := range guessRules {
			if r.Matches(w) {
				sig |= 1 << uint(bit)
			}
		}
		groups[sig]++
		if groups[sig] > max {
			max = groups[sig]
		}
	}
	return max
}

// frequencyScan implements the letter-coverage heuristic: each untried
// letter is worth the number of remaining words containing it, and a
// guess scores the sum over its distinct untried letters.
func (s *Solver) frequencyScan(ctx context.Context, req Request) (Recommendation, error) {
	var letterScores [words.AlphabetSize]int
	for _, w := range req.Remaining {
		for c := byte('a'); c <= 'z'; c++ {
			if req.Attempted[c] {
				continue
			}
			if w.Contains(c) {
				letterScores[c-'a']++
			}
		}
	}

	best := -1
	bestScore := -1
	for i, w := range s.allowed.Words {
		if i%256 == 0 && ctx.Err() != nil {
			return Recommendation{}, ctx.Err()
		}
		score := 0
		var seen [words.AlphabetSize]bool
		for k := 0; k < w.Len(); k++ {
			c := w.Text[k]
			if seen[c-'a'] {
				continue
			}
			seen[c-'a'] = true
			score += letterScores[c-'a']
		}
		if score > bestScore || (score == bestScore && best >= 0 && w.Len() < s.allowed.Words[best].Len()) {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Recommendation{}, ErrNoCandidates
	}
	return Recommendation{Word: s.allowed.Words[best], Score: bestScore, Considered: s.allowed.Len()}, nil
}
