// Package game tracks the state of one solving session: the guesses
// made, the feedback received, and the candidate words still alive.
package game

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dounan/diffle-solver/internal/feedback"
	"github.com/dounan/diffle-solver/internal/logging"
	"github.com/dounan/diffle-solver/internal/rules"
	"github.com/dounan/diffle-solver/internal/words"

	"github.com/google/uuid"
)

// ErrContradiction is returned when feedback filters out every candidate.
// The session state is left unchanged so the turn can be re-entered.
var ErrContradiction = errors.New("feedback contradicts the remaining candidates")

// Turn is one guess with its feedback.
type Turn struct {
	Guess          string
	Result         feedback.Result
	RemainingAfter int
}

// Session is a single game being solved.
type Session struct {
	ID        string
	CreatedAt time.Time

	Allowed *words.Dictionary
	Answers *words.Dictionary

	Remaining []*words.Word
	Turns     []Turn
	Attempted map[byte]bool
	Solved    bool

	ruleSet rules.Set
}

// NewSession starts a session with the full answer list as candidates.
func NewSession(allowed, answers *words.Dictionary) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Allowed:   allowed,
		Answers:   answers,
		Remaining: append([]*words.Word(nil), answers.Words...),
		Attempted: make(map[byte]bool),
	}
	logging.Game("session %s: %d candidates, %d allowed guesses", s.ID, len(s.Remaining), allowed.Len())
	return s
}

// Resume rebuilds a session from its stored turns by replaying each
// result through Apply. The stored guess and marks carry the full
// feedback, so the rebuilt session reaches the same remaining set and
// knowledge the original had.
func Resume(allowed, answers *words.Dictionary, id string, createdAt time.Time, results []feedback.Result) (*Session, error) {
	s := &Session{
		ID:        id,
		CreatedAt: createdAt,
		Allowed:   allowed,
		Answers:   answers,
		Remaining: append([]*words.Word(nil), answers.Words...),
		Attempted: make(map[byte]bool),
	}
	for _, r := range results {
		if err := s.Apply(r); err != nil {
			return nil, fmt.Errorf("replay turn %q: %w", r.Guess, err)
		}
	}
	logging.Game("session %s: resumed at turn %d, %d remaining", s.ID, len(s.Turns), len(s.Remaining))
	return s, nil
}

// Apply records a turn: derives rules from the feedback and filters the
// remaining candidates. Filtering is monotonic; a result that would
// empty the candidate list is rejected with ErrContradiction.
func (s *Session) Apply(result feedback.Result) error {
	if s.Solved {
		return fmt.Errorf("session %s already solved", s.ID)
	}
	derived := result.Rules()
	filtered := derived.Filter(s.Remaining)
	if len(filtered) == 0 {
		logging.Game("session %s: contradiction on guess %q (%s)", s.ID, result.Guess, result.Shorthand())
		return ErrContradiction
	}

	s.Remaining = filtered
	s.ruleSet = append(s.ruleSet, derived...)
	for i := 0; i < len(result.Guess); i++ {
		s.Attempted[result.Guess[i]] = true
	}
	s.Turns = append(s.Turns, Turn{Guess: result.Guess, Result: result, RemainingAfter: len(filtered)})
	if result.Solved() {
		s.Solved = true
	}

	logging.Game("session %s: turn %d guess=%q marks=%s remaining=%d",
		s.ID, len(s.Turns), result.Guess, result.Shorthand(), len(filtered))
	return nil
}

// AttemptedLetters returns a copy of the attempted-letter set, safe to
// hand to a goroutine while the session keeps taking turns.
func (s *Session) AttemptedLetters() map[byte]bool {
	attempted := make(map[byte]bool, len(s.Attempted))
	for c := range s.Attempted {
		attempted[c] = true
	}
	return attempted
}

// LettersUsed returns the total letters spent so far, the game's real
// cost metric.
func (s *Session) LettersUsed() int {
	total := 0
	for _, t := range s.Turns {
		total += len(t.Guess)
	}
	return total
}

// Rules returns the accumulated constraint set.
func (s *Session) Rules() rules.Set {
	return s.ruleSet
}

// LetterBound is what is known about one letter's occurrence count.
type LetterBound struct {
	Min   int
	Exact bool
}

// Knowledge summarizes what the session has learned about the hidden
// word, for display.
type Knowledge struct {
	Letters     map[byte]LetterBound
	StartLetter byte // 0 if unknown
	EndLetter   byte // 0 if unknown
	Runs        []string
	Remaining   int
}

// Knowledge folds the accumulated rules into per-letter bounds, anchors,
// and known letter runs.
func (s *Session) Knowledge() Knowledge {
	k := Knowledge{Letters: make(map[byte]LetterBound), Remaining: len(s.Remaining)}
	seenRuns := make(map[string]bool)
	for _, r := range s.ruleSet {
		switch r := r.(type) {
		case rules.Occurrence:
			b := k.Letters[r.Letter]
			if r.Exact {
				b.Exact = true
				b.Min = r.Count
			} else if !b.Exact && r.Count > b.Min {
				b.Min = r.Count
			}
			k.Letters[r.Letter] = b
		case rules.StartsWith:
			k.StartLetter = r.Letter
		case rules.EndsWith:
			k.EndLetter = r.Letter
		case rules.Sequence:
			for _, run := range r.Runs {
				if len(run) > 1 && !seenRuns[run] {
					seenRuns[run] = true
					k.Runs = append(k.Runs, run)
				}
			}
		}
	}
	sort.Slice(k.Runs, func(i, j int) bool {
		if len(k.Runs[i]) != len(k.Runs[j]) {
			return len(k.Runs[i]) > len(k.Runs[j])
		}
		return k.Runs[i] < k.Runs[j]
	})
	return k
}

// RemainingLetterCounts maps each unattempted letter to the number of
// remaining words containing it.
func (s *Session) RemainingLetterCounts() map[byte]int {
	counts := make(map[byte]int)
	for c := byte('a'); c <= 'z'; c++ {
		if s.Attempted[c] {
			continue
		}
		for _, w := range s.Remaining {
			if w.Contains(c) {
				counts[c]++
			}
		}
	}
	return counts
}
