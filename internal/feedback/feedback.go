// Package feedback models the per-letter marks the game returns for a
// guess and turns them into solver rules. Marks arrive either as pasted
// board HTML or as a keyboard shorthand.
package feedback

import (
	"fmt"
	"strings"

	"github.com/dounan/diffle-solver/internal/logging"
	"github.com/dounan/diffle-solver/internal/rules"
)

// Mark is the feedback for a single guess letter. A letter carries one of
// Absent/Head/Tail/Misplaced plus optionally Start and End.
type Mark struct {
	Letter    byte
	Absent    bool // occurrence not in the hidden word
	Head      bool // present, starts a new in-order sequence
	Tail      bool // present, directly continues the previous letter
	Misplaced bool // present, but out of order relative to its neighbors
	Start     bool // first letter of the hidden word
	End       bool // last letter of the hidden word
}

// Present reports whether the letter occurrence is in the hidden word.
func (m Mark) Present() bool { return !m.Absent }

// Result is the full feedback for one guess.
type Result struct {
	Guess string
	Marks []Mark
}

// Solved reports whether the feedback spells out the hidden word: every
// letter present, connected into one run, anchored at both ends.
func (r Result) Solved() bool {
	if len(r.Marks) == 0 {
		return false
	}
	for i, m := range r.Marks {
		if m.Absent {
			return false
		}
		if i > 0 && !m.Tail {
			return false
		}
	}
	return r.Marks[0].Start && r.Marks[len(r.Marks)-1].End
}

// Shorthand renders the marks as the keyboard shorthand, the inverse of
// ParseShorthand. Used for logs and store persistence.
func (r Result) Shorthand() string {
	var sb strings.Builder
	for _, m := range r.Marks {
		switch {
		case m.Absent:
			sb.WriteByte('x')
		case m.Misplaced:
			sb.WriteByte('?')
		case m.Tail:
			sb.WriteByte('t')
		default:
			sb.WriteByte('h')
		}
		if m.Start {
			sb.WriteByte('^')
		}
		if m.End {
			sb.WriteByte('$')
		}
	}
	return sb.String()
}

// ParseShorthand parses keyboard feedback entry: one symbol per guess
// letter, x=absent, h=head, t=tail, ?=present but out of order, with an
// optional ^ or $ after a symbol marking the word start or end.
func ParseShorthand(guess, code string) (Result, error) {
	guess = strings.ToLower(strings.TrimSpace(guess))
	code = strings.ToLower(strings.TrimSpace(code))

	marks := make([]Mark, 0, len(guess))
	pos := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch c {
		case 'x', 'h', 't', '?':
			if pos >= len(guess) {
				return Result{}, fmt.Errorf("feedback %q has more symbols than guess %q has letters", code, guess)
			}
			m := Mark{Letter: guess[pos]}
			switch c {
			case 'x':
				m.Absent = true
			case 'h':
				m.Head = true
			case '?':
				m.Misplaced = true
			case 't':
				if pos == 0 {
					return Result{}, fmt.Errorf("feedback %q: first letter cannot be a continuation", code)
				}
				m.Tail = true
			}
			marks = append(marks, m)
			pos++
		case '^':
			if pos == 0 {
				return Result{}, fmt.Errorf("feedback %q: ^ must follow a symbol", code)
			}
			if marks[pos-1].Absent {
				return Result{}, fmt.Errorf("feedback %q: ^ cannot mark an absent letter", code)
			}
			marks[pos-1].Start = true
		case '$':
			if pos == 0 {
				return Result{}, fmt.Errorf("feedback %q: $ must follow a symbol", code)
			}
			if marks[pos-1].Absent {
				return Result{}, fmt.Errorf("feedback %q: $ cannot mark an absent letter", code)
			}
			marks[pos-1].End = true
		default:
			return Result{}, fmt.Errorf("feedback %q: unknown symbol %q", code, c)
		}
	}
	if pos != len(guess) {
		return Result{}, fmt.Errorf("feedback %q covers %d of %d letters in guess %q", code, pos, len(guess), guess)
	}

	res := Result{Guess: guess, Marks: marks}
	logging.FeedbackDebug("parsed shorthand %q for %q: %s", code, guess, res.Shorthand())
	return res, nil
}

// Rules derives the constraint set this feedback imposes on the hidden
// word, replacing positional regex filtering with explicit rules:
//   - per letter, the number of present occurrences is a lower bound;
//     an absent occurrence makes the bound exact
//   - a start/end mark anchors the first/last letter
//   - head/tail runs must appear in the hidden word in order as
//     disjoint substrings
func (r Result) Rules() rules.Set {
	var set rules.Set

	// Occurrence bounds, per distinct letter in guess order.
	type occ struct {
		present int
		absent  bool
	}
	counts := make(map[byte]*occ)
	order := make([]byte, 0, len(r.Marks))
	for _, m := range r.Marks {
		o, ok := counts[m.Letter]
		if !ok {
			o = &occ{}
			counts[m.Letter] = o
			order = append(order, m.Letter)
		}
		if m.Absent {
			o.absent = true
		} else {
			o.present++
		}
	}
	for _, letter := range order {
		o := counts[letter]
		set = append(set, rules.Occurrence{Letter: letter, Count: o.present, Exact: o.absent})
	}

	// Anchors.
	for _, m := range r.Marks {
		if m.Start {
			set = append(set, rules.StartsWith{Letter: m.Letter})
		}
		if m.End {
			set = append(set, rules.EndsWith{Letter: m.Letter})
		}
	}

	// Ordered sequence runs.
	var runs []string
	var current strings.Builder
	anchorStart := false
	endRun := -1 // index of the run whose last letter carries the End mark
	flush := func() {
		if current.Len() > 0 {
			runs = append(runs, current.String())
			current.Reset()
		}
	}
	for i, m := range r.Marks {
		if m.Absent || m.Misplaced {
			// Misplaced letters count toward occurrence bounds but make
			// no ordering claim, so they cannot extend a run.
			flush()
			continue
		}
		if !m.Tail || i == 0 || r.Marks[i-1].Absent || r.Marks[i-1].Misplaced {
			flush()
		}
		if current.Len() == 0 && m.Start && len(runs) == 0 {
			anchorStart = true
		}
		current.WriteByte(m.Letter)
		if m.End {
			endRun = len(runs) // about to be flushed into this slot
			flush()
		}
	}
	flush()
	// The end anchor only pins the sequence when the End letter closes the
	// final run; anything after it is ordering noise the anchor rules
	// above already capture.
	anchorEnd := endRun >= 0 && endRun == len(runs)-1
	if len(runs) > 1 || anchorStart || anchorEnd || (len(runs) == 1 && len(runs[0]) > 1) {
		set = append(set, rules.Sequence{Runs: runs, AnchorStart: anchorStart, AnchorEnd: anchorEnd})
	}

	logging.FeedbackDebug("derived rules for %q: %s", r.Guess, set.String())
	return set
}
