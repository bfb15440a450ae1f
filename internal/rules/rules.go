// Package rules defines the constraint predicates the solver derives from
// guess feedback and uses to partition candidate words.
package rules

import (
	"fmt"
	"strings"

	"github.com/dounan/diffle-solver/internal/words"
)

// Rule is a predicate over dictionary words. Rules are pure and safe for
// concurrent use.
type Rule interface {
	Matches(w *words.Word) bool
	String() string
}

// Occurrence constrains how many times a letter occurs in the hidden word.
// Exact=false means the word can have more occurrences of the letter.
type Occurrence struct {
	Letter byte
	Count  int
	Exact  bool
}

// Matches reports whether w satisfies the occurrence bound.
func (r Occurrence) Matches(w *words.Word) bool {
	actual := w.Count(r.Letter)
	if r.Exact {
		return actual == r.Count
	}
	return actual >= r.Count
}

func (r Occurrence) String() string {
	op := ">="
	if r.Exact {
		op = "=="
	}
	return fmt.Sprintf("occ(%c %s %d)", r.Letter, op, r.Count)
}

// StartsWith constrains the first letter of the hidden word.
type StartsWith struct {
	Letter byte
}

// Matches reports whether w begins with the letter.
func (r StartsWith) Matches(w *words.Word) bool { return w.First() == r.Letter }

func (r StartsWith) String() string { return fmt.Sprintf("start(%c)", r.Letter) }

// EndsWith constrains the last letter of the hidden word.
type EndsWith struct {
	Letter byte
}

// Matches reports whether w ends with the letter.
func (r EndsWith) Matches(w *words.Word) bool { return w.Last() == r.Letter }

func (r EndsWith) String() string { return fmt.Sprintf("end(%c)", r.Letter) }

// Sequence constrains the hidden word to contain the given letter runs in
// order as disjoint substrings. AnchorStart pins the first run to the
// beginning of the word, AnchorEnd pins the last run to the end.
type Sequence struct {
	Runs        []string
	AnchorStart bool
	AnchorEnd   bool
}

// Matches reports whether w contains every run, in order, without overlap.
// Greedy left-most placement is optimal for ordered disjoint substrings,
// so no backtracking is needed.
func (r Sequence) Matches(w *words.Word) bool {
	text := w.Text
	runs := r.Runs
	if len(runs) == 0 {
		return true
	}

	pos := 0
	if r.AnchorStart {
		if !strings.HasPrefix(text, runs[0]) {
			return false
		}
		pos = len(runs[0])
		runs = runs[1:]
	}

	var tail string
	if r.AnchorEnd {
		if len(runs) == 0 {
			// Single run anchored on both sides: the word is fully known.
			return pos == len(text)
		}
		tail = runs[len(runs)-1]
		runs = runs[:len(runs)-1]
	}

	for _, run := range runs {
		idx := strings.Index(text[pos:], run)
		if idx < 0 {
			return false
		}
		pos += idx + len(run)
	}

	if r.AnchorEnd {
		return strings.HasSuffix(text, tail) && len(text)-len(tail) >= pos
	}
	return true
}

func (r Sequence) String() string {
	var sb strings.Builder
	sb.WriteString("seq(")
	if r.AnchorStart {
		sb.WriteByte('^')
	}
	sb.WriteString(strings.Join(r.Runs, "*"))
	if r.AnchorEnd {
		sb.WriteByte('$')
	}
	sb.WriteByte(')')
	return sb.String()
}

// Set is a conjunction of rules.
type Set []Rule

// Matches reports whether w satisfies every rule.
func (s Set) Matches(w *words.Word) bool {
	for _, r := range s {
		if !r.Matches(w) {
			return false
		}
	}
	return true
}

// Filter returns the words satisfying every rule.
func (s Set) Filter(ws []*words.Word) []*words.Word {
	out := make([]*words.Word, 0, len(ws))
	for _, w := range ws {
		if s.Matches(w) {
			out = append(out, w)
		}
	}
	return out
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = r.String()
	}
	return strings.Join(parts, " & ")
}

// ForGuess builds the partition rules a guess can answer: one at-least
// occurrence rule per letter occurrence prefix, plus the starts-with and
// ends-with anchors. These are the questions the game's feedback resolves
// for the guess, and the scorer partitions candidates by them.
func ForGuess(w *words.Word) []Rule {
	out := make([]Rule, 0, w.Len()+2)
	var seen [words.AlphabetSize]uint8
	for i := 0; i < w.Len(); i++ {
		c := w.Text[i]
		seen[c-'a']++
		out = append(out, Occurrence{Letter: c, Count: int(seen[c-'a']), Exact: false})
	}
	out = append(out, StartsWith{Letter: w.First()}, EndsWith{Letter: w.Last()})
	return out
}
