package game

import (
	"testing"
	"time"

	"github.com/dounan/diffle-solver/internal/feedback"
	"github.com/dounan/diffle-solver/internal/words"
)

func dicts(t *testing.T, allowed, answers []string) (*words.Dictionary, *words.Dictionary) {
	t.Helper()
	a, err := words.NewDictionary("allowed", "", allowed)
	if err != nil {
		t.Fatal(err)
	}
	n, err := words.NewDictionary("answers", "", answers)
	if err != nil {
		t.Fatal(err)
	}
	return a, n
}

func result(t *testing.T, guess, code string) feedback.Result {
	t.Helper()
	res, err := feedback.ParseShorthand(guess, code)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestNewSession(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"crane", "crate", "trace", "audio"},
		[]string{"crane", "crate", "trace"})
	s := NewSession(allowed, answers)

	if s.ID == "" {
		t.Error("session needs an ID")
	}
	if len(s.Remaining) != 3 {
		t.Errorf("Remaining = %d, want all 3 answers", len(s.Remaining))
	}
	if s.Solved {
		t.Error("fresh session cannot be solved")
	}
}

func TestApplyFiltersMonotonically(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"crane", "crate", "trace", "audio"},
		[]string{"crane", "crate", "trace"})
	s := NewSession(allowed, answers)

	// a present out of order, u/d/i/o absent keeps all three answers.
	if err := s.Apply(result(t, "audio", "?xxxx")); err != nil {
		t.Fatal(err)
	}
	if len(s.Remaining) != 3 {
		t.Fatalf("Remaining = %d, want 3", len(s.Remaining))
	}

	// The absent t narrows to crane.
	if err := s.Apply(result(t, "trace", "xht?h$")); err != nil {
		t.Fatal(err)
	}
	if len(s.Remaining) != 1 || s.Remaining[0].Text != "crane" {
		t.Fatalf("Remaining = %v, want [crane]", s.Remaining)
	}

	if len(s.Turns) != 2 {
		t.Errorf("Turns = %d, want 2", len(s.Turns))
	}
	if got := s.LettersUsed(); got != 10 {
		t.Errorf("LettersUsed = %d, want 10", got)
	}
	for _, c := range []byte("audiotrce") {
		if !s.Attempted[c] {
			t.Errorf("letter %c should be marked attempted", c)
		}
	}
}

func TestApplyContradictionLeavesStateUnchanged(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"crane", "crate"},
		[]string{"crane", "crate"})
	s := NewSession(allowed, answers)

	// Claiming z is in the word contradicts every answer.
	err := s.Apply(result(t, "zzz", "?xx"))
	if err != ErrContradiction {
		t.Fatalf("err = %v, want ErrContradiction", err)
	}
	if len(s.Remaining) != 2 {
		t.Errorf("Remaining = %d, contradiction must not filter", len(s.Remaining))
	}
	if len(s.Turns) != 0 {
		t.Errorf("Turns = %d, contradiction must not record a turn", len(s.Turns))
	}
	if s.Attempted['z'] {
		t.Error("contradiction must not mark letters attempted")
	}
}

func TestApplySolved(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"dog", "cat"},
		[]string{"dog", "cat"})
	s := NewSession(allowed, answers)

	if err := s.Apply(result(t, "dog", "h^tt$")); err != nil {
		t.Fatal(err)
	}
	if !s.Solved {
		t.Fatal("session should be solved")
	}
	if err := s.Apply(result(t, "cat", "xxx")); err == nil {
		t.Error("applying to a solved session should fail")
	}
}

func TestKnowledge(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"crane", "crate", "trace", "carte"},
		[]string{"crane", "crate", "trace", "carte"})
	s := NewSession(allowed, answers)

	// Feedback for crate with crane hidden: c-r-a in place, t absent,
	// e anchored at the end.
	if err := s.Apply(result(t, "crate", "h^ttxh$")); err != nil {
		t.Fatal(err)
	}

	k := s.Knowledge()
	if k.StartLetter != 'c' {
		t.Errorf("StartLetter = %c, want c", k.StartLetter)
	}
	if k.EndLetter != 'e' {
		t.Errorf("EndLetter = %c, want e", k.EndLetter)
	}
	if b := k.Letters['c']; b.Min != 1 {
		t.Errorf("c bound = %+v, want min 1", b)
	}
	if b := k.Letters['t']; !b.Exact || b.Min != 0 {
		t.Errorf("t bound = %+v, want exactly 0", b)
	}
	foundRun := false
	for _, run := range k.Runs {
		if run == "cra" {
			foundRun = true
		}
	}
	if !foundRun {
		t.Errorf("Runs = %v, want to include cra", k.Runs)
	}
	if k.Remaining != len(s.Remaining) {
		t.Errorf("Remaining = %d, want %d", k.Remaining, len(s.Remaining))
	}
}

func TestRemainingLetterCounts(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"cat", "cot", "dog"},
		[]string{"cat", "cot", "dog"})
	s := NewSession(allowed, answers)

	counts := s.RemainingLetterCounts()
	if counts['c'] != 2 {
		t.Errorf("c count = %d, want 2", counts['c'])
	}
	if counts['o'] != 2 {
		t.Errorf("o count = %d, want 2", counts['o'])
	}

	// c at the start, a present, t absent satisfies no word in the
	// list, so the session rejects it.
	if err := s.Apply(result(t, "cat", "h^?x")); err == nil {
		t.Fatal("expected contradiction")
	}
}

func TestAttemptedLettersIsACopy(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"crane", "crate", "trace", "audio"},
		[]string{"crane", "crate", "trace"})
	s := NewSession(allowed, answers)

	if err := s.Apply(result(t, "audio", "?xxxx")); err != nil {
		t.Fatal(err)
	}

	snapshot := s.AttemptedLetters()
	if !snapshot['a'] || !snapshot['u'] {
		t.Fatalf("snapshot = %v, want audio's letters", snapshot)
	}

	if err := s.Apply(result(t, "trace", "xht?h$")); err != nil {
		t.Fatal(err)
	}
	if snapshot['t'] {
		t.Error("later turns must not leak into an earlier snapshot")
	}
}

func TestResumeReplaysTurns(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"crane", "crate", "trace", "audio"},
		[]string{"crane", "crate", "trace"})

	orig := NewSession(allowed, answers)
	if err := orig.Apply(result(t, "audio", "?xxxx")); err != nil {
		t.Fatal(err)
	}
	if err := orig.Apply(result(t, "trace", "xht?h$")); err != nil {
		t.Fatal(err)
	}

	var results []feedback.Result
	for _, turn := range orig.Turns {
		results = append(results, turn.Result)
	}
	resumed, err := Resume(allowed, answers, orig.ID, orig.CreatedAt, results)
	if err != nil {
		t.Fatal(err)
	}

	if resumed.ID != orig.ID {
		t.Errorf("ID = %q, want %q", resumed.ID, orig.ID)
	}
	if len(resumed.Turns) != len(orig.Turns) {
		t.Fatalf("turns = %d, want %d", len(resumed.Turns), len(orig.Turns))
	}
	if len(resumed.Remaining) != len(orig.Remaining) {
		t.Fatalf("remaining = %d, want %d", len(resumed.Remaining), len(orig.Remaining))
	}
	for i := range resumed.Remaining {
		if resumed.Remaining[i].Text != orig.Remaining[i].Text {
			t.Errorf("remaining[%d] = %q, want %q", i, resumed.Remaining[i].Text, orig.Remaining[i].Text)
		}
	}
	if !resumed.Attempted['t'] || !resumed.Attempted['a'] {
		t.Error("attempted letters lost in replay")
	}
}

func TestResumeRejectsContradictoryHistory(t *testing.T) {
	allowed, answers := dicts(t,
		[]string{"crane", "zzz"},
		[]string{"crane"})

	// A stored turn claiming z is present contradicts every answer.
	if _, err := Resume(allowed, answers, "sess", time.Now(), []feedback.Result{
		result(t, "zzz", "?xx"),
	}); err == nil {
		t.Fatal("expected replay error")
	}
}
