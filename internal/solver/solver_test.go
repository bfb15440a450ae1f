package solver

import (
	"context"
	"testing"

	"github.com/dounan/diffle-solver/internal/feedback"
	"github.com/dounan/diffle-solver/internal/words"
)

func dict(t *testing.T, texts ...string) *words.Dictionary {
	t.Helper()
	d, err := words.NewDictionary("test", "", texts)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestNextGuessNoCandidates(t *testing.T) {
	s := New(dict(t, "cat", "dog"), Options{Seed: 1})
	_, err := s.NextGuess(context.Background(), Request{})
	if err != ErrNoCandidates {
		t.Fatalf("err = %v, want ErrNoCandidates", err)
	}
}

func TestNextGuessSingleCandidate(t *testing.T) {
	d := dict(t, "cat", "dog")
	s := New(d, Options{Seed: 1})

	rec, err := s.NextGuess(context.Background(), Request{Remaining: d.Words[1:2]})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Word.Text != "dog" {
		t.Errorf("Word = %s, want dog", rec.Word)
	}
	if rec.Score != 1 {
		t.Errorf("Score = %d, want 1", rec.Score)
	}
}

func TestNextGuessTwoCandidatesPicksOne(t *testing.T) {
	d := dict(t, "cat", "dog", "bird")
	s := New(d, Options{Seed: 42})

	remaining := d.Words[:2]
	rec, err := s.NextGuess(context.Background(), Request{Remaining: remaining})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Word.Text != "cat" && rec.Word.Text != "dog" {
		t.Errorf("Word = %s, want one of the two candidates", rec.Word)
	}
}

func TestMinimaxPrefersDiscriminatingGuess(t *testing.T) {
	// The answer is one of sill/hill/pill. Guessing any of them leaves
	// two candidates in the worst case; "ship" asks about s, h, and p at
	// once and always narrows to exactly one.
	d := dict(t, "sill", "hill", "pill", "ship")
	s := New(d, Options{Seed: 1, Workers: 2})

	rec, err := s.NextGuess(context.Background(), Request{Remaining: d.Words[:3]})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Word.Text != "ship" {
		t.Errorf("Word = %s, want ship", rec.Word)
	}
	if rec.Score != 1 {
		t.Errorf("Score = %d, want worst case 1", rec.Score)
	}
	if rec.Considered != d.Len() {
		t.Errorf("Considered = %d, want %d", rec.Considered, d.Len())
	}
}

func TestMinimaxDeterministic(t *testing.T) {
	d := dict(t, "crane", "crate", "trace", "react", "cater")
	first := ""
	for i := 0; i < 5; i++ {
		s := New(d, Options{Seed: 7, Workers: 4})
		rec, err := s.NextGuess(context.Background(), Request{Remaining: d.Words})
		if err != nil {
			t.Fatal(err)
		}
		if first == "" {
			first = rec.Word.Text
		} else if rec.Word.Text != first {
			t.Fatalf("run %d picked %s, first run picked %s", i, rec.Word, first)
		}
	}
}

func TestMinimaxTieBreaksByLength(t *testing.T) {
	// Both ace and acef split the three candidates completely (one
	// probe letter per candidate); the shorter probe must win the tie.
	d := dict(t, "ab", "cd", "ef", "acef", "ace")
	s := New(d, Options{Seed: 1})

	rec, err := s.NextGuess(context.Background(), Request{Remaining: d.Words[:3]})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Word.Text != "ace" {
		t.Errorf("picked %s, want ace (shortest perfect splitter)", rec.Word)
	}
	if rec.Score != 1 {
		t.Errorf("Score = %d, want 1", rec.Score)
	}
}

func TestFrequencyPrefersCoverage(t *testing.T) {
	d := dict(t, "aa", "bb", "ab")
	s := New(d, Options{Strategy: StrategyFrequency, Seed: 1})

	rec, err := s.NextGuess(context.Background(), Request{
		Remaining: d.Words,
		Attempted: map[byte]bool{},
	})
	if err != nil {
		t.Fatal(err)
	}
	// a appears in 2 words, b in 2: "ab" covers both for a score of 4.
	if rec.Word.Text != "ab" {
		t.Errorf("Word = %s, want ab", rec.Word)
	}
	if rec.Score != 4 {
		t.Errorf("Score = %d, want 4", rec.Score)
	}
}

func TestFrequencySkipsAttemptedLetters(t *testing.T) {
	d := dict(t, "aa", "ab", "bc")
	s := New(d, Options{Strategy: StrategyFrequency, Seed: 1})

	rec, err := s.NextGuess(context.Background(), Request{
		Remaining: d.Words,
		Attempted: map[byte]bool{'a': true},
	})
	if err != nil {
		t.Fatal(err)
	}
	// With a spent, b (2 words) and c (1 word) carry the information.
	if rec.Word.Text != "bc" {
		t.Errorf("Word = %s, want bc", rec.Word)
	}
}

func TestNextGuessCancelled(t *testing.T) {
	texts := make([]string, 600)
	for i := range texts {
		// Distinct words so the scan has real work per entry.
		texts[i] = string([]byte{'a' + byte(i%26), 'a' + byte((i/26)%26), 'a' + byte(i%5), 'a' + byte(i%7), 'a' + byte(i%11)})
	}
	d := dict(t, texts...)
	s := New(d, Options{Seed: 1, Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.NextGuess(ctx, Request{Remaining: d.Words})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func BenchmarkMinimaxScan(b *testing.B) {
	texts := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		texts = append(texts, string([]byte{
			'a' + byte(i%26), 'a' + byte((i/26)%26), 'a' + byte(i%17), 'a' + byte(i%13), 'a' + byte(i%7),
		}))
	}
	d, err := words.NewDictionary("bench", "", texts)
	if err != nil {
		b.Fatal(err)
	}
	s := New(d, Options{Seed: 1})
	req := Request{Remaining: d.Words}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.NextGuess(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}

func TestOracleAndSolverAgree(t *testing.T) {
	// End-to-end sanity: applying oracle feedback for the recommended
	// guess always keeps the hidden word reachable.
	d := dict(t, "sill", "hill", "pill", "ship", "shop")
	s := New(d, Options{Seed: 3})
	hidden := d.Words[1] // hill

	remaining := append([]*words.Word(nil), d.Words...)
	for turn := 0; turn < 10; turn++ {
		rec, err := s.NextGuess(context.Background(), Request{Remaining: remaining})
		if err != nil {
			t.Fatal(err)
		}
		if rec.Word.Text == hidden.Text {
			return // solved
		}
		res := feedback.Score(rec.Word, hidden)
		remaining = res.Rules().Filter(remaining)
		found := false
		for _, w := range remaining {
			if w == hidden {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("turn %d: guess %s eliminated the hidden word", turn, rec.Word)
		}
	}
	t.Fatal("never solved")
}
