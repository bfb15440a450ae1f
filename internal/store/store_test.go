package store

import (
	"path/filepath"
	"testing"

	"github.com/dounan/diffle-solver/internal/words"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "diffle.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDict(t *testing.T, name string, texts ...string) *words.Dictionary {
	t.Helper()
	d, err := words.NewDictionary(name, name+".csv", texts)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"dictionaries", "dictionary_words", "sessions", "session_turns", "opening_guesses"} {
		if _, ok := stats[table]; !ok {
			t.Errorf("Stats missing table %q", table)
		}
	}
}

func TestImportAndLoadDictionary(t *testing.T) {
	s := openTestStore(t)
	d := testDict(t, "answers", "crane", "crate", "trace")

	if err := s.ImportDictionary(d); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadDictionary("answers")
	if err != nil {
		t.Fatal(err)
	}
	var texts []string
	for _, w := range got.Words {
		texts = append(texts, w.Text)
	}
	// Word order must survive the round trip: the fingerprint depends on it.
	if diff := cmp.Diff([]string{"crane", "crate", "trace"}, texts); diff != "" {
		t.Errorf("word order mismatch (-want +got):\n%s", diff)
	}
	if got.Fingerprint() != d.Fingerprint() {
		t.Error("fingerprint changed across the round trip")
	}
}

func TestImportDictionaryReplaces(t *testing.T) {
	s := openTestStore(t)

	if err := s.ImportDictionary(testDict(t, "allowed", "one", "two", "three")); err != nil {
		t.Fatal(err)
	}
	if err := s.ImportDictionary(testDict(t, "allowed", "four")); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadDictionary("allowed")
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 1 || got.Words[0].Text != "four" {
		t.Errorf("reimport kept stale words: %v", got.Words)
	}

	infos, err := s.ListDictionaries()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("ListDictionaries = %d entries, want 1", len(infos))
	}
	if infos[0].WordCount != 1 {
		t.Errorf("WordCount = %d, want 1", infos[0].WordCount)
	}
}

func TestLoadDictionaryMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.LoadDictionary("nope"); err == nil {
		t.Fatal("expected error for unknown dictionary")
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateSession("sess-1", "fp-a", "fp-b"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordTurn("sess-1", 1, "crane", "h^txx?", 42); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordTurn("sess-1", 2, "moist", "xxxxx", 7); err != nil {
		t.Fatal(err)
	}
	// Re-recording a turn is a no-op, not an error.
	if err := s.RecordTurn("sess-1", 2, "moist", "xxxxx", 7); err != nil {
		t.Fatal(err)
	}
	if err := s.FinishSession("sess-1"); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.ListSessions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("ListSessions = %d, want 1", len(sessions))
	}
	got := sessions[0]
	if got.ID != "sess-1" {
		t.Errorf("ID = %q", got.ID)
	}
	if !got.Solved {
		t.Error("session should be solved")
	}
	if got.Turns != 2 {
		t.Errorf("Turns = %d, want 2", got.Turns)
	}
}

func TestListSessionsLimit(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.CreateSession(id, "fp", "fp"); err != nil {
			t.Fatal(err)
		}
	}
	sessions, err := s.ListSessions(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Errorf("ListSessions = %d, want 2", len(sessions))
	}
}

func TestOpeningGuessCache(t *testing.T) {
	s := openTestStore(t)

	_, _, ok, err := s.OpeningGuess("fp-a", "fp-b", "minimax")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("cache should start empty")
	}

	if err := s.SaveOpeningGuess("fp-a", "fp-b", "minimax", "tares", 120); err != nil {
		t.Fatal(err)
	}
	guess, score, ok, err := s.OpeningGuess("fp-a", "fp-b", "minimax")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || guess != "tares" || score != 120 {
		t.Errorf("cache hit = (%q, %d, %v), want (tares, 120, true)", guess, score, ok)
	}

	// A different strategy is a different cache key.
	if _, _, ok, _ := s.OpeningGuess("fp-a", "fp-b", "frequency"); ok {
		t.Error("frequency strategy should miss the minimax entry")
	}

	// Overwriting updates in place.
	if err := s.SaveOpeningGuess("fp-a", "fp-b", "minimax", "raise", 99); err != nil {
		t.Fatal(err)
	}
	guess, score, _, err = s.OpeningGuess("fp-a", "fp-b", "minimax")
	if err != nil {
		t.Fatal(err)
	}
	if guess != "raise" || score != 99 {
		t.Errorf("after overwrite = (%q, %d), want (raise, 99)", guess, score)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diffle.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ImportDictionary(testDict(t, "answers", "crane")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen runs schema setup and migrations again; both must be
	// idempotent and preserve the imported words.
	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	d, err := s.LoadDictionary("answers")
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Errorf("Len = %d after reopen, want 1", d.Len())
	}
}

func TestFindSession(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"aaaa-1111", "aaaa-2222", "bbbb-3333"} {
		if err := s.CreateSession(id, "fp", "fp"); err != nil {
			t.Fatal(err)
		}
	}

	info, err := s.FindSession("bbbb-3333")
	if err != nil {
		t.Fatal(err)
	}
	if info.ID != "bbbb-3333" {
		t.Errorf("ID = %q", info.ID)
	}

	info, err = s.FindSession("bbbb")
	if err != nil {
		t.Fatalf("unique prefix should resolve: %v", err)
	}
	if info.ID != "bbbb-3333" {
		t.Errorf("prefix match ID = %q", info.ID)
	}

	if _, err := s.FindSession("aaaa"); err == nil {
		t.Error("ambiguous prefix must error")
	}
	if _, err := s.FindSession("zzzz"); err == nil {
		t.Error("unknown id must error")
	}
}

func TestSessionTurnsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateSession("sess-r", "fp-a", "fp-b"); err != nil {
		t.Fatal(err)
	}
	// Recorded out of order; reads come back in play order.
	if err := s.RecordTurn("sess-r", 2, "moist", "xxxxx", 7); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordTurn("sess-r", 1, "crane", "h^txx?", 42); err != nil {
		t.Fatal(err)
	}

	turns, err := s.SessionTurns("sess-r")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	want := []TurnRecord{
		{Turn: 1, Guess: "crane", Marks: "h^txx?", Remaining: 42},
		{Turn: 2, Guess: "moist", Marks: "xxxxx", Remaining: 7},
	}
	for i, rec := range turns {
		if rec != want[i] {
			t.Errorf("turns[%d] = %+v, want %+v", i, rec, want[i])
		}
	}

	turns, err = s.SessionTurns("no-such-session")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("unknown session should have no turns, got %d", len(turns))
	}
}
