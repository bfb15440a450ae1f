package main

import (
	"os"
	"path/filepath"
	"testing"
)

// writeCSV writes a single-record word list the way the dictionaries
// ship: every word on one CSV line.
func writeCSV(t *testing.T, path string, words ...string) {
	t.Helper()
	line := ""
	for i, w := range words {
		if i > 0 {
			line += ","
		}
		line += w
	}
	if err := os.WriteFile(path, []byte(line+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadEnvironmentKeepsLongAnswers(t *testing.T) {
	home := t.TempDir()
	homeDir = home
	t.Cleanup(func() { homeDir = "" })

	// The guess list is cleaned of over-length words; the answer list is
	// trusted, so an eleven-letter answer must survive loading.
	writeCSV(t, filepath.Join(home, "allowed.csv"), "crane", "slate", "overstretch")
	writeCSV(t, filepath.Join(home, "answers.csv"), "crane", "overstretch")

	env, err := loadEnvironment()
	if err != nil {
		t.Fatal(err)
	}
	defer env.close()

	if env.allowed.Len() != 2 {
		t.Errorf("allowed.Len() = %d, want 2 (over-length guess dropped)", env.allowed.Len())
	}
	if env.answers.Lookup("overstretch") == nil {
		t.Error("long answer was dropped; answer lists load uncleaned")
	}
	if env.answers.Len() != 2 {
		t.Errorf("answers.Len() = %d, want 2", env.answers.Len())
	}
}
