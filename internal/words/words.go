// Package words provides the Word type and dictionary loading for the
// diffle solver. Dictionaries are flat CSV lists (a single record holding
// every word), matching the allowed.csv / answers.csv format the game
// publishes.
package words

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// MaxGuessLength is the longest word the game accepts as a guess.
const MaxGuessLength = 10

// AlphabetSize covers lower-case ASCII letters, the only alphabet the
// game uses.
const AlphabetSize = 26

// Word is a dictionary word with precomputed per-letter occurrence counts.
// The counts are consulted millions of times in the scorer hot loop, so
// they live in a fixed array rather than a map.
type Word struct {
	Text   string
	counts [AlphabetSize]uint8
}

// New validates and builds a Word. Words must be non-empty lower-case
// ASCII; anything else is rejected rather than silently normalized away.
func New(text string) (*Word, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, fmt.Errorf("empty word")
	}
	w := &Word{Text: text}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < 'a' || c > 'z' {
			return nil, fmt.Errorf("word %q: invalid letter %q", text, c)
		}
		w.counts[c-'a']++
	}
	return w, nil
}

// Count returns how many times letter c occurs in the word.
func (w *Word) Count(c byte) int {
	if c < 'a' || c > 'z' {
		return 0
	}
	return int(w.counts[c-'a'])
}

// Contains reports whether the word contains letter c at all.
func (w *Word) Contains(c byte) bool { return w.Count(c) > 0 }

// Len returns the word length in letters.
func (w *Word) Len() int { return len(w.Text) }

// First returns the first letter.
func (w *Word) First() byte { return w.Text[0] }

// Last returns the last letter.
func (w *Word) Last() byte { return w.Text[len(w.Text)-1] }

func (w *Word) String() string { return w.Text }

// LoadCSV reads a word list from a CSV file. The game's lists put every
// word into the first record, so only that record is used.
func LoadCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	record, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read word list %s: %w", path, err)
	}
	return record, nil
}

// Clean drops words the game would reject as guesses. The game only
// allows guesses up to MaxGuessLength letters.
func Clean(raw []string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = MaxGuessLength
	}
	out := make([]string, 0, len(raw))
	for _, word := range raw {
		if len(word) > 0 && len(word) <= maxLen {
			out = append(out, word)
		}
	}
	return out
}

// Dictionary is a named, fingerprinted word list.
type Dictionary struct {
	Name  string
	Path  string
	Words []*Word

	fingerprint string
}

// NewDictionary builds a dictionary from raw strings. Invalid words are
// reported, not skipped: a corrupt list should fail loudly at load time.
func NewDictionary(name, path string, raw []string) (*Dictionary, error) {
	d := &Dictionary{Name: name, Path: path, Words: make([]*Word, 0, len(raw))}
	for _, text := range raw {
		w, err := New(text)
		if err != nil {
			return nil, fmt.Errorf("dictionary %s: %w", name, err)
		}
		d.Words = append(d.Words, w)
	}
	return d, nil
}

// LoadDictionary reads, cleans, and validates a word list file in one step.
// Cleaning only applies when maxLen > 0; answer lists are trusted as valid
// and loaded with maxLen = 0.
func LoadDictionary(name, path string, maxLen int) (*Dictionary, error) {
	raw, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}
	if maxLen > 0 {
		raw = Clean(raw, maxLen)
	}
	return NewDictionary(name, path, raw)
}

// Fingerprint returns a stable sha256 hex digest of the word list,
// used to key cached solver results.
func (d *Dictionary) Fingerprint() string {
	if d.fingerprint == "" {
		h := sha256.New()
		for _, w := range d.Words {
			h.Write([]byte(w.Text))
			h.Write([]byte{'\n'})
		}
		d.fingerprint = hex.EncodeToString(h.Sum(nil))
	}
	return d.fingerprint
}

// Len returns the number of words.
func (d *Dictionary) Len() int { return len(d.Words) }

// Lookup finds a word by text, or nil.
func (d *Dictionary) Lookup(text string) *Word {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, w := range d.Words {
		if w.Text == text {
			return w
		}
	}
	return nil
}
