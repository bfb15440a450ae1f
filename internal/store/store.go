// Package store persists dictionaries, solving sessions, and cached
// opening guesses in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dounan/diffle-solver/internal/logging"
	"github.com/dounan/diffle-solver/internal/words"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database. A single connection with WAL keeps
// concurrent readers cheap and writers serialized.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	logging.Store("opening store at %s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	dictionariesTable := `
	CREATE TABLE IF NOT EXISTS dictionaries (
		name TEXT PRIMARY KEY,
		path TEXT,
		fingerprint TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	dictionaryWordsTable := `
	CREATE TABLE IF NOT EXISTS dictionary_words (
		dictionary TEXT NOT NULL,
		position INTEGER NOT NULL,
		word TEXT NOT NULL,
		PRIMARY KEY(dictionary, position)
	);
	CREATE INDEX IF NOT EXISTS idx_dict_words_dict ON dictionary_words(dictionary);
	`

	sessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		allowed_fp TEXT NOT NULL,
		answers_fp TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		solved BOOLEAN DEFAULT FALSE,
		turns INTEGER DEFAULT 0
	);
	`

	// UNIQUE(session_id, turn) makes turn writes idempotent.
	sessionTurnsTable := `
	CREATE TABLE IF NOT EXISTS session_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		guess TEXT NOT NULL,
		marks TEXT NOT NULL,
		remaining INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, turn)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON session_turns(session_id);
	`

	openingGuessesTable := `
	CREATE TABLE IF NOT EXISTS opening_guesses (
		allowed_fp TEXT NOT NULL,
		answers_fp TEXT NOT NULL,
		strategy TEXT NOT NULL,
		guess TEXT NOT NULL,
		score INTEGER NOT NULL,
		computed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY(allowed_fp, answers_fp, strategy)
	);
	`

	for _, table := range []string{
		dictionariesTable,
		dictionaryWordsTable,
		sessionsTable,
		sessionTurnsTable,
		openingGuessesTable,
	} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("closing store")
	return s.db.Close()
}

// DictionaryInfo describes a stored dictionary.
type DictionaryInfo struct {
	Name        string
	Path        string
	Fingerprint string
	WordCount   int
	ImportedAt  time.Time
}

// ImportDictionary replaces the stored copy of a dictionary.
func (s *Store) ImportDictionary(d *words.Dictionary) error {
	timer := logging.StartTimer(logging.CategoryStore, "ImportDictionary")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO dictionaries (name, path, fingerprint, word_count, imported_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET
		   path = excluded.path,
		   fingerprint = excluded.fingerprint,
		   word_count = excluded.word_count,
		   imported_at = CURRENT_TIMESTAMP`,
		d.Name, d.Path, d.Fingerprint(), d.Len(),
	); err != nil {
		return fmt.Errorf("upsert dictionary %s: %w", d.Name, err)
	}

	if _, err := tx.Exec(`DELETE FROM dictionary_words WHERE dictionary = ?`, d.Name); err != nil {
		return fmt.Errorf("clear dictionary %s: %w", d.Name, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO dictionary_words (dictionary, position, word) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare word insert: %w", err)
	}
	defer stmt.Close()
	for i, w := range d.Words {
		if _, err := stmt.Exec(d.Name, i, w.Text); err != nil {
			return fmt.Errorf("insert word %q: %w", w.Text, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	logging.Store("imported dictionary %s: %d words (%s)", d.Name, d.Len(), d.Fingerprint()[:12])
	return nil
}

// LoadDictionary rebuilds a dictionary from its stored words, preserving
// import order so fingerprints stay stable.
func (s *Store) LoadDictionary(name string) (*words.Dictionary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var path string
	if err := s.db.QueryRow(`SELECT path FROM dictionaries WHERE name = ?`, name).Scan(&path); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("dictionary %q not found", name)
		}
		return nil, fmt.Errorf("load dictionary %s: %w", name, err)
	}

	rows, err := s.db.Query(`SELECT word FROM dictionary_words WHERE dictionary = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("load dictionary %s words: %w", name, err)
	}
	defer rows.Close()

	var raw []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		raw = append(raw, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate words: %w", err)
	}
	return words.NewDictionary(name, path, raw)
}

// ListDictionaries returns metadata for every stored dictionary.
func (s *Store) ListDictionaries() ([]DictionaryInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT name, path, fingerprint, word_count, imported_at FROM dictionaries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list dictionaries: %w", err)
	}
	defer rows.Close()

	var out []DictionaryInfo
	for rows.Next() {
		var info DictionaryInfo
		if err := rows.Scan(&info.Name, &info.Path, &info.Fingerprint, &info.WordCount, &info.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan dictionary: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// CreateSession records a new solving session.
func (s *Store) CreateSession(id, allowedFP, answersFP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, allowed_fp, answers_fp) VALUES (?, ?, ?)`,
		id, allowedFP, answersFP)
	if err != nil {
		return fmt.Errorf("create session %s: %w", id, err)
	}
	return nil
}

// RecordTurn persists one turn. Re-recording the same turn is a no-op.
func (s *Store) RecordTurn(sessionID string, turn int, guess, marks string, remaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO session_turns (session_id, turn, guess, marks, remaining)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, turn, guess, marks, remaining)
	if err != nil {
		return fmt.Errorf("record turn %d for session %s: %w", turn, sessionID, err)
	}
	_, err = s.db.Exec(
		`UPDATE sessions SET turns = MAX(turns, ?) WHERE id = ?`, turn, sessionID)
	if err != nil {
		return fmt.Errorf("update session %s turn count: %w", sessionID, err)
	}
	return nil
}

// FinishSession marks a session solved.
func (s *Store) FinishSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`UPDATE sessions SET solved = TRUE WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("finish session %s: %w", sessionID, err)
	}
	return nil
}

// SessionInfo describes a stored session.
type SessionInfo struct {
	ID        string
	CreatedAt time.Time
	Solved    bool
	Turns     int
}

// ListSessions returns recent sessions, newest first.
func (s *Store) ListSessions(limit int) ([]SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, created_at, solved, turns FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.Solved, &info.Turns); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// FindSession resolves a session by id, accepting a unique prefix so the
// truncated ids shown by status and the session list work as handles.
func (s *Store) FindSession(idPrefix string) (SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, created_at, solved, turns FROM sessions WHERE id LIKE ? || '%' ORDER BY created_at DESC LIMIT 2`,
		idPrefix)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("find session %q: %w", idPrefix, err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.Solved, &info.Turns); err != nil {
			return SessionInfo{}, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return SessionInfo{}, err
	}
	switch len(out) {
	case 0:
		return SessionInfo{}, fmt.Errorf("no session matching %q", idPrefix)
	case 1:
		return out[0], nil
	default:
		return SessionInfo{}, fmt.Errorf("session id %q is ambiguous", idPrefix)
	}
}

// TurnRecord is one stored turn of a session.
type TurnRecord struct {
	Turn      int
	Guess     string
	Marks     string
	Remaining int
}

// SessionTurns returns a session's recorded turns in play order.
func (s *Store) SessionTurns(sessionID string) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT turn, guess, marks, remaining FROM session_turns WHERE session_id = ? ORDER BY turn`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("load turns for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		if err := rows.Scan(&rec.Turn, &rec.Guess, &rec.Marks, &rec.Remaining); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// OpeningGuess looks up a cached opening guess for a dictionary pair.
func (s *Store) OpeningGuess(allowedFP, answersFP, strategy string) (guess string, score int, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRow(
		`SELECT guess, score FROM opening_guesses
		 WHERE allowed_fp = ? AND answers_fp = ? AND strategy = ?`,
		allowedFP, answersFP, strategy).Scan(&guess, &score)
	if err == sql.ErrNoRows {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("lookup opening guess: %w", err)
	}
	return guess, score, true, nil
}

// SaveOpeningGuess caches the computed opening guess for a dictionary pair.
func (s *Store) SaveOpeningGuess(allowedFP, answersFP, strategy, guess string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO opening_guesses (allowed_fp, answers_fp, strategy, guess, score, computed_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(allowed_fp, answers_fp, strategy) DO UPDATE SET
		   guess = excluded.guess,
		   score = excluded.score,
		   computed_at = CURRENT_TIMESTAMP`,
		allowedFP, answersFP, strategy, guess, score)
	if err != nil {
		return fmt.Errorf("save opening guess: %w", err)
	}
	logging.Store("cached opening guess %q (score %d, strategy %s)", guess, score, strategy)
	return nil
}

// Stats returns row counts per table.
func (s *Store) Stats() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	tables := []string{"dictionaries", "dictionary_words", "sessions", "session_turns", "opening_guesses"}
	for _, table := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			logging.StoreDebug("table %s count failed: %v", table, err)
			continue
		}
		stats[table] = count
	}
	return stats, nil
}
