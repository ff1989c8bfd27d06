package dictionary

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaVersion = 1

var (
	ErrEmptyWord      = errors.New("empty word")
	ErrDatabaseClosed = errors.New("database is closed")
)

// SQLiteStore persists allowed words across sessions.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// OpenSQLite opens (or creates) the database at path and migrates its schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Infof("dictionary database at %s", path)
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queries := []string{
		// word is stored lowercased; added is a unix timestamp
		`CREATE TABLE IF NOT EXISTS words (
            word TEXT PRIMARY KEY,
            added INTEGER NOT NULL
        )`,
	}
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrDatabaseClosed
	}
	return s.db, nil
}

func (s *SQLiteStore) Contains(word string) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM words WHERE word = ?`, normalize(word)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up %q: %w", word, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Add(word string) error {
	w := normalize(word)
	if w == "" {
		return ErrEmptyWord
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT OR IGNORE INTO words (word, added) VALUES (?, ?)`, w, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to add %q: %w", word, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(word string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM words WHERE word = ?`, normalize(word)); err != nil {
		return fmt.Errorf("failed to remove %q: %w", word, err)
	}
	return nil
}

func (s *SQLiteStore) Words() ([]string, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`SELECT word FROM words ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
