package configstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/korenlab/lexkb/internal/lexical"
)

// ErrNotFound is returned when a requested setting doesn't exist
var ErrNotFound = errors.New("not found")

// Term list names.
const (
	ListStopwordsHE       = "stopwords_he"
	ListStopwordsEN       = "stopwords_en"
	ListLegalStopwords    = "legal_stopwords"
	ListImportantConcepts = "important_concepts"
)

// Store wraps the settings database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the settings database at dbPath and
// applies pending migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetSetting returns the value for key, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a key/value pair.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// AllSettings returns every stored key/value pair.
func (s *Store) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// AddTerm adds a term to a list. Duplicates are ignored.
func (s *Store) AddTerm(ctx context.Context, list, term string) error {
	query := "INSERT INTO terms (list, term) VALUES (?, ?) ON CONFLICT(list, term) DO NOTHING"
	if _, err := s.db.ExecContext(ctx, query, list, term); err != nil {
		return fmt.Errorf("add term to %s: %w", list, err)
	}
	return nil
}

// RemoveTerm deletes a term from a list; removing an absent term is not
// an error.
func (s *Store) RemoveTerm(ctx context.Context, list, term string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM terms WHERE list = ? AND term = ?", list, term); err != nil {
		return fmt.Errorf("remove term from %s: %w", list, err)
	}
	return nil
}

// Terms returns the stored terms of one list in insertion order.
func (s *Store) Terms(ctx context.Context, list string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT term FROM terms WHERE list = ? ORDER BY created_at, term", list)
	if err != nil {
		return nil, fmt.Errorf("list terms of %s: %w", list, err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadResources builds the lexical resources used for tokenization and
// scoring: the built-in defaults extended with every curated term in
// the store.
func (s *Store) LoadResources(ctx context.Context) (lexical.Resources, error) {
	res := lexical.DefaultResources()

	lists := []struct {
		name string
		dst  map[string]struct{}
	}{
		{ListStopwordsHE, res.StopwordsHE},
		{ListStopwordsEN, res.StopwordsEN},
		{ListLegalStopwords, res.LegalStopwords},
		{ListImportantConcepts, res.ImportantConcepts},
	}
	for _, l := range lists {
		terms, err := s.Terms(ctx, l.name)
		if err != nil {
			return lexical.Resources{}, err
		}
		for _, t := range terms {
			l.dst[t] = struct{}{}
		}
	}
	return res, nil
}
