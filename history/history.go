package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const timestampLayout = "2006-01-02 15:04:05.000000000"

// Store persists quick-search history so the host's quick-search surface can
// offer recent queries across restarts.
type Store struct {
	db *sql.DB
}

// Record is one remembered search.
type Record struct {
	ID         int64
	Query      string
	SearchedAt time.Time
}

// New opens (creating if needed) the history database at path; an empty path
// falls back to ./data/history.db.
func New(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join("data", "history.db")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Infof("search history initialized at %s", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS search_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			searched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_history_query ON search_history(query)`,
		`CREATE INDEX IF NOT EXISTS idx_search_history_searched_at ON search_history(searched_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Record saves a query. Blank queries are ignored.
func (s *Store) Record(query string) error {
	if query == "" {
		return nil
	}
	// Fixed-width timestamp so lexicographic MAX() orders correctly.
	_, err := s.db.Exec(
		`INSERT INTO search_history (query, searched_at) VALUES (?, ?)`,
		query, time.Now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// Recent returns the most recent distinct queries, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT MIN(id), query, MAX(searched_at) AS last
		 FROM search_history
		 GROUP BY query
		 ORDER BY last DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var searchedAt string
		if err := rows.Scan(&r.ID, &r.Query, &searchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if t, err := time.Parse(timestampLayout, searchedAt); err == nil {
			r.SearchedAt = t
		} else {
			log.Warnf("failed to parse searched_at %q", searchedAt)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Delete forgets one query.
func (s *Store) Delete(query string) error {
	_, err := s.db.Exec(`DELETE FROM search_history WHERE query = ?`, query)
	return err
}

// Clear forgets everything.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM search_history`)
	return err
}
