package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases are rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store caches collection details so repeat lookups skip the rate-limited
// archive API.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}

	dbPath := filepath.Join(dir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	st := &Store{db: db, path: dbPath}
	if err := st.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Entry is one cached collection record.
type Entry struct {
	Details   source.Details
	Source    string
	FetchedAt time.Time
}

// Put inserts or replaces the cached details for a collection.
func (s *Store) Put(ctx context.Context, sourceName string, details source.Details) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO titles (collection_id, source, title, place, start_year, end_year, url, fetched_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(collection_id) DO UPDATE SET
             source=excluded.source, title=excluded.title, place=excluded.place,
             start_year=excluded.start_year, end_year=excluded.end_year,
             url=excluded.url, fetched_at=excluded.fetched_at`,
		details.CollectionID,
		sourceName,
		details.Title,
		details.Place,
		details.StartYear,
		details.EndYear,
		details.URL,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("cache details for %s: %w", details.CollectionID, err)
	}
	return nil
}

// Get returns the cached entry for a collection, or nil when absent.
func (s *Store) Get(ctx context.Context, collectionID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT source, title, place, start_year, end_year, url, fetched_at
         FROM titles WHERE collection_id = ?`, collectionID)

	var entry Entry
	var fetchedAt string
	entry.Details.CollectionID = collectionID
	err := row.Scan(
		&entry.Source,
		&entry.Details.Title,
		&entry.Details.Place,
		&entry.Details.StartYear,
		&entry.Details.EndYear,
		&entry.Details.URL,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached details for %s: %w", collectionID, err)
	}
	if parsed, parseErr := time.Parse(time.RFC3339Nano, fetchedAt); parseErr == nil {
		entry.FetchedAt = parsed
	}
	return &entry, nil
}

// Search returns cached entries whose title, place, or collection id
// contains the query, ordered by title. Matching is case-insensitive.
func (s *Store) Search(ctx context.Context, query string) ([]Entry, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT collection_id, source, title, place, start_year, end_year, url, fetched_at
         FROM titles
         WHERE title LIKE ? OR place LIKE ? OR collection_id LIKE ?
         ORDER BY title`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search catalog for %q: %w", query, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var fetchedAt string
		if err := rows.Scan(
			&entry.Details.CollectionID,
			&entry.Source,
			&entry.Details.Title,
			&entry.Details.Place,
			&entry.Details.StartYear,
			&entry.Details.EndYear,
			&entry.Details.URL,
			&fetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		if parsed, parseErr := time.Parse(time.RFC3339Nano, fetchedAt); parseErr == nil {
			entry.FetchedAt = parsed
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search catalog for %q: %w", query, err)
	}
	return entries, nil
}

// Prune removes entries fetched before the cutoff and reports how many
// were dropped.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM titles WHERE fetched_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune catalog: %w", err)
	}
	return res.RowsAffected()
}
