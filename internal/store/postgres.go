// Package store provides the Postgres-backed catalog of books, authors and
// title translations used to enrich search results.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/baheth/baheth/internal/search"
)

// Config holds database connection settings.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Store reads catalog metadata from Postgres.
type Store struct {
	db *sql.DB
}

var _ search.MetadataStore = (*Store)(nil)

// Open connects to the catalog database and verifies the connection.
func Open(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 10
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, mainly for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// BooksByID fetches catalog rows for the given book IDs in one query.
// Missing IDs are simply absent from the result map.
func (s *Store) BooksByID(ctx context.Context, ids []int) (map[int]search.BookMeta, error) {
	if len(ids) == 0 {
		return map[int]search.BookMeta{}, nil
	}

	query := fmt.Sprintf(`
SELECT id, title, author_id
FROM books
WHERE id IN (%s)
`, placeholders(len(ids)))

	rows, err := s.db.QueryContext(ctx, query, intArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := make(map[int]search.BookMeta, len(ids))
	for rows.Next() {
		var meta search.BookMeta
		var authorID sql.NullInt64
		if err := rows.Scan(&meta.ID, &meta.Title, &authorID); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		meta.AuthorID = int(authorID.Int64)
		books[meta.ID] = meta
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book rows: %w", err)
	}
	return books, nil
}

// AuthorsByID fetches author rows for the given IDs in one query.
func (s *Store) AuthorsByID(ctx context.Context, ids []int) (map[int]search.AuthorMeta, error) {
	if len(ids) == 0 {
		return map[int]search.AuthorMeta{}, nil
	}

	query := fmt.Sprintf(`
SELECT id, name, COALESCE(died_hijri, 0)
FROM authors
WHERE id IN (%s)
`, placeholders(len(ids)))

	rows, err := s.db.QueryContext(ctx, query, intArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	authors := make(map[int]search.AuthorMeta, len(ids))
	for rows.Next() {
		var meta search.AuthorMeta
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.Died); err != nil {
			return nil, fmt.Errorf("scan author row: %w", err)
		}
		authors[meta.ID] = meta
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate author rows: %w", err)
	}
	return authors, nil
}

// TranslatedTitles fetches title translations for the given book IDs in one
// query. Books without a translation in lang are absent from the result map.
func (s *Store) TranslatedTitles(ctx context.Context, ids []int, lang string) (map[int]string, error) {
	if len(ids) == 0 || lang == "" {
		return map[int]string{}, nil
	}

	query := fmt.Sprintf(`
SELECT book_id, title
FROM book_title_translations
WHERE book_id IN (%s) AND lang = $%d
`, placeholders(len(ids)), len(ids)+1)

	args := append(intArgs(ids), lang)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query title translations: %w", err)
	}
	defer rows.Close()

	titles := make(map[int]string, len(ids))
	for rows.Next() {
		var bookID int
		var title string
		if err := rows.Scan(&bookID, &title); err != nil {
			return nil, fmt.Errorf("scan title translation row: %w", err)
		}
		titles[bookID] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate title translation rows: %w", err)
	}
	return titles, nil
}

// Health verifies the database connection.
func (s *Store) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

func intArgs(ids []int) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
