// Package sqlstore keeps catalog documents in SQLite. It is a server-side
// backend; browser builds depend only on package catalog.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

// Entry describes one stored document.
type Entry struct {
	Slug      string
	Title     string
	Version   string
	UpdatedAt time.Time
}

// Store keeps validated documents in a single SQLite table, one JSON body
// per slug.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (and creates if needed) the database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if path == "" {
		path = "catalog.db"
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		slug TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		version TEXT NOT NULL,
		body BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put validates body and stores it under slug, replacing any previous
// version. Invalid documents are rejected and nothing is written.
func (s *Store) Put(ctx context.Context, slug string, body []byte) error {
	if !catalog.ValidSlug(slug) {
		return fmt.Errorf("put %q: invalid slug", slug)
	}
	doc, warnings, err := schema.Decode(body)
	if err != nil {
		return fmt.Errorf("put %s: %w", slug, err)
	}
	for _, w := range warnings {
		s.log.Warn("schema warning", zap.String("slug", slug), zap.String("warning", w))
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO documents (slug, title, version, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET title = excluded.title, version = excluded.version,
			body = excluded.body, updated_at = excluded.updated_at`,
		slug, doc.Product.Title, doc.SchemaVersion, body, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("put %s: %w", slug, err)
	}
	return nil
}

// Raw returns the stored body for slug.
func (s *Store) Raw(ctx context.Context, slug string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE slug = ?`, slug).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", slug, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", slug, err)
	}
	return body, nil
}

// Fetch decodes the stored document for slug and narrows it to c.
func (s *Store) Fetch(ctx context.Context, slug string, c schema.Context) (*schema.Document, error) {
	body, err := s.Raw(ctx, slug)
	if err != nil {
		return nil, err
	}
	doc, _, err := schema.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", slug, err)
	}
	return doc.ForContext(c), nil
}

// Delete removes slug. Deleting an unknown slug returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("delete %s: %w", slug, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", slug, catalog.ErrNotFound)
	}
	return nil
}

// List returns every stored document ordered by slug.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug, title, version, updated_at FROM documents ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var updated int64
		if err := rows.Scan(&e.Slug, &e.Title, &e.Version, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// ImportDir stores every {slug}.json in dir. It stops at the first invalid
// document and reports how many were imported before it.
func (s *Store) ImportDir(ctx context.Context, dir string) (int, error) {
	src := catalog.NewDirSource(dir, s.log)
	slugs, err := src.Slugs()
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", dir, err)
	}
	n := 0
	for _, slug := range slugs {
		body, err := os.ReadFile(filepath.Join(dir, slug+".json"))
		if err != nil {
			return n, fmt.Errorf("import %s: %w", slug, err)
		}
		if err := s.Put(ctx, slug, body); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
