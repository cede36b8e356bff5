package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	doc_key    TEXT NOT NULL,
	body       BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, doc_key)
)`

// SQLiteStore keeps documents in a single SQLite table.
type SQLiteStore struct {
	sqlDB *sql.DB
	opts  options
}

// OpenSQLite opens (and creates when needed) the store at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; publish is sequential anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLiteStore{sqlDB: sqlDB, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s, nil
}

// Close closes the underlying SQLite database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) check(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrNotConfigured
	}
	return validate(collection, key)
}

// Get returns the document body for collection/key.
func (s *SQLiteStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := s.check(ctx, collection, key); err != nil {
		return nil, err
	}
	var body []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND doc_key = ?`, collection, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return body, nil
}

// Put upserts the document.
func (s *SQLiteStore) Put(ctx context.Context, collection, key string, data []byte) error {
	if err := s.check(ctx, collection, key); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_key, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, doc_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, key, data, s.opts.now().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}
	return nil
}

// Delete removes the document if present.
func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	if err := s.check(ctx, collection, key); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND doc_key = ?`, collection, key,
	); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// List returns the documents of collection ordered by key.
func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := s.check(ctx, collection, "-"); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT doc_key, body, updated_at FROM documents WHERE collection = ? ORDER BY doc_key`, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var (
			doc       = Document{Collection: collection}
			updatedAt string
		)
		if err := rows.Scan(&doc.Key, &doc.Data, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		if doc.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at of %s/%s: %w", collection, doc.Key, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func validate(collection, key string) error {
	if strings.TrimSpace(collection) == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidKey)
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
