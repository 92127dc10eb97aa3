package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/hyperjump/docsift/internal/models"
)

// Supported database/sql driver names.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

const documentColumns = `id, filename, source_path, content, summary, summary_kind, tags, created_at, source_mtime, source_size`

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath with the cgo driver.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	return OpenSQLite(DriverCGO, dbPath)
}

// OpenSQLite opens or creates a SQLite database at dbPath using driver and initializes the schema.
// Parent directories are created if they do not exist.
func OpenSQLite(driver, dbPath string) (*SQLiteStorage, error) {
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, fmt.Errorf("unsupported sqlite driver: %s", driver)
	}
	memory := dbPath == ":memory:"
	if !memory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		source_path TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		summary_kind TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		source_mtime INTEGER NOT NULL DEFAULT 0,
		source_size INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source_path ON documents(source_path);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// Databases created before source state was recorded lack these columns.
	for _, col := range []string{"source_mtime", "source_size"} {
		if err := addColumnIfMissing(db, "documents", col, "INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfMissing(db *sql.DB, table, column, def string) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, def)); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var kind, tags string
	var created int64
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.SourcePath, &doc.Content, &doc.Summary, &kind, &tags, &created, &doc.SourceMtime, &doc.SourceSize); err != nil {
		return nil, err
	}
	doc.SummaryKind = models.SummaryKind(kind)
	doc.Tags = models.SplitTags(tags)
	doc.CreatedAt = time.Unix(0, created).UTC()
	return &doc, nil
}

// InsertDocument inserts doc and sets its assigned id.
func (s *SQLiteStorage) InsertDocument(ctx context.Context, doc *models.Document) (int64, error) {
	if doc.SummaryKind == "" {
		return 0, fmt.Errorf("%w: summary kind is required", models.ErrInvalidArgument)
	}
	doc.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (filename, source_path, content, summary, summary_kind, tags, created_at, source_mtime, source_size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.Filename, doc.SourcePath, doc.Content, doc.Summary, string(doc.SummaryKind),
		models.JoinTags(doc.Tags), doc.CreatedAt.UnixNano(), doc.SourceMtime, doc.SourceSize,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read document id: %w", err)
	}
	doc.ID = id
	return id, nil
}

// GetDocument returns a document by id.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns documents ordered by id descending.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// GetDocumentsByIDs fetches rows for ids in one query.
func (s *SQLiteStorage) GetDocumentsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Document, error) {
	out := make(map[int64]*models.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	docs, err := s.query(ctx, `SELECT `+documentColumns+` FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		out[doc.ID] = doc
	}
	return out, nil
}

// DeleteDocument removes a document by id.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %d", models.ErrNotFound, id)
	}
	return nil
}

// ScanDocuments streams every row most recent first.
func (s *SQLiteStorage) ScanDocuments(ctx context.Context, fn func(*models.Document) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY id DESC`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListByTag returns documents with a tag containing tag, case-insensitively.
func (s *SQLiteStorage) ListByTag(ctx context.Context, tag string) ([]*models.Document, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return nil, fmt.Errorf("%w: empty tag", models.ErrInvalidArgument)
	}
	return s.query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE LOWER(tags) LIKE ? ORDER BY id DESC`,
		"%"+tag+"%",
	)
}

// FindBySourcePath returns documents ingested from sourcePath.
func (s *SQLiteStorage) FindBySourcePath(ctx context.Context, sourcePath string) ([]*models.Document, error) {
	return s.query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE source_path = ? ORDER BY id DESC`,
		sourcePath,
	)
}

// UpdateDerived rewrites the derived columns of a document.
func (s *SQLiteStorage) UpdateDerived(ctx context.Context, id int64, summary string, kind models.SummaryKind, tags []string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET summary = ?, summary_kind = ?, tags = ? WHERE id = ?`,
		summary, string(kind), models.JoinTags(tags), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %d", models.ErrNotFound, id)
	}
	return nil
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) query(ctx context.Context, q string, args ...any) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
