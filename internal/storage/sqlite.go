package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"mindnoscape/editor/internal/log"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS mindmaps (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		payload BLOB NOT NULL,
		fingerprint BLOB NOT NULL,
		created INTEGER NOT NULL,
		updated INTEGER NOT NULL
	);
`

// SQLiteStore implements DocumentStore on a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteStore opens (creating if needed) the database file at path.
func NewSQLiteStore(path string, logger *log.Logger) (*SQLiteStore, error) {
	ctx := context.Background()
	logger.Info(ctx, "Opening SQLite database", log.Fields{"dbPath": filepath.Base(path)})

	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error(ctx, "Failed to create database directory", log.Fields{"error": err, "directory": dbDir})
		return nil, fmt.Errorf("failed to create database directory '%s': %w", dbDir, err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		logger.Error(ctx, "Failed to open SQLite database", log.Fields{"error": err})
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA synchronous = NORMAL", "PRAGMA cache_size = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			logger.Error(ctx, "Failed to set SQLite pragma", log.Fields{"error": err, "pragma": pragma})
			return nil, fmt.Errorf("failed to set SQLite pragma %q: %w", pragma, err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		logger.Error(ctx, "Failed to create tables", log.Fields{"error": err})
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info(ctx, "SQLite database opened successfully", nil)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// DocumentAdd implements DocumentStore.
func (s *SQLiteStore) DocumentAdd(ctx context.Context, doc Document) error {
	fp := Fingerprint(doc.Payload)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mindmaps (id, name, payload, fingerprint, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.Payload, fp, doc.Created.UnixMilli(), doc.Updated.UnixMilli())
	if isConstraint(err) {
		return fmt.Errorf("%w: %s", ErrExists, doc.Name)
	}
	if err != nil {
		s.logger.Error(ctx, "Failed to insert mindmap", log.Fields{"error": err, "mindmapID": doc.ID})
		return fmt.Errorf("failed to insert mindmap: %w", err)
	}
	s.logger.Debug(ctx, "Mindmap inserted", log.Fields{"mindmapID": doc.ID, "name": doc.Name})
	return nil
}

// DocumentGet implements DocumentStore.
func (s *SQLiteStore) DocumentGet(ctx context.Context, id string) (Document, error) {
	var doc Document
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, payload, fingerprint, created, updated FROM mindmaps WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Name, &doc.Payload, &doc.Fingerprint, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to read mindmap %s: %w", id, err)
	}
	doc.Created = time.UnixMilli(created)
	doc.Updated = time.UnixMilli(updated)
	return doc, nil
}

// DocumentUpdate implements DocumentStore.
func (s *SQLiteStore) DocumentUpdate(ctx context.Context, doc Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var name string
	var stored []byte
	err = tx.QueryRowContext(ctx, `SELECT name, fingerprint FROM mindmaps WHERE id = ?`, doc.ID).Scan(&name, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, doc.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to read mindmap %s: %w", doc.ID, err)
	}

	fp := Fingerprint(doc.Payload)
	if unchanged(Document{Name: name, Fingerprint: stored}, doc.Name, fp) {
		return ErrUnchanged
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE mindmaps SET name = ?, payload = ?, fingerprint = ?, updated = ? WHERE id = ?`,
		doc.Name, doc.Payload, fp, doc.Updated.UnixMilli(), doc.ID)
	if isConstraint(err) {
		return fmt.Errorf("%w: %s", ErrExists, doc.Name)
	}
	if err != nil {
		s.logger.Error(ctx, "Failed to update mindmap", log.Fields{"error": err, "mindmapID": doc.ID})
		return fmt.Errorf("failed to update mindmap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DocumentDelete implements DocumentStore.
func (s *SQLiteStore) DocumentDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mindmaps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mindmap %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// DocumentList implements DocumentStore.
func (s *SQLiteStore) DocumentList(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, fingerprint, created, updated FROM mindmaps ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mindmaps: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var created, updated int64
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Fingerprint, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan mindmap row: %w", err)
		}
		doc.Created = time.UnixMilli(created)
		doc.Updated = time.UnixMilli(updated)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Close closes the connection to the SQLite database
func (s *SQLiteStore) Close() error {
	s.logger.Info(context.Background(), "Closing SQLite database", nil)
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}
