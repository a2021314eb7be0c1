// Package storage provides functionality for persisting and retrieving Mindnoscape data.
// This file holds the driver-independent document store contract.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

// DBDriver represents the type of database driver
type DBDriver string

const (
	SQLite DBDriver = "sqlite"
	Badger DBDriver = "badger"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
	// ErrUnchanged is returned by DocumentUpdate when neither name nor
	// payload differ from the stored version. Nothing is written.
	ErrUnchanged = errors.New("document unchanged")
)

// Document is one stored mind map: its metadata plus the JSON node record
// of its tree.
type Document struct {
	ID          string
	Name        string
	Payload     []byte
	Fingerprint []byte
	Created     time.Time
	Updated     time.Time
}

// DocumentStore persists documents by id. Names are unique.
type DocumentStore interface {
	DocumentAdd(ctx context.Context, doc Document) error
	DocumentGet(ctx context.Context, id string) (Document, error)
	DocumentUpdate(ctx context.Context, doc Document) error
	DocumentDelete(ctx context.Context, id string) error
	// DocumentList returns every document without its payload, ordered by name.
	DocumentList(ctx context.Context) ([]Document, error)
	Close() error
}

// Fingerprint returns the blake2b-256 digest of a payload.
func Fingerprint(payload []byte) []byte {
	sum := blake2b.Sum256(payload)
	return sum[:]
}

func unchanged(stored Document, name string, fingerprint []byte) bool {
	return stored.Name == name && bytes.Equal(stored.Fingerprint, fingerprint)
}

// NewStore opens the document store selected by cfg.Type.
func NewStore(cfg model.DatabaseConfig, logger *log.Logger) (DocumentStore, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	driver, err := validateDBDriver(cfg.Type)
	if err != nil {
		return nil, fmt.Errorf("invalid database driver '%s': %w", cfg.Type, err)
	}

	switch driver {
	case Badger:
		name := strings.TrimSuffix(cfg.File, filepath.Ext(cfg.File)) + ".badger"
		return NewBadgerStore(BadgerOptions{Path: filepath.Join(cfg.Dir, name)}, logger)
	default:
		return NewSQLiteStore(filepath.Join(cfg.Dir, cfg.File), logger)
	}
}

// validateDBDriver checks if the provided driver is supported
func validateDBDriver(driver string) (DBDriver, error) {
	switch DBDriver(driver) {
	case SQLite, "":
		return SQLite, nil
	case Badger:
		return Badger, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}
