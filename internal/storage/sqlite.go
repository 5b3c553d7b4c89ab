// Package storage provides the data persistence layer for mapping sessions.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/tally-ho/internal/model"
	"github.com/Veraticus/tally-ho/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Ensure SQLiteStorage implements the Storage interface.
var _ service.Storage = (*SQLiteStorage)(nil)

// dbtx is the query surface shared by *sql.DB and *sql.Tx, so session
// helpers run identically inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the shared helpers with the transaction.
func (t *sqliteTransaction) SaveSession(ctx context.Context, record *model.SessionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSessionRecord(record); err != nil {
		return err
	}
	return saveSession(ctx, t.tx, record)
}

func (t *sqliteTransaction) GetSession(ctx context.Context, id string) (*model.SessionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getSession(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetLatestSession(ctx context.Context) (*model.SessionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getLatestSession(ctx, t.tx)
}

func (t *sqliteTransaction) ListSessions(ctx context.Context, filter service.SessionFilter) ([]model.SessionSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listSessions(ctx, t.tx, filter)
}

func (t *sqliteTransaction) UpdateSessionEntry(ctx context.Context, sessionID string, index int, entry model.MappingEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	return updateSessionEntry(ctx, t.tx, sessionID, index, entry)
}

func (t *sqliteTransaction) MarkSessionAccepted(ctx context.Context, sessionID string, acceptedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	return markSessionAccepted(ctx, t.tx, sessionID, acceptedAt)
}

func (t *sqliteTransaction) DeleteSession(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return deleteSession(ctx, t.tx, id)
}

// Migrate inside a transaction is not supported; migrations manage their
// own transactions.
func (t *sqliteTransaction) Migrate(_ context.Context) error {
	return fmt.Errorf("migrate within a transaction is not supported")
}

// BeginTx inside a transaction is not supported; SQLite has no nested
// transactions.
func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, fmt.Errorf("nested transactions are not supported")
}

// Close is a no-op inside a transaction; the storage owns the connection.
func (t *sqliteTransaction) Close() error {
	return nil
}
