// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetForm(ctx context.Context, ticketType model.TicketType) (*model.Form, error) {
	return queryGetForm(ctx, s.db, ticketType)
}

func (s *PostgresStore) ListForms(ctx context.Context) ([]*model.Form, error) {
	return queryListForms(ctx, s.db)
}

// SaveForm rewrites the form's sections and fields, so it always runs in a
// transaction.
func (s *PostgresStore) SaveForm(ctx context.Context, f *model.Form, expectedVersion int) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.SaveForm(ctx, f, expectedVersion)
	})
}

func (s *PostgresStore) DeleteForm(ctx context.Context, ticketType model.TicketType) error {
	return queryDeleteForm(ctx, s.db, ticketType)
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	return queryCreateSubmission(ctx, s.db, sub)
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return queryGetSubmission(ctx, s.db, id)
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]*model.Submission, int, error) {
	return queryListSubmissions(ctx, s.db, filter)
}

func (s *PostgresStore) RecordUpload(ctx context.Context, u *model.Upload) error {
	return queryRecordUpload(ctx, s.db, u)
}

func (s *PostgresStore) GetUpload(ctx context.Context, key string) (*model.Upload, error) {
	return queryGetUpload(ctx, s.db, key)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvents(ctx context.Context, subject string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.db, subject)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) GetForm(ctx context.Context, ticketType model.TicketType) (*model.Form, error) {
	return queryGetForm(ctx, s.tx, ticketType)
}

func (s *txStore) ListForms(ctx context.Context) ([]*model.Form, error) {
	return queryListForms(ctx, s.tx)
}

func (s *txStore) SaveForm(ctx context.Context, f *model.Form, expectedVersion int) error {
	return querySaveForm(ctx, s.tx, f, expectedVersion)
}

func (s *txStore) DeleteForm(ctx context.Context, ticketType model.TicketType) error {
	return queryDeleteForm(ctx, s.tx, ticketType)
}

func (s *txStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	return queryCreateSubmission(ctx, s.tx, sub)
}

func (s *txStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return queryGetSubmission(ctx, s.tx, id)
}

func (s *txStore) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]*model.Submission, int, error) {
	return queryListSubmissions(ctx, s.tx, filter)
}

func (s *txStore) RecordUpload(ctx context.Context, u *model.Upload) error {
	return queryRecordUpload(ctx, s.tx, u)
}

func (s *txStore) GetUpload(ctx context.Context, key string) (*model.Upload, error) {
	return queryGetUpload(ctx, s.tx, key)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvents(ctx context.Context, subject string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.tx, subject)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
