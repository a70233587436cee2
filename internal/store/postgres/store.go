// Package postgres provides PostgreSQL implementation of the store interfaces.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/papeesearch/portal/internal/store"
)

//go:embed schema.sql
var schema string

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger

	journals      *JournalStore
	conferences   *ConferenceStore
	templates     *TemplateStore
	manuscripts   *ManuscriptStore
	abstracts     *AbstractStore
	registrations *RegistrationStore
	applicants    *ApplicantStore
	users         *UserStore
}

var _ store.Store = (*PostgresStore)(nil)

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// NewPostgresStore creates a new PostgreSQL store with the given configuration.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := newStore(db, logger)
	logger.Info("connected to PostgreSQL database")
	return s, nil
}

func newStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	b := base{db: db, logger: logger}
	return &PostgresStore{
		db:            db,
		logger:        logger,
		journals:      &JournalStore{base: b},
		conferences:   &ConferenceStore{base: b},
		templates:     &TemplateStore{base: b},
		manuscripts:   &ManuscriptStore{base: b},
		abstracts:     &AbstractStore{base: b},
		registrations: &RegistrationStore{base: b},
		applicants:    &ApplicantStore{base: b},
		users:         &UserStore{base: b},
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	s.logger.Info("database schema applied")
	return nil
}

func (s *PostgresStore) Journals() store.JournalStore           { return s.journals }
func (s *PostgresStore) Conferences() store.ConferenceStore     { return s.conferences }
func (s *PostgresStore) Templates() store.TemplateStore         { return s.templates }
func (s *PostgresStore) Manuscripts() store.ManuscriptStore     { return s.manuscripts }
func (s *PostgresStore) Abstracts() store.AbstractStore         { return s.abstracts }
func (s *PostgresStore) Registrations() store.RegistrationStore { return s.registrations }
func (s *PostgresStore) Applicants() store.ApplicantStore       { return s.applicants }
func (s *PostgresStore) Users() store.UserStore                 { return s.users }

// WithTx executes the given function within a database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txStore := &txStore{tx: tx, logger: s.logger}

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Ping verifies the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL connection")
	return s.db.Close()
}

// txStore wraps a transaction and implements the Store interface.
type txStore struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *txStore) txBase() base {
	return base{tx: s.tx, logger: s.logger}
}

func (s *txStore) Journals() store.JournalStore {
	return &JournalStore{base: s.txBase()}
}

func (s *txStore) Conferences() store.ConferenceStore {
	return &ConferenceStore{base: s.txBase()}
}

func (s *txStore) Templates() store.TemplateStore {
	return &TemplateStore{base: s.txBase()}
}

func (s *txStore) Manuscripts() store.ManuscriptStore {
	return &ManuscriptStore{base: s.txBase()}
}

func (s *txStore) Abstracts() store.AbstractStore {
	return &AbstractStore{base: s.txBase()}
}

func (s *txStore) Registrations() store.RegistrationStore {
	return &RegistrationStore{base: s.txBase()}
}

func (s *txStore) Applicants() store.ApplicantStore {
	return &ApplicantStore{base: s.txBase()}
}

func (s *txStore) Users() store.UserStore {
	return &UserStore{base: s.txBase()}
}

func (s *txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	// Already in a transaction, just execute the function
	return fn(s)
}

func (s *txStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txStore) Close() error {
	return nil
}

// queryable is an interface that both *sql.DB and *sql.Tx implement.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// base carries the connection shared by every sub-store.
type base struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (b *base) conn() queryable {
	if b.tx != nil {
		return b.tx
	}
	return b.db
}
