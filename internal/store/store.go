// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/papeesearch/portal/internal/models"
)

// Common store errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique value (email, reference) is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// JournalStore defines operations for journal management.
type JournalStore interface {
	Create(ctx context.Context, j *models.Journal) error
	Get(ctx context.Context, id int64) (*models.Journal, error)
	List(ctx context.Context) ([]*models.Journal, error)
	Update(ctx context.Context, j *models.Journal) error
	Delete(ctx context.Context, id int64) error
}

// ConferenceStore defines operations for conference management.
type ConferenceStore interface {
	Create(ctx context.Context, c *models.Conference) error
	Get(ctx context.Context, id int64) (*models.Conference, error)
	List(ctx context.Context) ([]*models.Conference, error)
	Update(ctx context.Context, c *models.Conference) error
	Delete(ctx context.Context, id int64) error
}

// TemplateFilter narrows template listings.
type TemplateFilter struct {
	ConferenceID  int64
	PublishedOnly bool
}

// TemplateStore defines operations for conference landing-page templates.
type TemplateStore interface {
	Create(ctx context.Context, t *models.ConferenceTemplate) error
	Get(ctx context.Context, id int64) (*models.ConferenceTemplate, error)
	// List returns templates matching f; zero values do not filter.
	List(ctx context.Context, f TemplateFilter) ([]*models.ConferenceTemplate, error)
	Update(ctx context.Context, t *models.ConferenceTemplate) error
	Delete(ctx context.Context, id int64) error
}

// ManuscriptStore defines operations for manuscript submissions.
type ManuscriptStore interface {
	// Create inserts m. Returns ErrDuplicate when the reference is taken.
	Create(ctx context.Context, m *models.Manuscript) error
	Get(ctx context.Context, id int64) (*models.Manuscript, error)
	// List returns manuscripts, newest first; journalID 0 lists all journals.
	List(ctx context.Context, journalID int64) ([]*models.Manuscript, error)
	Update(ctx context.Context, m *models.Manuscript) error
	Delete(ctx context.Context, id int64) error
}

// AbstractStore defines operations for conference abstracts.
type AbstractStore interface {
	Create(ctx context.Context, a *models.Abstract) error
	Get(ctx context.Context, id int64) (*models.Abstract, error)
	// List returns abstracts, newest first; conferenceID 0 lists all conferences.
	List(ctx context.Context, conferenceID int64) ([]*models.Abstract, error)
	Update(ctx context.Context, a *models.Abstract) error
	Delete(ctx context.Context, id int64) error
}

// RegistrationStore defines operations for conference registrations.
type RegistrationStore interface {
	Create(ctx context.Context, r *models.Registration) error
	Get(ctx context.Context, id int64) (*models.Registration, error)
	// List returns registrations, newest first; conferenceID 0 lists all conferences.
	List(ctx context.Context, conferenceID int64) ([]*models.Registration, error)
	Update(ctx context.Context, r *models.Registration) error
	Delete(ctx context.Context, id int64) error
}

// ApplicantStore defines operations for editor and author sign-ups.
type ApplicantStore interface {
	Create(ctx context.Context, a *models.Applicant) error
	Get(ctx context.Context, id int64) (*models.Applicant, error)
	// List returns applicants, newest first; an empty kind lists both kinds.
	List(ctx context.Context, kind models.ApplicantKind) ([]*models.Applicant, error)
	Delete(ctx context.Context, id int64) error
}

// UserStore defines operations for back-office accounts.
type UserStore interface {
	// Create inserts u. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// List returns users with the given role, oldest first; an empty role lists everyone.
	List(ctx context.Context, role models.Role) ([]*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id int64) error
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

// Store is the main interface for database operations.
type Store interface {
	Journals() JournalStore
	Conferences() ConferenceStore
	Templates() TemplateStore
	Manuscripts() ManuscriptStore
	Abstracts() AbstractStore
	Registrations() RegistrationStore
	Applicants() ApplicantStore
	Users() UserStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
