package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/papeesearch/portal/internal/models"
)

// ManuscriptStore implements store.ManuscriptStore using PostgreSQL.
type ManuscriptStore struct {
	base
}

const manuscriptColumns = `id, journal_id, reference, title, abstract, keywords, authors, corresponding_name,
	corresponding_email, manuscript_url, status, notes, created_at, updated_at`

func scanManuscript(row interface{ Scan(...any) error }) (*models.Manuscript, error) {
	m := &models.Manuscript{}
	err := row.Scan(&m.ID, &m.JournalID, &m.Reference, &m.Title, &m.Abstract, pq.Array(&m.Keywords),
		&m.Authors, &m.CorrespondingName, &m.CorrespondingEmail, &m.ManuscriptURL, &m.Status, &m.Notes,
		&m.CreatedAt, &m.UpdatedAt)
	if m.Keywords == nil {
		m.Keywords = []string{}
	}
	return m, err
}

// Create creates a new manuscript. A taken reference yields store.ErrDuplicate.
func (s *ManuscriptStore) Create(ctx context.Context, m *models.Manuscript) error {
	query := `
		INSERT INTO manuscripts (journal_id, reference, title, abstract, keywords, authors, corresponding_name,
		                         corresponding_email, manuscript_url, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING id, created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		m.JournalID, m.Reference, m.Title, m.Abstract, pq.Array(m.Keywords), m.Authors,
		m.CorrespondingName, m.CorrespondingEmail, m.ManuscriptURL, m.Status, m.Notes, time.Now().UTC(),
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return writeError("inserting manuscript", err)
	}
	return nil
}

// Get retrieves a manuscript by ID.
func (s *ManuscriptStore) Get(ctx context.Context, id int64) (*models.Manuscript, error) {
	query := `SELECT ` + manuscriptColumns + ` FROM manuscripts WHERE id = $1`
	m, err := scanManuscript(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("querying manuscript", err)
	}
	return m, nil
}

// List retrieves manuscripts newest first, optionally limited to one journal.
func (s *ManuscriptStore) List(ctx context.Context, journalID int64) ([]*models.Manuscript, error) {
	query := `
		SELECT ` + manuscriptColumns + `
		FROM manuscripts
		WHERE $1::bigint = 0 OR journal_id = $1
		ORDER BY id DESC`

	rows, err := s.conn().QueryContext(ctx, query, journalID)
	if err != nil {
		return nil, fmt.Errorf("querying manuscripts: %w", err)
	}
	defer rows.Close()

	manuscripts := []*models.Manuscript{}
	for rows.Next() {
		m, err := scanManuscript(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning manuscript: %w", err)
		}
		manuscripts = append(manuscripts, m)
	}
	return manuscripts, rows.Err()
}

// Update updates an existing manuscript.
func (s *ManuscriptStore) Update(ctx context.Context, m *models.Manuscript) error {
	query := `
		UPDATE manuscripts
		SET title = $1, abstract = $2, keywords = $3, authors = $4, corresponding_name = $5,
		    corresponding_email = $6, manuscript_url = $7, status = $8, notes = $9, updated_at = $10
		WHERE id = $11
		RETURNING created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		m.Title, m.Abstract, pq.Array(m.Keywords), m.Authors, m.CorrespondingName, m.CorrespondingEmail,
		m.ManuscriptURL, m.Status, m.Notes, time.Now().UTC(), m.ID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return readError("updating manuscript", err)
	}
	return nil
}

// Delete removes a manuscript.
func (s *ManuscriptStore) Delete(ctx context.Context, id int64) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM manuscripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting manuscript: %w", err)
	}
	return affectedOne(res, "deleting manuscript")
}

// AbstractStore implements store.AbstractStore using PostgreSQL.
type AbstractStore struct {
	base
}

const abstractColumns = `id, conference_id, reference, title, body, keywords, presenter_name, presenter_email,
	affiliation, presentation_type, status, created_at, updated_at`

func scanAbstract(row interface{ Scan(...any) error }) (*models.Abstract, error) {
	a := &models.Abstract{}
	err := row.Scan(&a.ID, &a.ConferenceID, &a.Reference, &a.Title, &a.Body, pq.Array(&a.Keywords),
		&a.PresenterName, &a.PresenterEmail, &a.Affiliation, &a.PresentationType, &a.Status,
		&a.CreatedAt, &a.UpdatedAt)
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	return a, err
}

// Create creates a new abstract. A taken reference yields store.ErrDuplicate.
func (s *AbstractStore) Create(ctx context.Context, a *models.Abstract) error {
	query := `
		INSERT INTO abstracts (conference_id, reference, title, body, keywords, presenter_name, presenter_email,
		                       affiliation, presentation_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING id, created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		a.ConferenceID, a.Reference, a.Title, a.Body, pq.Array(a.Keywords), a.PresenterName,
		a.PresenterEmail, a.Affiliation, a.PresentationType, a.Status, time.Now().UTC(),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return writeError("inserting abstract", err)
	}
	return nil
}

// Get retrieves an abstract by ID.
func (s *AbstractStore) Get(ctx context.Context, id int64) (*models.Abstract, error) {
	query := `SELECT ` + abstractColumns + ` FROM abstracts WHERE id = $1`
	a, err := scanAbstract(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("querying abstract", err)
	}
	return a, nil
}

// List retrieves abstracts newest first, optionally limited to one conference.
func (s *AbstractStore) List(ctx context.Context, conferenceID int64) ([]*models.Abstract, error) {
	query := `
		SELECT ` + abstractColumns + `
		FROM abstracts
		WHERE $1::bigint = 0 OR conference_id = $1
		ORDER BY id DESC`

	rows, err := s.conn().QueryContext(ctx, query, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("querying abstracts: %w", err)
	}
	defer rows.Close()

	abstracts := []*models.Abstract{}
	for rows.Next() {
		a, err := scanAbstract(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning abstract: %w", err)
		}
		abstracts = append(abstracts, a)
	}
	return abstracts, rows.Err()
}

// Update updates an existing abstract.
func (s *AbstractStore) Update(ctx context.Context, a *models.Abstract) error {
	query := `
		UPDATE abstracts
		SET title = $1, body = $2, keywords = $3, presenter_name = $4, presenter_email = $5,
		    affiliation = $6, presentation_type = $7, status = $8, updated_at = $9
		WHERE id = $10
		RETURNING created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		a.Title, a.Body, pq.Array(a.Keywords), a.PresenterName, a.PresenterEmail, a.Affiliation,
		a.PresentationType, a.Status, time.Now().UTC(), a.ID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return readError("updating abstract", err)
	}
	return nil
}

// Delete removes an abstract.
func (s *AbstractStore) Delete(ctx context.Context, id int64) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM abstracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting abstract: %w", err)
	}
	return affectedOne(res, "deleting abstract")
}

// RegistrationStore implements store.RegistrationStore using PostgreSQL.
type RegistrationStore struct {
	base
}

const registrationColumns = `id, conference_id, reference, full_name, email, affiliation, country, category,
	attendance_mode, status, created_at, updated_at`

func scanRegistration(row interface{ Scan(...any) error }) (*models.Registration, error) {
	r := &models.Registration{}
	err := row.Scan(&r.ID, &r.ConferenceID, &r.Reference, &r.FullName, &r.Email, &r.Affiliation,
		&r.Country, &r.Category, &r.AttendanceMode, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// Create creates a new registration. A taken reference yields store.ErrDuplicate.
func (s *RegistrationStore) Create(ctx context.Context, r *models.Registration) error {
	query := `
		INSERT INTO registrations (conference_id, reference, full_name, email, affiliation, country, category,
		                           attendance_mode, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		r.ConferenceID, r.Reference, r.FullName, r.Email, r.Affiliation, r.Country, r.Category,
		r.AttendanceMode, r.Status, time.Now().UTC(),
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return writeError("inserting registration", err)
	}
	return nil
}

// Get retrieves a registration by ID.
func (s *RegistrationStore) Get(ctx context.Context, id int64) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	r, err := scanRegistration(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("querying registration", err)
	}
	return r, nil
}

// List retrieves registrations newest first, optionally limited to one conference.
func (s *RegistrationStore) List(ctx context.Context, conferenceID int64) ([]*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE $1::bigint = 0 OR conference_id = $1
		ORDER BY id DESC`

	rows, err := s.conn().QueryContext(ctx, query, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("querying registrations: %w", err)
	}
	defer rows.Close()

	registrations := []*models.Registration{}
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning registration: %w", err)
		}
		registrations = append(registrations, r)
	}
	return registrations, rows.Err()
}

// Update updates an existing registration.
func (s *RegistrationStore) Update(ctx context.Context, r *models.Registration) error {
	query := `
		UPDATE registrations
		SET full_name = $1, email = $2, affiliation = $3, country = $4, category = $5,
		    attendance_mode = $6, status = $7, updated_at = $8
		WHERE id = $9
		RETURNING created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		r.FullName, r.Email, r.Affiliation, r.Country, r.Category, r.AttendanceMode, r.Status,
		time.Now().UTC(), r.ID,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return readError("updating registration", err)
	}
	return nil
}

// Delete removes a registration.
func (s *RegistrationStore) Delete(ctx context.Context, id int64) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting registration: %w", err)
	}
	return affectedOne(res, "deleting registration")
}

// ApplicantStore implements store.ApplicantStore using PostgreSQL.
type ApplicantStore struct {
	base
}

const applicantColumns = `id, kind, full_name, email, affiliation, expertise, journal_id, status,
	created_at, updated_at`

func scanApplicant(row interface{ Scan(...any) error }) (*models.Applicant, error) {
	a := &models.Applicant{}
	var journalID sql.NullInt64
	err := row.Scan(&a.ID, &a.Kind, &a.FullName, &a.Email, &a.Affiliation, pq.Array(&a.Expertise),
		&journalID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	a.JournalID = journalID.Int64
	if a.Expertise == nil {
		a.Expertise = []string{}
	}
	return a, err
}

// Create creates a new applicant.
func (s *ApplicantStore) Create(ctx context.Context, a *models.Applicant) error {
	query := `
		INSERT INTO applicants (kind, full_name, email, affiliation, expertise, journal_id, status,
		                        created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		a.Kind, a.FullName, a.Email, a.Affiliation, pq.Array(a.Expertise), nullID(a.JournalID), a.Status,
		time.Now().UTC(),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return writeError("inserting applicant", err)
	}
	return nil
}

// Get retrieves an applicant by ID.
func (s *ApplicantStore) Get(ctx context.Context, id int64) (*models.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE id = $1`
	a, err := scanApplicant(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("querying applicant", err)
	}
	return a, nil
}

// List retrieves applicants newest first, optionally limited to one kind.
func (s *ApplicantStore) List(ctx context.Context, kind models.ApplicantKind) ([]*models.Applicant, error) {
	query := `
		SELECT ` + applicantColumns + `
		FROM applicants
		WHERE $1::text = '' OR kind = $1
		ORDER BY id DESC`

	rows, err := s.conn().QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying applicants: %w", err)
	}
	defer rows.Close()

	applicants := []*models.Applicant{}
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning applicant: %w", err)
		}
		applicants = append(applicants, a)
	}
	return applicants, rows.Err()
}

// Delete removes an applicant.
func (s *ApplicantStore) Delete(ctx context.Context, id int64) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM applicants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting applicant: %w", err)
	}
	return affectedOne(res, "deleting applicant")
}
