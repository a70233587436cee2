package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// JournalStore implements store.JournalStore using PostgreSQL.
type JournalStore struct {
	base
}

const journalColumns = `id, title, abbreviation, issn, eissn, description, scope, status, created_at, updated_at`

func scanJournal(row interface{ Scan(...any) error }) (*models.Journal, error) {
	j := &models.Journal{}
	err := row.Scan(&j.ID, &j.Title, &j.Abbreviation, &j.ISSN, &j.EISSN,
		&j.Description, &j.Scope, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// Create creates a new journal.
func (s *JournalStore) Create(ctx context.Context, j *models.Journal) error {
	query := `
		INSERT INTO journals (title, abbreviation, issn, eissn, description, scope, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		j.Title, j.Abbreviation, j.ISSN, j.EISSN, j.Description, j.Scope, j.Status, time.Now().UTC(),
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return writeError("inserting journal", err)
	}
	return nil
}

// Get retrieves a journal by ID.
func (s *JournalStore) Get(ctx context.Context, id int64) (*models.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals WHERE id = $1`
	j, err := scanJournal(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("querying journal", err)
	}
	return j, nil
}

// List retrieves all journals in creation order.
func (s *JournalStore) List(ctx context.Context) ([]*models.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals ORDER BY id`
	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying journals: %w", err)
	}
	defer rows.Close()

	journals := []*models.Journal{}
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning journal: %w", err)
		}
		journals = append(journals, j)
	}
	return journals, rows.Err()
}

// Update updates an existing journal.
func (s *JournalStore) Update(ctx context.Context, j *models.Journal) error {
	query := `
		UPDATE journals
		SET title = $1, abbreviation = $2, issn = $3, eissn = $4, description = $5, scope = $6,
		    status = $7, updated_at = $8
		WHERE id = $9
		RETURNING created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		j.Title, j.Abbreviation, j.ISSN, j.EISSN, j.Description, j.Scope, j.Status, time.Now().UTC(), j.ID,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return readError("updating journal", err)
	}
	return nil
}

// Delete removes a journal. Its manuscripts are removed by cascade.
func (s *JournalStore) Delete(ctx context.Context, id int64) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM journals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting journal: %w", err)
	}
	return affectedOne(res, "deleting journal")
}

// ConferenceStore implements store.ConferenceStore using PostgreSQL.
type ConferenceStore struct {
	base
}

const conferenceColumns = `id, journal_id, name, short_name, description, venue, starts_on, ends_on,
	submission_deadline, status, created_at, updated_at`

func scanConference(row interface{ Scan(...any) error }) (*models.Conference, error) {
	c := &models.Conference{}
	var journalID sql.NullInt64
	var startsOn, endsOn, deadline sql.NullTime
	err := row.Scan(&c.ID, &journalID, &c.Name, &c.ShortName, &c.Description, &c.Venue,
		&startsOn, &endsOn, &deadline, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.JournalID = journalID.Int64
	c.StartsOn = timePtr(startsOn)
	c.EndsOn = timePtr(endsOn)
	c.SubmissionDeadline = timePtr(deadline)
	return c, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// Create creates a new conference.
func (s *ConferenceStore) Create(ctx context.Context, c *models.Conference) error {
	query := `
		INSERT INTO conferences (journal_id, name, short_name, description, venue, starts_on, ends_on,
		                         submission_deadline, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		nullID(c.JournalID), c.Name, c.ShortName, c.Description, c.Venue,
		c.StartsOn, c.EndsOn, c.SubmissionDeadline, c.Status, time.Now().UTC(),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeError("inserting conference", err)
	}
	return nil
}

// Get retrieves a conference by ID.
func (s *ConferenceStore) Get(ctx context.Context, id int64) (*models.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences WHERE id = $1`
	c, err := scanConference(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("querying conference", err)
	}
	return c, nil
}

// List retrieves all conferences in creation order.
func (s *ConferenceStore) List(ctx context.Context) ([]*models.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences ORDER BY id`
	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying conferences: %w", err)
	}
	defer rows.Close()

	conferences := []*models.Conference{}
	for rows.Next() {
		c, err := scanConference(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conference: %w", err)
		}
		conferences = append(conferences, c)
	}
	return conferences, rows.Err()
}

// Update updates an existing conference.
func (s *ConferenceStore) Update(ctx context.Context, c *models.Conference) error {
	query := `
		UPDATE conferences
		SET journal_id = $1, name = $2, short_name = $3, description = $4, venue = $5, starts_on = $6,
		    ends_on = $7, submission_deadline = $8, status = $9, updated_at = $10
		WHERE id = $11
		RETURNING created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		nullID(c.JournalID), c.Name, c.ShortName, c.Description, c.Venue,
		c.StartsOn, c.EndsOn, c.SubmissionDeadline, c.Status, time.Now().UTC(), c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return readError("updating conference", err)
	}
	return nil
}

// Delete removes a conference together with its templates, abstracts and registrations.
func (s *ConferenceStore) Delete(ctx context.Context, id int64) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM conferences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting conference: %w", err)
	}
	return affectedOne(res, "deleting conference")
}

// TemplateStore implements store.TemplateStore using PostgreSQL.
type TemplateStore struct {
	base
}

const templateColumns = `id, conference_id, title, headline, body, theme, published, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*models.ConferenceTemplate, error) {
	t := &models.ConferenceTemplate{}
	err := row.Scan(&t.ID, &t.ConferenceID, &t.Title, &t.Headline, &t.Body, &t.Theme,
		&t.Published, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Create creates a new conference template.
func (s *TemplateStore) Create(ctx context.Context, t *models.ConferenceTemplate) error {
	query := `
		INSERT INTO conference_templates (conference_id, title, headline, body, theme, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		t.ConferenceID, t.Title, t.Headline, t.Body, t.Theme, t.Published, time.Now().UTC(),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return writeError("inserting template", err)
	}
	return nil
}

// Get retrieves a template by ID.
func (s *TemplateStore) Get(ctx context.Context, id int64) (*models.ConferenceTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM conference_templates WHERE id = $1`
	t, err := scanTemplate(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readError("querying template", err)
	}
	return t, nil
}

// List retrieves templates matching f in creation order.
func (s *TemplateStore) List(ctx context.Context, f store.TemplateFilter) ([]*models.ConferenceTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM conference_templates
		WHERE ($1::bigint = 0 OR conference_id = $1) AND (NOT $2::boolean OR published)
		ORDER BY id`

	rows, err := s.conn().QueryContext(ctx, query, f.ConferenceID, f.PublishedOnly)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	templates := []*models.ConferenceTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Update updates an existing template.
func (s *TemplateStore) Update(ctx context.Context, t *models.ConferenceTemplate) error {
	query := `
		UPDATE conference_templates
		SET conference_id = $1, title = $2, headline = $3, body = $4, theme = $5, published = $6, updated_at = $7
		WHERE id = $8
		RETURNING created_at, updated_at`

	err := s.conn().QueryRowContext(ctx, query,
		t.ConferenceID, t.Title, t.Headline, t.Body, t.Theme, t.Published, time.Now().UTC(), t.ID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return readError("updating template", err)
	}
	return nil
}

// Delete removes a template.
func (s *TemplateStore) Delete(ctx context.Context, id int64) error {
	res, err := s.conn().ExecContext(ctx, `DELETE FROM conference_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	return affectedOne(res, "deleting template")
}
