package models

import "time"

// Journal is a periodical accepting manuscript submissions.
type Journal struct {
	ID           int64     `json:"-"`
	Title        string    `json:"title"`
	Abbreviation string    `json:"abbreviation,omitempty"`
	ISSN         string    `json:"issn,omitempty"`
	EISSN        string    `json:"eissn,omitempty"`
	Description  string    `json:"description,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the required journal fields.
func (j *Journal) Validate() error {
	return checkRequired(field{"title", j.Title})
}

// Conference is an event accepting registrations and abstracts.
type Conference struct {
	ID int64 `json:"-"`
	// JournalID is the proceedings journal, 0 when none.
	JournalID          int64      `json:"-"`
	Name               string     `json:"name"`
	ShortName          string     `json:"short_name,omitempty"`
	Description        string     `json:"description,omitempty"`
	Venue              string     `json:"venue,omitempty"`
	StartsOn           *time.Time `json:"starts_on,omitempty"`
	EndsOn             *time.Time `json:"ends_on,omitempty"`
	SubmissionDeadline *time.Time `json:"submission_deadline,omitempty"`
	Status             string     `json:"status,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Validate checks the required conference fields.
func (c *Conference) Validate() error {
	return checkRequired(field{"name", c.Name})
}

// ConferenceTemplate is the content of a conference landing page.
type ConferenceTemplate struct {
	ID           int64     `json:"-"`
	ConferenceID int64     `json:"-"`
	Title        string    `json:"title"`
	Headline     string    `json:"headline,omitempty"`
	Body         string    `json:"body,omitempty"`
	Theme        string    `json:"theme,omitempty"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the required template fields.
func (t *ConferenceTemplate) Validate() error {
	if t.ConferenceID <= 0 {
		return &RequiredError{Field: "conference_id"}
	}
	return checkRequired(field{"title", t.Title})
}
