package models

import "time"

// Manuscript is a paper submitted to a journal.
type Manuscript struct {
	ID                 int64     `json:"-"`
	JournalID          int64     `json:"-"`
	Reference          string    `json:"reference"`
	Title              string    `json:"title"`
	Abstract           string    `json:"abstract,omitempty"`
	Keywords           []string  `json:"keywords"`
	Authors            string    `json:"authors,omitempty"`
	CorrespondingName  string    `json:"corresponding_name"`
	CorrespondingEmail string    `json:"corresponding_email"`
	ManuscriptURL      string    `json:"manuscript_url,omitempty"`
	Status             string    `json:"status"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate checks the required manuscript fields.
func (m *Manuscript) Validate() error {
	if m.JournalID <= 0 {
		return &RequiredError{Field: "journal_id"}
	}
	return checkRequired(
		field{"title", m.Title},
		field{"corresponding_name", m.CorrespondingName},
		field{"corresponding_email", m.CorrespondingEmail},
	)
}

// Abstract is a talk or poster proposal for a conference.
type Abstract struct {
	ID               int64     `json:"-"`
	ConferenceID     int64     `json:"-"`
	Reference        string    `json:"reference"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	Keywords         []string  `json:"keywords"`
	PresenterName    string    `json:"presenter_name"`
	PresenterEmail   string    `json:"presenter_email"`
	Affiliation      string    `json:"affiliation,omitempty"`
	PresentationType string    `json:"presentation_type,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks the required abstract fields.
func (a *Abstract) Validate() error {
	if a.ConferenceID <= 0 {
		return &RequiredError{Field: "conference_id"}
	}
	return checkRequired(
		field{"title", a.Title},
		field{"body", a.Body},
		field{"presenter_name", a.PresenterName},
		field{"presenter_email", a.PresenterEmail},
	)
}

// Registration is a conference attendance booking.
type Registration struct {
	ID             int64     `json:"-"`
	ConferenceID   int64     `json:"-"`
	Reference      string    `json:"reference"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Affiliation    string    `json:"affiliation,omitempty"`
	Country        string    `json:"country,omitempty"`
	Category       string    `json:"category,omitempty"`
	AttendanceMode string    `json:"attendance_mode,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the required registration fields.
func (r *Registration) Validate() error {
	if r.ConferenceID <= 0 {
		return &RequiredError{Field: "conference_id"}
	}
	return checkRequired(
		field{"full_name", r.FullName},
		field{"email", r.Email},
	)
}

// ApplicantKind distinguishes editor and author sign-ups.
type ApplicantKind string

const (
	ApplicantEditor ApplicantKind = "editor"
	ApplicantAuthor ApplicantKind = "author"
)

// Valid reports whether k is a known applicant kind.
func (k ApplicantKind) Valid() bool {
	return k == ApplicantEditor || k == ApplicantAuthor
}

// Applicant is an editor or author sign-up from the public site.
type Applicant struct {
	ID          int64         `json:"-"`
	Kind        ApplicantKind `json:"kind"`
	FullName    string        `json:"full_name"`
	Email       string        `json:"email"`
	Affiliation string        `json:"affiliation,omitempty"`
	Expertise   []string      `json:"expertise"`
	// JournalID is the journal applied to, 0 when unspecified.
	JournalID int64     `json:"-"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the required applicant fields.
func (a *Applicant) Validate() error {
	if err := checkRequired(field{"kind", string(a.Kind)}); err != nil {
		return err
	}
	if !a.Kind.Valid() {
		return &InvalidError{Field: "kind", Message: "must be editor or author"}
	}
	return checkRequired(
		field{"full_name", a.FullName},
		field{"email", a.Email},
	)
}
