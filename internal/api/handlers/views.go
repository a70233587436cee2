package handlers

import "github.com/papeesearch/portal/internal/models"

// The view types below are what clients see: every key is replaced by a
// freshly issued token.

// JournalView is the JSON form of a journal.
type JournalView struct {
	ID string `json:"id"`
	*models.Journal
}

// ConferenceView is the JSON form of a conference.
type ConferenceView struct {
	ID        string `json:"id"`
	JournalID string `json:"journal_id,omitempty"`
	*models.Conference
}

// TemplateView is the JSON form of a conference template.
type TemplateView struct {
	ID           string `json:"id"`
	ConferenceID string `json:"conference_id"`
	*models.ConferenceTemplate
}

// ManuscriptView is the JSON form of a manuscript.
type ManuscriptView struct {
	ID        string `json:"id"`
	JournalID string `json:"journal_id"`
	*models.Manuscript
}

// AbstractView is the JSON form of an abstract.
type AbstractView struct {
	ID           string `json:"id"`
	ConferenceID string `json:"conference_id"`
	*models.Abstract
}

// RegistrationView is the JSON form of a registration.
type RegistrationView struct {
	ID           string `json:"id"`
	ConferenceID string `json:"conference_id"`
	*models.Registration
}

// ApplicantView is the JSON form of an applicant.
type ApplicantView struct {
	ID        string `json:"id"`
	JournalID string `json:"journal_id,omitempty"`
	*models.Applicant
}

// UserView is the JSON form of a back-office account.
type UserView struct {
	ID        string `json:"id"`
	CreatedBy string `json:"created_by,omitempty"`
	*models.User
}

// presenter renders models as views.
type presenter struct {
	codec IDCodec
}

// ref encodes an optional key, leaving 0 empty.
func (p presenter) ref(id int64) string {
	if id == 0 {
		return ""
	}
	return p.codec.EncodeInt(id)
}

func (p presenter) journal(j *models.Journal) JournalView {
	return JournalView{ID: p.codec.EncodeInt(j.ID), Journal: j}
}

func (p presenter) conference(c *models.Conference) ConferenceView {
	return ConferenceView{ID: p.codec.EncodeInt(c.ID), JournalID: p.ref(c.JournalID), Conference: c}
}

func (p presenter) template(t *models.ConferenceTemplate) TemplateView {
	return TemplateView{ID: p.codec.EncodeInt(t.ID), ConferenceID: p.ref(t.ConferenceID), ConferenceTemplate: t}
}

func (p presenter) manuscript(m *models.Manuscript) ManuscriptView {
	if m.Keywords == nil {
		m.Keywords = []string{}
	}
	return ManuscriptView{ID: p.codec.EncodeInt(m.ID), JournalID: p.ref(m.JournalID), Manuscript: m}
}

func (p presenter) abstract(a *models.Abstract) AbstractView {
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	return AbstractView{ID: p.codec.EncodeInt(a.ID), ConferenceID: p.ref(a.ConferenceID), Abstract: a}
}

func (p presenter) registration(r *models.Registration) RegistrationView {
	return RegistrationView{ID: p.codec.EncodeInt(r.ID), ConferenceID: p.ref(r.ConferenceID), Registration: r}
}

func (p presenter) applicant(a *models.Applicant) ApplicantView {
	if a.Expertise == nil {
		a.Expertise = []string{}
	}
	return ApplicantView{ID: p.codec.EncodeInt(a.ID), JournalID: p.ref(a.JournalID), Applicant: a}
}

func (p presenter) user(u *models.User) UserView {
	if u.Permissions == nil {
		u.Permissions = models.PermissionSet{}
	}
	return UserView{ID: p.codec.EncodeInt(u.ID), CreatedBy: p.ref(u.CreatedBy), User: u}
}

// mapViews renders a list with one of the presenter methods.
func mapViews[M any, V any](items []*M, render func(*M) V) []V {
	out := make([]V, 0, len(items))
	for _, item := range items {
		out = append(out, render(item))
	}
	return out
}
