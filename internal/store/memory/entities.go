package memory

import (
	"context"
	"strings"

	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

type journalStore struct{ s *Store }

func (r journalStore) Create(ctx context.Context, j *models.Journal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j.ID, j.CreatedAt = r.s.allocate()
	j.UpdatedAt = j.CreatedAt
	r.s.journals.put(j.ID, j)
	return nil
}

func (r journalStore) Get(ctx context.Context, id int64) (*models.Journal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.journals.get(id)
}

func (r journalStore) List(ctx context.Context) ([]*models.Journal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.journals.list(nil, false), nil
}

func (r journalStore) Update(ctx context.Context, j *models.Journal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, err := r.s.journals.get(j.ID)
	if err != nil {
		return err
	}
	j.CreatedAt = existing.CreatedAt
	j.UpdatedAt = r.s.now()
	r.s.journals.put(j.ID, j)
	return nil
}

// Delete removes the journal and its manuscripts. Conferences and applicants
// pointing at it are detached.
func (r journalStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.journals.remove(id); err != nil {
		return err
	}
	for mid, m := range r.s.manuscripts.rows {
		if m.JournalID == id {
			delete(r.s.manuscripts.rows, mid)
		}
	}
	for _, c := range r.s.conferences.rows {
		if c.JournalID == id {
			c.JournalID = 0
		}
	}
	for _, a := range r.s.applicants.rows {
		if a.JournalID == id {
			a.JournalID = 0
		}
	}
	return nil
}

type conferenceStore struct{ s *Store }

func (r conferenceStore) Create(ctx context.Context, c *models.Conference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.JournalID != 0 && !r.s.journals.has(c.JournalID) {
		return store.ErrNotFound
	}
	c.ID, c.CreatedAt = r.s.allocate()
	c.UpdatedAt = c.CreatedAt
	r.s.conferences.put(c.ID, c)
	return nil
}

func (r conferenceStore) Get(ctx context.Context, id int64) (*models.Conference, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.conferences.get(id)
}

func (r conferenceStore) List(ctx context.Context) ([]*models.Conference, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.conferences.list(nil, false), nil
}

func (r conferenceStore) Update(ctx context.Context, c *models.Conference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, err := r.s.conferences.get(c.ID)
	if err != nil {
		return err
	}
	if c.JournalID != 0 && !r.s.journals.has(c.JournalID) {
		return store.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.s.now()
	r.s.conferences.put(c.ID, c)
	return nil
}

// Delete removes the conference and its templates, abstracts and registrations.
func (r conferenceStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.conferences.remove(id); err != nil {
		return err
	}
	for tid, t := range r.s.templates.rows {
		if t.ConferenceID == id {
			delete(r.s.templates.rows, tid)
		}
	}
	for aid, a := range r.s.abstracts.rows {
		if a.ConferenceID == id {
			delete(r.s.abstracts.rows, aid)
		}
	}
	for rid, reg := range r.s.registrations.rows {
		if reg.ConferenceID == id {
			delete(r.s.registrations.rows, rid)
		}
	}
	return nil
}

type templateStore struct{ s *Store }

func (r templateStore) Create(ctx context.Context, t *models.ConferenceTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.conferences.has(t.ConferenceID) {
		return store.ErrNotFound
	}
	t.ID, t.CreatedAt = r.s.allocate()
	t.UpdatedAt = t.CreatedAt
	r.s.templates.put(t.ID, t)
	return nil
}

func (r templateStore) Get(ctx context.Context, id int64) (*models.ConferenceTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.templates.get(id)
}

func (r templateStore) List(ctx context.Context, f store.TemplateFilter) ([]*models.ConferenceTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.templates.list(func(t *models.ConferenceTemplate) bool {
		if f.ConferenceID != 0 && t.ConferenceID != f.ConferenceID {
			return false
		}
		return !f.PublishedOnly || t.Published
	}, false), nil
}

func (r templateStore) Update(ctx context.Context, t *models.ConferenceTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, err := r.s.templates.get(t.ID)
	if err != nil {
		return err
	}
	if !r.s.conferences.has(t.ConferenceID) {
		return store.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = r.s.now()
	r.s.templates.put(t.ID, t)
	return nil
}

func (r templateStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.templates.remove(id)
}

type manuscriptStore struct{ s *Store }

func (r manuscriptStore) Create(ctx context.Context, m *models.Manuscript) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.journals.has(m.JournalID) {
		return store.ErrNotFound
	}
	if r.s.manuscripts.any(func(x *models.Manuscript) bool { return x.Reference == m.Reference }) {
		return store.ErrDuplicate
	}
	m.ID, m.CreatedAt = r.s.allocate()
	m.UpdatedAt = m.CreatedAt
	r.s.manuscripts.put(m.ID, m)
	return nil
}

func (r manuscriptStore) Get(ctx context.Context, id int64) (*models.Manuscript, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.manuscripts.get(id)
}

func (r manuscriptStore) List(ctx context.Context, journalID int64) ([]*models.Manuscript, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.manuscripts.list(func(m *models.Manuscript) bool {
		return journalID == 0 || m.JournalID == journalID
	}, true), nil
}

func (r manuscriptStore) Update(ctx context.Context, m *models.Manuscript) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, err := r.s.manuscripts.get(m.ID)
	if err != nil {
		return err
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = r.s.now()
	r.s.manuscripts.put(m.ID, m)
	return nil
}

func (r manuscriptStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.manuscripts.remove(id)
}

type abstractStore struct{ s *Store }

func (r abstractStore) Create(ctx context.Context, a *models.Abstract) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.conferences.has(a.ConferenceID) {
		return store.ErrNotFound
	}
	if r.s.abstracts.any(func(x *models.Abstract) bool { return x.Reference == a.Reference }) {
		return store.ErrDuplicate
	}
	a.ID, a.CreatedAt = r.s.allocate()
	a.UpdatedAt = a.CreatedAt
	r.s.abstracts.put(a.ID, a)
	return nil
}

func (r abstractStore) Get(ctx context.Context, id int64) (*models.Abstract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.abstracts.get(id)
}

func (r abstractStore) List(ctx context.Context, conferenceID int64) ([]*models.Abstract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.abstracts.list(func(a *models.Abstract) bool {
		return conferenceID == 0 || a.ConferenceID == conferenceID
	}, true), nil
}

func (r abstractStore) Update(ctx context.Context, a *models.Abstract) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, err := r.s.abstracts.get(a.ID)
	if err != nil {
		return err
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = r.s.now()
	r.s.abstracts.put(a.ID, a)
	return nil
}

func (r abstractStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.abstracts.remove(id)
}

type registrationStore struct{ s *Store }

func (r registrationStore) Create(ctx context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.conferences.has(reg.ConferenceID) {
		return store.ErrNotFound
	}
	if r.s.registrations.any(func(x *models.Registration) bool { return x.Reference == reg.Reference }) {
		return store.ErrDuplicate
	}
	reg.ID, reg.CreatedAt = r.s.allocate()
	reg.UpdatedAt = reg.CreatedAt
	r.s.registrations.put(reg.ID, reg)
	return nil
}

func (r registrationStore) Get(ctx context.Context, id int64) (*models.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.registrations.get(id)
}

func (r registrationStore) List(ctx context.Context, conferenceID int64) ([]*models.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.registrations.list(func(reg *models.Registration) bool {
		return conferenceID == 0 || reg.ConferenceID == conferenceID
	}, true), nil
}

func (r registrationStore) Update(ctx context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, err := r.s.registrations.get(reg.ID)
	if err != nil {
		return err
	}
	reg.CreatedAt = existing.CreatedAt
	reg.UpdatedAt = r.s.now()
	r.s.registrations.put(reg.ID, reg)
	return nil
}

func (r registrationStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.registrations.remove(id)
}

type applicantStore struct{ s *Store }

func (r applicantStore) Create(ctx context.Context, a *models.Applicant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.JournalID != 0 && !r.s.journals.has(a.JournalID) {
		return store.ErrNotFound
	}
	a.ID, a.CreatedAt = r.s.allocate()
	a.UpdatedAt = a.CreatedAt
	r.s.applicants.put(a.ID, a)
	return nil
}

func (r applicantStore) Get(ctx context.Context, id int64) (*models.Applicant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.applicants.get(id)
}

func (r applicantStore) List(ctx context.Context, kind models.ApplicantKind) ([]*models.Applicant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.applicants.list(func(a *models.Applicant) bool {
		return kind == "" || a.Kind == kind
	}, true), nil
}

func (r applicantStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.applicants.remove(id)
}

type userStore struct{ s *Store }

func (r userStore) emailTaken(email string, except int64) bool {
	return r.s.users.any(func(u *models.User) bool {
		return u.ID != except && strings.EqualFold(u.Email, email)
	})
}

func (r userStore) Create(ctx context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(u.Email, 0) {
		return store.ErrDuplicate
	}
	u.ID, u.CreatedAt = r.s.allocate()
	u.UpdatedAt = u.CreatedAt
	r.s.users.put(u.ID, u)
	return nil
}

func (r userStore) Get(ctx context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.users.get(id)
}

func (r userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for id, u := range r.s.users.rows {
		if strings.EqualFold(u.Email, email) {
			return r.s.users.get(id)
		}
	}
	return nil, store.ErrNotFound
}

func (r userStore) List(ctx context.Context, role models.Role) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.users.list(func(u *models.User) bool {
		return role == "" || u.Role == role
	}, false), nil
}

func (r userStore) Update(ctx context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, err := r.s.users.get(u.ID)
	if err != nil {
		return err
	}
	if r.emailTaken(u.Email, u.ID) {
		return store.ErrDuplicate
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = r.s.now()
	r.s.users.put(u.ID, u)
	return nil
}

func (r userStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.users.remove(id)
}

func (r userStore) CountByRole(ctx context.Context, role models.Role) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, u := range r.s.users.rows {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}
