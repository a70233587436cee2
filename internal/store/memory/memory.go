// Package memory provides an in-memory implementation of the store interfaces.
// It backs local development (PORTAL_STORAGE=memory) and handler tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

// Store is an in-memory store.Store. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	// txMu serializes WithTx callers so check-then-write sequences run alone.
	txMu   sync.Mutex
	nextID int64
	now    func() time.Time

	journals      *table[models.Journal]
	conferences   *table[models.Conference]
	templates     *table[models.ConferenceTemplate]
	manuscripts   *table[models.Manuscript]
	abstracts     *table[models.Abstract]
	registrations *table[models.Registration]
	applicants    *table[models.Applicant]
	users         *table[models.User]
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		journals:      newTable(func(j *models.Journal) *models.Journal { c := *j; return &c }),
		conferences:   newTable(cloneConference),
		templates:     newTable(func(t *models.ConferenceTemplate) *models.ConferenceTemplate { c := *t; return &c }),
		manuscripts:   newTable(cloneManuscript),
		abstracts:     newTable(cloneAbstract),
		registrations: newTable(func(r *models.Registration) *models.Registration { c := *r; return &c }),
		applicants:    newTable(cloneApplicant),
		users:         newTable(cloneUser),
	}
}

func (s *Store) Journals() store.JournalStore           { return journalStore{s} }
func (s *Store) Conferences() store.ConferenceStore     { return conferenceStore{s} }
func (s *Store) Templates() store.TemplateStore         { return templateStore{s} }
func (s *Store) Manuscripts() store.ManuscriptStore     { return manuscriptStore{s} }
func (s *Store) Abstracts() store.AbstractStore         { return abstractStore{s} }
func (s *Store) Registrations() store.RegistrationStore { return registrationStore{s} }
func (s *Store) Applicants() store.ApplicantStore       { return applicantStore{s} }
func (s *Store) Users() store.UserStore                 { return userStore{s} }

// WithTx runs fn against the same store while no other WithTx call is in
// flight. Writes outside WithTx are not held back. There is no rollback.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(txStore{s})
}

// txStore is the view handed to a WithTx callback. Nested WithTx calls join
// the running one.
type txStore struct {
	*Store
}

func (t txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(t)
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// allocate returns the next key and the current time. Callers hold s.mu.
func (s *Store) allocate() (int64, time.Time) {
	s.nextID++
	return s.nextID, s.now()
}

// table holds copies of rows keyed by ID. Callers hold the Store lock.
type table[T any] struct {
	rows  map[int64]*T
	clone func(*T) *T
}

func newTable[T any](clone func(*T) *T) *table[T] {
	return &table[T]{rows: make(map[int64]*T), clone: clone}
}

func (t *table[T]) get(id int64) (*T, error) {
	row, ok := t.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t.clone(row), nil
}

func (t *table[T]) put(id int64, v *T) {
	t.rows[id] = t.clone(v)
}

func (t *table[T]) has(id int64) bool {
	_, ok := t.rows[id]
	return ok
}

func (t *table[T]) remove(id int64) error {
	if _, ok := t.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// list returns clones of the rows accepted by keep, ordered by ascending ID,
// or descending when newestFirst is set.
func (t *table[T]) list(keep func(*T) bool, newestFirst bool) []*T {
	ids := make([]int64, 0, len(t.rows))
	for id, row := range t.rows {
		if keep == nil || keep(row) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if newestFirst {
		slices.Reverse(ids)
	}

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.clone(t.rows[id]))
	}
	return out
}

func (t *table[T]) any(match func(*T) bool) bool {
	for _, row := range t.rows {
		if match(row) {
			return true
		}
	}
	return false
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneConference(c *models.Conference) *models.Conference {
	out := *c
	out.StartsOn = cloneTime(c.StartsOn)
	out.EndsOn = cloneTime(c.EndsOn)
	out.SubmissionDeadline = cloneTime(c.SubmissionDeadline)
	return &out
}

func cloneManuscript(m *models.Manuscript) *models.Manuscript {
	out := *m
	out.Keywords = slices.Clone(m.Keywords)
	return &out
}

func cloneAbstract(a *models.Abstract) *models.Abstract {
	out := *a
	out.Keywords = slices.Clone(a.Keywords)
	return &out
}

func cloneApplicant(a *models.Applicant) *models.Applicant {
	out := *a
	out.Expertise = slices.Clone(a.Expertise)
	return &out
}

func cloneUser(u *models.User) *models.User {
	out := *u
	out.Permissions = make(models.PermissionSet, len(u.Permissions))
	for m, actions := range u.Permissions {
		out.Permissions[m] = slices.Clone(actions)
	}
	return &out
}
