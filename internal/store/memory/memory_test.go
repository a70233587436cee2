package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

func TestStore_JournalLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	j := &models.Journal{Title: "Journal of Applied Things"}
	if err := s.Journals().Create(ctx, j); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if j.ID == 0 || j.CreatedAt.IsZero() {
		t.Fatalf("Create() did not assign id/timestamps: %+v", j)
	}

	j.Title = "Journal of Applied Stuff"
	if err := s.Journals().Update(ctx, j); err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	got, err := s.Journals().Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if got.Title != "Journal of Applied Stuff" {
		t.Fatalf("Get().Title=%q", got.Title)
	}

	if err := s.Journals().Delete(ctx, j.ID); err != nil {
		t.Fatalf("Delete() err=%v", err)
	}
	if _, err := s.Journals().Get(ctx, j.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get() after delete err=%v, want %v", err, store.ErrNotFound)
	}
	if err := s.Journals().Delete(ctx, j.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second Delete() err=%v, want %v", err, store.ErrNotFound)
	}
}

func TestStore_UpdateUnknownIsNotFound(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.Conferences().Update(context.Background(), &models.Conference{ID: 99, Name: "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Update() err=%v, want %v", err, store.ErrNotFound)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	j := &models.Journal{Title: "J"}
	_ = s.Journals().Create(ctx, j)

	m := &models.Manuscript{JournalID: j.ID, Reference: "MS-00000001", Title: "T", Keywords: []string{"a"}}
	if err := s.Manuscripts().Create(ctx, m); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	m.Keywords[0] = "mutated"

	got, _ := s.Manuscripts().Get(ctx, m.ID)
	if got.Keywords[0] != "a" {
		t.Fatalf("stored keywords changed through caller slice: %v", got.Keywords)
	}
	got.Title = "changed"
	again, _ := s.Manuscripts().Get(ctx, m.ID)
	if again.Title != "T" {
		t.Fatalf("stored title changed through returned value: %q", again.Title)
	}
}

func TestStore_SubmissionsRequireParentAndUniqueReference(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	if err := s.Abstracts().Create(ctx, &models.Abstract{ConferenceID: 7, Reference: "AB-1"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Create() without conference err=%v, want %v", err, store.ErrNotFound)
	}

	c := &models.Conference{Name: "C"}
	_ = s.Conferences().Create(ctx, c)
	if err := s.Abstracts().Create(ctx, &models.Abstract{ConferenceID: c.ID, Reference: "AB-1"}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if err := s.Abstracts().Create(ctx, &models.Abstract{ConferenceID: c.ID, Reference: "AB-1"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("Create() duplicate err=%v, want %v", err, store.ErrDuplicate)
	}
}

func TestStore_ListFiltersAndOrders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	c1 := &models.Conference{Name: "one"}
	c2 := &models.Conference{Name: "two"}
	_ = s.Conferences().Create(ctx, c1)
	_ = s.Conferences().Create(ctx, c2)

	for i, ref := range []string{"RG-1", "RG-2", "RG-3"} {
		conf := c1.ID
		if i == 1 {
			conf = c2.ID
		}
		if err := s.Registrations().Create(ctx, &models.Registration{ConferenceID: conf, Reference: ref}); err != nil {
			t.Fatalf("Create(%s) err=%v", ref, err)
		}
	}

	got, _ := s.Registrations().List(ctx, c1.ID)
	if len(got) != 2 || got[0].Reference != "RG-3" || got[1].Reference != "RG-1" {
		t.Fatalf("List(c1) = %v, want RG-3 then RG-1", refs(got))
	}
	all, _ := s.Registrations().List(ctx, 0)
	if len(all) != 3 {
		t.Fatalf("List(0) len=%d, want 3", len(all))
	}

	confs, _ := s.Conferences().List(ctx)
	if len(confs) != 2 || confs[0].Name != "one" {
		t.Fatalf("conferences not in creation order: %+v", confs)
	}
}

func TestStore_TemplateFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	c := &models.Conference{Name: "C"}
	_ = s.Conferences().Create(ctx, c)
	_ = s.Templates().Create(ctx, &models.ConferenceTemplate{ConferenceID: c.ID, Title: "draft"})
	_ = s.Templates().Create(ctx, &models.ConferenceTemplate{ConferenceID: c.ID, Title: "live", Published: true})

	got, _ := s.Templates().List(ctx, store.TemplateFilter{ConferenceID: c.ID, PublishedOnly: true})
	if len(got) != 1 || got[0].Title != "live" {
		t.Fatalf("published templates = %+v", got)
	}
	got, _ = s.Templates().List(ctx, store.TemplateFilter{})
	if len(got) != 2 {
		t.Fatalf("all templates len=%d, want 2", len(got))
	}
}

func TestStore_DeleteCascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	j := &models.Journal{Title: "J"}
	_ = s.Journals().Create(ctx, j)
	c := &models.Conference{Name: "C", JournalID: j.ID}
	_ = s.Conferences().Create(ctx, c)
	_ = s.Manuscripts().Create(ctx, &models.Manuscript{JournalID: j.ID, Reference: "MS-1"})
	_ = s.Abstracts().Create(ctx, &models.Abstract{ConferenceID: c.ID, Reference: "AB-1"})

	if err := s.Journals().Delete(ctx, j.ID); err != nil {
		t.Fatalf("Delete(journal) err=%v", err)
	}
	if ms, _ := s.Manuscripts().List(ctx, 0); len(ms) != 0 {
		t.Fatalf("manuscripts survived journal delete: %d", len(ms))
	}
	got, _ := s.Conferences().Get(ctx, c.ID)
	if got.JournalID != 0 {
		t.Fatalf("conference still points at deleted journal %d", got.JournalID)
	}

	if err := s.Conferences().Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete(conference) err=%v", err)
	}
	if as, _ := s.Abstracts().List(ctx, 0); len(as) != 0 {
		t.Fatalf("abstracts survived conference delete: %d", len(as))
	}
}

func TestStore_UserEmailIsUniqueCaseInsensitive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	admin := &models.User{Email: "Admin@Example.com", Role: models.RoleAdmin, Active: true}
	if err := s.Users().Create(ctx, admin); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if err := s.Users().Create(ctx, &models.User{Email: "admin@example.com", Role: models.RoleSubadmin}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("Create() duplicate err=%v, want %v", err, store.ErrDuplicate)
	}

	got, err := s.Users().GetByEmail(ctx, "ADMIN@example.COM")
	if err != nil || got.ID != admin.ID {
		t.Fatalf("GetByEmail() = %+v, %v", got, err)
	}

	n, _ := s.Users().CountByRole(ctx, models.RoleAdmin)
	if n != 1 {
		t.Fatalf("CountByRole(admin)=%d, want 1", n)
	}
}

func TestStore_UserPermissionsAreCopied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	u := &models.User{
		Email:       "sub@example.com",
		Role:        models.RoleSubadmin,
		Permissions: models.PermissionSet{models.ModuleJournals: {models.ActionView}},
	}
	_ = s.Users().Create(ctx, u)
	u.Permissions[models.ModuleJournals][0] = models.ActionDelete

	got, _ := s.Users().Get(ctx, u.ID)
	if !got.Permissions.Allows(models.ModuleJournals, models.ActionView) {
		t.Fatalf("stored permissions changed: %v", got.Permissions)
	}
}

func TestStore_ConcurrentCreates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for n := 0; n < 50; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Applicants().Create(ctx, &models.Applicant{Kind: models.ApplicantAuthor, FullName: "a", Email: "a@b"})
		}()
	}
	wg.Wait()

	got, _ := s.Applicants().List(ctx, models.ApplicantAuthor)
	if len(got) != 50 {
		t.Fatalf("List() len=%d, want 50", len(got))
	}
	seen := make(map[int64]bool)
	for _, a := range got {
		if seen[a.ID] {
			t.Fatalf("duplicate id %d", a.ID)
		}
		seen[a.ID] = true
	}
}

func refs(rs []*models.Registration) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Reference)
	}
	return out
}
