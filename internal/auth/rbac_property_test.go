package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store/memory"
)

func newTestRBAC(t *testing.T) (*RBACService, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := NewService(&Config{JWTSecret: []byte("0123456789abcdef0123456789abcdef"), TokenExpiry: time.Hour}, nil)
	return NewRBACService(st, svc, nil, nil), st
}

// seedUser stores an account directly, skipping bcrypt to keep property runs fast.
func seedUser(t *testing.T, st *memory.Store, u *models.User) *models.User {
	t.Helper()
	if u.PasswordHash == "" {
		u.PasswordHash = "unused"
	}
	if err := st.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func genModule() gopter.Gen {
	return gen.OneConstOf(
		models.ModuleConferences, models.ModuleJournals, models.ModuleTemplates, models.ModuleManuscripts,
		models.ModuleAbstracts, models.ModuleRegistrations, models.ModuleApplicants,
	)
}

func genAction() gopter.Gen {
	return gen.OneConstOf(models.ActionView, models.ActionCreate, models.ActionUpdate, models.ActionDelete)
}

func genPermissionSet() gopter.Gen {
	return gen.MapOf(genModule(), gen.SliceOf(genAction())).Map(func(m map[models.Module][]models.Action) models.PermissionSet {
		return models.PermissionSet(m)
	})
}

// **Property: Admin Holds Every Permission**
// For any module and action, an active admin SHALL pass the permission check
// and an inactive admin SHALL fail it.
func TestAdminPermissions(t *testing.T) {
	rbac, st := newTestRBAC(t)
	ctx := context.Background()
	active := seedUser(t, st, &models.User{Email: "admin@example.com", Role: models.RoleAdmin, Active: true})
	inactive := seedUser(t, st, &models.User{Email: "old@example.com", Role: models.RoleAdmin, Active: false})

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("active admin passes, inactive admin fails", prop.ForAll(
		func(m models.Module, a models.Action) bool {
			return rbac.CheckPermission(ctx, active.ID, m, a) == nil &&
				errors.Is(rbac.CheckPermission(ctx, inactive.ID, m, a), ErrPermissionDenied)
		},
		genModule(), genAction(),
	))

	properties.TestingRun(t)
}

// **Property: Subadmin Permission Matrix**
// For any permission set and any (module, action), a subadmin SHALL pass the check
// exactly when the set grants that pair.
func TestSubadminPermissionMatrix(t *testing.T) {
	rbac, st := newTestRBAC(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	n := 0
	properties.Property("check(subadmin, m, a) succeeds iff p allows (m, a)", prop.ForAll(
		func(p models.PermissionSet, m models.Module, a models.Action) bool {
			n++
			u := seedUser(t, st, &models.User{
				Email:       fmt.Sprintf("sub%d@example.com", n),
				Role:        models.RoleSubadmin,
				Permissions: p,
				Active:      true,
			})
			err := rbac.CheckPermission(ctx, u.ID, m, a)
			if p.Allows(m, a) {
				return err == nil
			}
			return errors.Is(err, ErrPermissionDenied)
		},
		genPermissionSet(), genModule(), genAction(),
	))

	properties.TestingRun(t)
}

func TestCheckPermissionUnknownUser(t *testing.T) {
	rbac, _ := newTestRBAC(t)
	err := rbac.CheckPermission(context.Background(), 99, models.ModuleJournals, models.ActionView)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("CheckPermission(unknown) err=%v, want %v", err, ErrUserNotFound)
	}
}

func TestSetupOnlyOnce(t *testing.T) {
	rbac, _ := newTestRBAC(t)
	ctx := context.Background()

	open, err := rbac.CanSetup(ctx)
	if err != nil || !open {
		t.Fatalf("CanSetup() = %v, %v; want true", open, err)
	}

	admin, err := rbac.Setup(ctx, " admin@example.com ", "Ada", "s3cret-pass")
	if err != nil {
		t.Fatalf("Setup() err=%v", err)
	}
	if admin.Role != models.RoleAdmin || !admin.Active || admin.Email != "admin@example.com" {
		t.Fatalf("Setup() user = %+v", admin)
	}

	open, _ = rbac.CanSetup(ctx)
	if open {
		t.Fatal("CanSetup() still true after setup")
	}
	if _, err := rbac.Setup(ctx, "other@example.com", "", "s3cret-pass"); !errors.Is(err, ErrAlreadySetUp) {
		t.Fatalf("second Setup() err=%v, want %v", err, ErrAlreadySetUp)
	}
}

func TestConcurrentSetupCreatesOneAdmin(t *testing.T) {
	rbac, st := newTestRBAC(t)
	ctx := context.Background()

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = rbac.Setup(ctx, fmt.Sprintf("admin%d@example.com", i), "", "s3cret-pass")
		}(i)
	}
	wg.Wait()

	won := 0
	for i, err := range errs {
		switch {
		case err == nil:
			won++
		case !errors.Is(err, ErrAlreadySetUp):
			t.Fatalf("Setup(admin%d) err=%v, want nil or %v", i, err, ErrAlreadySetUp)
		}
	}
	if won != 1 {
		t.Fatalf("%d setups succeeded, want 1", won)
	}
	if n, err := st.Users().CountByRole(ctx, models.RoleAdmin); err != nil || n != 1 {
		t.Fatalf("CountByRole(admin) = %d, %v; want 1", n, err)
	}
}

func TestLogin(t *testing.T) {
	rbac, _ := newTestRBAC(t)
	ctx := context.Background()
	admin, err := rbac.Setup(ctx, "admin@example.com", "Ada", "s3cret-pass")
	if err != nil {
		t.Fatalf("Setup() err=%v", err)
	}

	token, user, err := rbac.Login(ctx, "ADMIN@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login() err=%v", err)
	}
	if user.ID != admin.ID || token == "" {
		t.Fatalf("Login() = %q, %+v", token, user)
	}
	claims, err := rbac.auth.ValidateToken(token)
	if err != nil || claims.UserID != admin.ID || claims.Role != models.RoleAdmin {
		t.Fatalf("token claims = %+v, %v", claims, err)
	}

	if _, _, err := rbac.Login(ctx, "admin@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(wrong password) err=%v, want %v", err, ErrInvalidCredentials)
	}
	if _, _, err := rbac.Login(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(unknown) err=%v, want %v", err, ErrInvalidCredentials)
	}
}

func TestSubadminLifecycle(t *testing.T) {
	rbac, _ := newTestRBAC(t)
	ctx := context.Background()
	admin, err := rbac.Setup(ctx, "admin@example.com", "Ada", "s3cret-pass")
	if err != nil {
		t.Fatalf("Setup() err=%v", err)
	}

	perms := models.PermissionSet{models.ModuleJournals: {models.ActionView, models.ActionView}}
	sub, err := rbac.CreateSubadmin(ctx, admin.ID, "ed@example.com", "Ed", "editor-pass", perms)
	if err != nil {
		t.Fatalf("CreateSubadmin() err=%v", err)
	}
	if sub.CreatedBy != admin.ID || len(sub.Permissions[models.ModuleJournals]) != 1 {
		t.Fatalf("CreateSubadmin() user = %+v", sub)
	}
	if _, err := rbac.CreateSubadmin(ctx, admin.ID, "ED@example.com", "", "editor-pass", nil); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("CreateSubadmin(duplicate) err=%v, want %v", err, ErrEmailTaken)
	}
	bad := models.PermissionSet{models.ModuleApplicants: {models.ActionCreate}}
	if _, err := rbac.CreateSubadmin(ctx, admin.ID, "x@example.com", "", "editor-pass", bad); !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("CreateSubadmin(bad perms) err=%v, want %v", err, ErrUnknownPermission)
	}

	updated, err := rbac.UpdatePermissions(ctx, sub.ID, models.PermissionSet{models.ModuleManuscripts: {models.ActionView}})
	if err != nil {
		t.Fatalf("UpdatePermissions() err=%v", err)
	}
	if updated.Permissions.Allows(models.ModuleJournals, models.ActionView) {
		t.Fatal("UpdatePermissions() kept the old grant")
	}
	if err := rbac.CheckPermission(ctx, sub.ID, models.ModuleManuscripts, models.ActionView); err != nil {
		t.Fatalf("CheckPermission after update err=%v", err)
	}
	if _, err := rbac.UpdatePermissions(ctx, admin.ID, nil); !errors.Is(err, ErrNotSubadmin) {
		t.Fatalf("UpdatePermissions(admin) err=%v, want %v", err, ErrNotSubadmin)
	}

	if _, err := rbac.SetActive(ctx, sub.ID, false); err != nil {
		t.Fatalf("SetActive() err=%v", err)
	}
	if err := rbac.CheckPermission(ctx, sub.ID, models.ModuleManuscripts, models.ActionView); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("CheckPermission(inactive) err=%v, want %v", err, ErrPermissionDenied)
	}
	if _, _, err := rbac.Login(ctx, "ed@example.com", "editor-pass"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("Login(inactive) err=%v, want %v", err, ErrAccountDisabled)
	}

	if err := rbac.RemoveSubadmin(ctx, admin.ID); !errors.Is(err, ErrCannotRemoveAdmin) {
		t.Fatalf("RemoveSubadmin(admin) err=%v, want %v", err, ErrCannotRemoveAdmin)
	}
	if err := rbac.RemoveSubadmin(ctx, sub.ID); err != nil {
		t.Fatalf("RemoveSubadmin() err=%v", err)
	}
	if err := rbac.RemoveSubadmin(ctx, sub.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("second RemoveSubadmin() err=%v, want %v", err, ErrUserNotFound)
	}

	list, _ := rbac.ListSubadmins(ctx)
	if len(list) != 0 {
		t.Fatalf("ListSubadmins() = %d entries, want 0", len(list))
	}
}
