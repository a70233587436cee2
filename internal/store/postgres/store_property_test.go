package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/internal/store"
)

func getTestDSN() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// setupTestStore opens the test database, resets it and applies the schema.
func setupTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := getTestDSN()
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("failed to ping database: %v", err)
	}

	for _, table := range []string{
		"users", "applicants", "registrations", "abstracts", "manuscripts",
		"conference_templates", "conferences", "journals",
	} {
		_, _ = db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE")
	}

	s := newStore(db, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return s
}

// genNonEmptyAlphaString generates a non-empty alpha string with length 1-63.
func genNonEmptyAlphaString() gopter.Gen {
	return gen.IntRange(1, 63).FlatMap(func(v interface{}) gopter.Gen {
		length := v.(int)
		return gen.SliceOfN(length, gen.AlphaChar()).Map(func(chars []rune) string {
			return string(chars)
		})
	}, reflect.TypeOf(""))
}

// genManuscriptInput generates a manuscript without ID, journal or timestamps.
func genManuscriptInput() gopter.Gen {
	return gopter.CombineGens(
		genNonEmptyAlphaString(),                  // Title
		gen.AlphaString(),                         // Abstract
		gen.SliceOfN(3, genNonEmptyAlphaString()), // Keywords
		genNonEmptyAlphaString(),                  // CorrespondingName
		genNonEmptyAlphaString(),                  // CorrespondingEmail
	).Map(func(vals []interface{}) models.Manuscript {
		return models.Manuscript{
			Title:              vals[0].(string),
			Abstract:           vals[1].(string),
			Keywords:           vals[2].([]string),
			CorrespondingName:  vals[3].(string),
			CorrespondingEmail: vals[4].(string),
			Status:             models.StatusSubmitted,
		}
	})
}

// **Property: Manuscript Persistence Round-Trip**
// For any manuscript, creating it and reading it back SHALL return the same fields,
// including the keyword array.
func TestManuscriptPersistenceRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	journal := &models.Journal{Title: "Round Trip Journal"}
	if err := s.Journals().Create(ctx, journal); err != nil {
		t.Fatalf("creating journal: %v", err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("get(create(m)) == m", prop.ForAll(
		func(m models.Manuscript) bool {
			m.JournalID = journal.ID
			m.Reference = models.NewReference(models.ReferencePrefixManuscript)
			if err := s.Manuscripts().Create(ctx, &m); err != nil {
				t.Logf("create: %v", err)
				return false
			}
			got, err := s.Manuscripts().Get(ctx, m.ID)
			if err != nil {
				t.Logf("get: %v", err)
				return false
			}
			return got.Title == m.Title &&
				got.Abstract == m.Abstract &&
				reflect.DeepEqual(got.Keywords, m.Keywords) &&
				got.Reference == m.Reference &&
				got.JournalID == journal.ID
		},
		genManuscriptInput(),
	))

	properties.TestingRun(t)
}

// **Property: Permission Matrix Persistence**
// For any permission set, storing a subadmin and reading it back SHALL return the normalized set.
func TestUserPermissionPersistence(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	genPerms := gen.MapOf(
		gen.OneConstOf(models.ModuleJournals, models.ModuleManuscripts, models.ModuleApplicants),
		gen.SliceOf(gen.OneConstOf(models.ActionView, models.ActionCreate, models.ActionUpdate, models.ActionDelete)),
	).Map(func(m map[models.Module][]models.Action) models.PermissionSet {
		return models.PermissionSet(m)
	})

	n := 0
	properties.Property("get(create(u)).Permissions == normalize(p)", prop.ForAll(
		func(p models.PermissionSet) bool {
			n++
			u := &models.User{
				Email:        fmt.Sprintf("sub%d@example.com", n),
				PasswordHash: "x",
				Role:         models.RoleSubadmin,
				Permissions:  p,
				Active:       true,
			}
			if err := s.Users().Create(ctx, u); err != nil {
				t.Logf("create: %v", err)
				return false
			}
			got, err := s.Users().Get(ctx, u.ID)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(got.Permissions, p.Normalize())
		},
		genPerms,
	))

	properties.TestingRun(t)
}

func TestStoreErrorsMapToSentinels(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.Journals().Get(ctx, 424242); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get(missing) err=%v, want %v", err, store.ErrNotFound)
	}
	if err := s.Journals().Delete(ctx, 424242); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Delete(missing) err=%v, want %v", err, store.ErrNotFound)
	}
	if err := s.Journals().Update(ctx, &models.Journal{ID: 424242, Title: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Update(missing) err=%v, want %v", err, store.ErrNotFound)
	}

	err := s.Abstracts().Create(ctx, &models.Abstract{
		ConferenceID: 424242, Reference: "AB-00000000", Title: "t", Body: "b",
		PresenterName: "p", PresenterEmail: "e", Status: models.StatusSubmitted,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Create(abstract, missing conference) err=%v, want %v", err, store.ErrNotFound)
	}

	admin := &models.User{Email: "root@example.com", PasswordHash: "x", Role: models.RoleAdmin, Active: true}
	if err := s.Users().Create(ctx, admin); err != nil {
		t.Fatalf("Create(admin) err=%v", err)
	}
	dup := &models.User{Email: "ROOT@example.com", PasswordHash: "x", Role: models.RoleSubadmin}
	if err := s.Users().Create(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("Create(duplicate email) err=%v, want %v", err, store.ErrDuplicate)
	}
	second := &models.User{Email: "second@example.com", PasswordHash: "x", Role: models.RoleAdmin, Active: true}
	if err := s.Users().Create(ctx, second); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("Create(second admin) err=%v, want %v", err, store.ErrDuplicate)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := s.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Journals().Create(ctx, &models.Journal{Title: "rolled back"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx err=%v, want %v", err, sentinel)
	}

	journals, err := s.Journals().List(ctx)
	if err != nil {
		t.Fatalf("List err=%v", err)
	}
	for _, j := range journals {
		if j.Title == "rolled back" {
			t.Fatal("journal created inside aborted transaction was committed")
		}
	}
}
