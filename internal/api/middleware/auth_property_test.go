package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/pkg/idtoken"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthService() *auth.Service {
	return auth.NewService(&auth.Config{JWTSecret: testSecret, TokenExpiry: time.Hour}, quietLogger())
}

// echoUser writes the user ID and role Authenticate placed in the context.
func echoUser(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"user_id": GetUserID(r.Context()),
		"role":    GetRole(r.Context()),
	})
}

// fakeChecker grants from a fixed user table without a store.
type fakeChecker struct {
	users map[int64]*models.User
}

func (f *fakeChecker) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeChecker) CheckPermission(ctx context.Context, id int64, m models.Module, a models.Action) error {
	u, err := f.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return auth.CheckUserPermission(u, m, a)
}

// **Property: Authenticated Identity Reaches Handlers**
// For any user and role, a request carrying a token issued for them, either
// as a bearer header or as the access_token query parameter, SHALL reach the
// handler with that user ID and role in its context.
func TestAuthenticatePropagatesIdentity(t *testing.T) {
	svc := newAuthService()
	handler := NewAuthMiddleware(svc, quietLogger()).Authenticate(http.HandlerFunc(echoUser))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("token identity is visible downstream", prop.ForAll(
		func(userID int64, role models.Role, viaQuery bool) bool {
			token, err := svc.GenerateToken(&models.User{ID: userID, Role: role})
			if err != nil {
				return false
			}

			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if viaQuery {
				req = httptest.NewRequest(http.MethodGet, "/v1/feed/ws?"+AccessTokenParam+"="+token, nil)
			} else {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				return false
			}

			var body struct {
				UserID int64       `json:"user_id"`
				Role   models.Role `json:"role"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				return false
			}
			return body.UserID == userID && body.Role == role
		},
		gen.Int64Range(1, 1<<40),
		gen.OneConstOf(models.RoleAdmin, models.RoleSubadmin),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	handler := NewAuthMiddleware(newAuthService(), quietLogger()).Authenticate(http.HandlerFunc(echoUser))

	foreign := auth.NewService(&auth.Config{JWTSecret: []byte("another-secret-another-secret-000"), TokenExpiry: time.Hour}, nil)
	forged, _ := foreign.GenerateToken(&models.User{ID: 1, Role: models.RoleAdmin})

	for name, header := range map[string]string{
		"missing": "",
		"garbage": "Bearer not-a-jwt",
		"foreign": "Bearer " + forged,
		"basic":   "Basic dXNlcjpwdw==",
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rr.Code)
			continue
		}
		var body map[string]any
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body["code"] != "UNAUTHORIZED" {
			t.Errorf("%s: body = %v, err=%v", name, body, err)
		}
	}
}

// **Property: Permission Gate Matches The Matrix**
// For any permission set, a subadmin request SHALL pass RequirePermission for
// (module, action) exactly when the set allows it, and be answered 403 otherwise.
func TestRequirePermissionMatrix(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genModule := gen.OneConstOf(models.ModuleConferences, models.ModuleJournals, models.ModuleManuscripts, models.ModuleApplicants)
	genAction := gen.OneConstOf(models.ActionView, models.ActionCreate, models.ActionUpdate, models.ActionDelete)

	properties.Property("gate opens iff the set allows", prop.ForAll(
		func(granted []models.Action, m models.Module, a models.Action) bool {
			perms := models.PermissionSet{m: granted}
			checker := &fakeChecker{users: map[int64]*models.User{
				7: {ID: 7, Role: models.RoleSubadmin, Active: true, Permissions: perms},
			}}
			handler := RequirePermission(checker, m, a, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithUser(req.Context(), 7, models.RoleSubadmin))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if perms.Allows(m, a) {
				return rr.Code == http.StatusNoContent
			}
			return rr.Code == http.StatusForbidden
		},
		gen.SliceOf(genAction), genModule, genAction,
	))

	properties.TestingRun(t)
}

func TestRequireAdmin(t *testing.T) {
	checker := &fakeChecker{users: map[int64]*models.User{
		1: {ID: 1, Role: models.RoleAdmin, Active: true},
		2: {ID: 2, Role: models.RoleSubadmin, Active: true, Permissions: models.PermissionSet{models.ModuleJournals: {models.ActionView}}},
		3: {ID: 3, Role: models.RoleAdmin, Active: false},
	}}
	handler := RequireAdmin(checker, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[int64]int{
		1:  http.StatusNoContent,
		2:  http.StatusForbidden,
		3:  http.StatusForbidden,
		99: http.StatusUnauthorized,
		0:  http.StatusUnauthorized,
	}
	for id, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/subadmins", nil)
		if id != 0 {
			req = req.WithContext(WithUser(req.Context(), id, models.RoleAdmin))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Errorf("user %d: status = %d, want %d", id, rr.Code, want)
		}
	}
}

// **Property: Path Tokens Decode To Keys**
// For any positive key, a route guarded by DecodeID SHALL see the key behind a
// freshly issued token, and an undecodable token SHALL be answered 404.
func TestDecodeIDProperty(t *testing.T) {
	codec, err := idtoken.New(idtoken.Config{Secret: "decode-id-test-secret"}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	r.Route("/journals/{journalID}", func(r chi.Router) {
		r.Use(DecodeID(codec, "journalID"))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(PathID(r.Context(), "journalID"))
		})
	})

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("token decodes to its key", prop.ForAll(
		func(id int64) bool {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/journals/"+codec.EncodeInt(id)+"/", nil))
			var got int64
			return rr.Code == http.StatusOK && json.NewDecoder(rr.Body).Decode(&got) == nil && got == id
		},
		gen.Int64Range(1, 1<<53),
	))

	properties.Property("garbage tokens are not found", prop.ForAll(
		func(s string) bool {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/journals/x"+s+"/", nil))
			return rr.Code == http.StatusNotFound
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)

	// Zero is a valid identifier for the codec but never a database key.
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/journals/"+codec.EncodeInt(0)+"/", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("token for 0: status = %d, want 404", rr.Code)
	}
}

func TestRecoveryWritesStructuredError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := chimiddleware.RequestID(Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["code"] != "INTERNAL_ERROR" || body["request_id"] == "" {
		t.Fatalf("body = %v", body)
	}
	if !strings.Contains(logs.String(), "panic recovered") || !strings.Contains(logs.String(), "stack_trace") {
		t.Fatalf("log output = %s", logs.String())
	}
}

func TestRequestLoggerRecordsUser(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	svc := newAuthService()
	token, _ := svc.GenerateToken(&models.User{ID: 42, Role: models.RoleAdmin})

	handler := RequestLogger(logger)(NewAuthMiddleware(svc, quietLogger()).Authenticate(http.HandlerFunc(echoUser)))
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("decoding log line: %v (%s)", err, logs.String())
	}
	if entry["msg"] != "request completed" || entry["user_id"] != float64(42) || entry["status"] != float64(200) {
		t.Fatalf("log entry = %v", entry)
	}
}
