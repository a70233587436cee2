package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/papeesearch/portal/internal/api/errors"
	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/models"
	"github.com/papeesearch/portal/pkg/logger"
)

// Context keys for user information.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// RoleKey is the context key for the authenticated user's role.
	RoleKey contextKey = "role"

	requestInfoKey contextKey = "request_info"
)

// AccessTokenParam carries the bearer token for clients that cannot set
// headers, such as browser WebSocket connections.
const AccessTokenParam = "access_token"

// requestInfo is shared between RequestLogger and inner middleware.
type requestInfo struct {
	userID int64
}

func withRequestInfo(ctx context.Context, info *requestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) int64 {
	if v, ok := ctx.Value(UserIDKey).(int64); ok {
		return v
	}
	return 0
}

// GetRole extracts the user's role from the request context.
func GetRole(ctx context.Context) models.Role {
	if v, ok := ctx.Value(RoleKey).(models.Role); ok {
		return v
	}
	return ""
}

// WithUser returns a context carrying an authenticated user.
func WithUser(ctx context.Context, userID int64, role models.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	ctx = logger.ContextWithUserID(ctx, strconv.FormatInt(userID, 10))
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.userID = userID
	}
	return ctx
}

// AuthMiddleware handles JWT authentication for back-office routes.
type AuthMiddleware struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authService *auth.Service, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate is a middleware that validates the bearer token from the
// Authorization header, falling back to the access_token query parameter.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = r.URL.Query().Get(AccessTokenParam)
		}
		if token == "" {
			apierrors.WriteError(w, r, apierrors.NewUnauthorizedError("Missing authentication"))
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("JWT validation failed", "error", err)
			if errors.Is(err, auth.ErrExpiredToken) {
				apierrors.WriteError(w, r, apierrors.NewUnauthorizedError("Token has expired"))
				return
			}
			apierrors.WriteError(w, r, apierrors.NewUnauthorizedError("Invalid token"))
			return
		}

		ctx := WithUser(r.Context(), claims.UserID, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
