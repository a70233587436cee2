package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/papeesearch/portal/internal/api/errors"
	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/models"
)

// PermissionChecker answers back-office permission questions.
type PermissionChecker interface {
	CheckPermission(ctx context.Context, userID int64, module models.Module, action models.Action) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// RequirePermission returns a middleware that lets the request through only
// when the authenticated user may perform action on module.
func RequirePermission(checker PermissionChecker, module models.Module, action models.Action, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == 0 {
				apierrors.WriteError(w, r, apierrors.NewUnauthorizedError("Authentication required"))
				return
			}

			if err := checker.CheckPermission(r.Context(), userID, module, action); err != nil {
				writeAccessError(w, r, logger, err,
					"user_id", userID, "module", module, "action", action)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns a middleware restricted to active admin accounts.
func RequireAdmin(checker PermissionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == 0 {
				apierrors.WriteError(w, r, apierrors.NewUnauthorizedError("Authentication required"))
				return
			}

			user, err := checker.GetUser(r.Context(), userID)
			if err == nil && (user.Role != models.RoleAdmin || !user.Active) {
				err = auth.ErrPermissionDenied
			}
			if err != nil {
				writeAccessError(w, r, logger, err, "user_id", userID, "required_role", models.RoleAdmin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeAccessError answers a failed check. A token whose account has since
// been deleted is treated as unauthenticated.
func writeAccessError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, attrs ...any) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		apierrors.WriteError(w, r, apierrors.NewUnauthorizedError("Account no longer exists"))
	case errors.Is(err, auth.ErrPermissionDenied):
		logger.Debug("permission denied", attrs...)
		apierrors.WriteError(w, r, apierrors.NewForbiddenError("Permission denied"))
	default:
		logger.Error("permission check failed", append(attrs, "error", err)...)
		apierrors.WriteError(w, r, apierrors.NewInternalError("Failed to check permissions"))
	}
}
