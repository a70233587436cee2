package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/papeesearch/portal/internal/api/errors"
)

// IDDecoder turns an opaque path token back into a database key.
type IDDecoder interface {
	DecodeInt(token string) (int64, bool)
}

type pathIDKey string

// DecodeID returns a middleware that decodes the named chi URL parameters.
// A parameter that is absent or fails to decode yields 404, the same answer a
// missing row gets, so clients cannot tell a forged token from a deleted record.
func DecodeID(codec IDDecoder, params ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, name := range params {
				id, ok := codec.DecodeInt(chi.URLParam(r, name))
				if !ok || id <= 0 {
					apierrors.WriteError(w, r, apierrors.NewNotFoundError("Resource not found"))
					return
				}
				ctx = context.WithValue(ctx, pathIDKey(name), id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PathID returns the key DecodeID stored for the named parameter, 0 if none.
func PathID(ctx context.Context, name string) int64 {
	if v, ok := ctx.Value(pathIDKey(name)).(int64); ok {
		return v
	}
	return 0
}
