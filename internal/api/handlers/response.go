// Package handlers provides HTTP request handlers for the portal API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/papeesearch/portal/internal/api/errors"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// IDCodec converts database keys to opaque tokens and back.
type IDCodec interface {
	EncodeInt(id int64) string
	DecodeInt(token string) (int64, bool)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	apierrors.WriteJSON(w, status, data)
}

// WriteError answers with the API error matching err. Errors the API does
// not recognise are logged with msg and reported as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, msg string, attrs ...any) {
	apiErr, known := apierrors.FromError(err)
	if !known {
		logger.Error(msg, append(attrs, "error", err)...)
	}
	apierrors.WriteError(w, r, apiErr)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	apierrors.WriteError(w, r, apierrors.NewNotFoundError(message))
}

// WriteBadRequest writes a 400 response naming the offending field.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, field, message string) {
	apierrors.WriteError(w, r, apierrors.AddFieldError(field, message).ToAPIError())
}

// DecodeJSON reads a JSON body into dst, answering 400 when it is malformed.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		apierrors.WriteError(w, r, apierrors.NewValidationError(msg))
		return false
	}
	return true
}

// errUnknownReference marks a body or query token that did not decode.
var errUnknownReference = apierrors.NewNotFoundError("Referenced resource not found")

// decodeRef decodes an optional token from a body or query field.
// An empty token yields 0; an undecodable one is reported as not found.
func decodeRef(codec IDCodec, token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	id, ok := codec.DecodeInt(token)
	if !ok || id <= 0 {
		return 0, errUnknownReference
	}
	return id, nil
}
