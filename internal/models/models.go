// Package models provides data structures for the publishing portal.
//
// Entities carry their database key in an int64 ID field that is never
// serialised. The API layer renders keys as opaque tokens instead.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Reference prefixes for public submissions.
const (
	ReferencePrefixManuscript   = "MS"
	ReferencePrefixAbstract     = "AB"
	ReferencePrefixRegistration = "RG"
)

// Default statuses assigned when a record is created. Later values are
// whatever the back office stores; the server never moves records between them.
const (
	StatusSubmitted = "submitted"
	StatusPending   = "pending"
	StatusDraft     = "draft"
)

// RequiredError reports a missing mandatory field.
type RequiredError struct {
	Field string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// InvalidError reports a field holding a value outside its allowed set.
type InvalidError struct {
	Field   string
	Message string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

type field struct {
	name  string
	value string
}

// checkRequired returns a RequiredError for the first blank field.
func checkRequired(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &RequiredError{Field: f.name}
		}
	}
	return nil
}

// NewReference returns a human-quotable submission reference such as MS-1F2E3D4C.
func NewReference(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:8])
}

// CleanList trims entries, drops blanks and removes duplicates, keeping order.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
