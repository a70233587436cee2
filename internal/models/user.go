package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Role represents a staff user's role in the back office.
type Role string

const (
	// RoleAdmin has every permission and manages subadmins.
	RoleAdmin Role = "admin"
	// RoleSubadmin is limited to its permission matrix.
	RoleSubadmin Role = "subadmin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSubadmin
}

// Module is a back-office area guarded by permissions.
type Module string

const (
	ModuleConferences   Module = "conferences"
	ModuleJournals      Module = "journals"
	ModuleTemplates     Module = "templates"
	ModuleManuscripts   Module = "manuscripts"
	ModuleAbstracts     Module = "abstracts"
	ModuleRegistrations Module = "registrations"
	ModuleApplicants    Module = "applicants"
)

// Action is an operation within a module.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// PermissionSet is a subadmin's permission matrix: module -> allowed actions.
type PermissionSet map[Module][]Action

// Allows reports whether the set grants action on module.
func (p PermissionSet) Allows(module Module, action Action) bool {
	return slices.Contains(p[module], action)
}

// Normalize sorts actions, removes duplicates and drops modules without actions.
func (p PermissionSet) Normalize() PermissionSet {
	out := make(PermissionSet, len(p))
	for m, actions := range p {
		a := slices.Clone(actions)
		slices.Sort(a)
		a = slices.Compact(a)
		if len(a) > 0 {
			out[m] = a
		}
	}
	return out
}

// Strings flattens the set to sorted "module:action" entries for storage.
func (p PermissionSet) Strings() []string {
	out := make([]string, 0, len(p)*2)
	for m, actions := range p {
		for _, a := range actions {
			out = append(out, string(m)+":"+string(a))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ParsePermissionSet rebuilds a set from "module:action" entries.
func ParsePermissionSet(entries []string) (PermissionSet, error) {
	p := make(PermissionSet)
	for _, e := range entries {
		m, a, ok := strings.Cut(e, ":")
		if !ok || m == "" || a == "" {
			return nil, fmt.Errorf("malformed permission %q", e)
		}
		p[Module(m)] = append(p[Module(m)], Action(a))
	}
	return p.Normalize(), nil
}

// User is a back-office account.
type User struct {
	ID           int64         `json:"-"`
	Email        string        `json:"email"`
	Name         string        `json:"name,omitempty"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	Permissions  PermissionSet `json:"permissions"`
	Active       bool          `json:"active"`
	// CreatedBy is the admin who created the account, 0 for the first admin.
	CreatedBy int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the required user fields.
func (u *User) Validate() error {
	if err := checkRequired(field{"email", u.Email}); err != nil {
		return err
	}
	if !u.Role.Valid() {
		return &InvalidError{Field: "role", Message: "must be admin or subadmin"}
	}
	return nil
}
