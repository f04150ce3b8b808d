// Package rbac implements the static role/permission model of the dashboard.
//
// The table is fixed configuration: six roles, nine permissions. Lookups are
// total — every role (including unknown ones) resolves to a permission set,
// so callers never need an error path for authorization checks.
package rbac

import "sort"

// Role identifies the clinical function of an authenticated user.
// Roles are issued by the auth backend and only change on re-authentication.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDoctor      Role = "doctor"
	RoleRadiologist Role = "radiologist"
	RoleTechnician  Role = "technician"
	RoleViewer      Role = "viewer"

	// RoleNone is the explicit "no role assigned" state. Callers that have no
	// authenticated role must pass RoleNone, never an empty string of their own.
	RoleNone Role = "no_role"
)

// Roles returns every defined role, RoleNone included.
func Roles() []Role {
	return []Role{RoleAdmin, RoleDoctor, RoleRadiologist, RoleTechnician, RoleViewer, RoleNone}
}

// Known reports whether r is one of the defined roles.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleRadiologist, RoleTechnician, RoleViewer, RoleNone:
		return true
	}
	return false
}

// Normalize maps unknown or empty roles to RoleNone.
func (r Role) Normalize() Role {
	if r.Known() {
		return r
	}
	return RoleNone
}

// Permission is a "<resource>:<action>" capability token.
// Permissions apply globally for a role; they are never parameterized.
type Permission string

const (
	PermPatientCreate Permission = "patient:create"
	PermPatientRead   Permission = "patient:read"
	PermPatientUpdate Permission = "patient:update"
	PermPatientDelete Permission = "patient:delete"

	PermPredictionCreate Permission = "prediction:create"
	PermPredictionRead   Permission = "prediction:read"
	PermPredictionUpdate Permission = "prediction:update"
	PermPredictionDelete Permission = "prediction:delete"
	PermPredictionReview Permission = "prediction:review"
)

// Permissions returns every defined permission.
func Permissions() []Permission {
	return []Permission{
		PermPatientCreate, PermPatientRead, PermPatientUpdate, PermPatientDelete,
		PermPredictionCreate, PermPredictionRead, PermPredictionUpdate,
		PermPredictionDelete, PermPredictionReview,
	}
}

// PermissionSet is either the full set (wildcard) or an explicit set.
// The wildcard is a typed variant rather than a sentinel value: a role
// holding All keeps every permission added in the future without a table edit.
type PermissionSet struct {
	all   bool
	perms map[Permission]struct{}
}

// AllPermissions returns the wildcard set.
func AllPermissions() PermissionSet {
	return PermissionSet{all: true}
}

// ExplicitPermissions returns a set containing exactly the given permissions.
func ExplicitPermissions(perms ...Permission) PermissionSet {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return PermissionSet{perms: m}
}

// All reports whether the set is the wildcard.
func (s PermissionSet) All() bool { return s.all }

// Contains reports whether p is in the set. The wildcard contains everything,
// defined or not.
func (s PermissionSet) Contains(p Permission) bool {
	if s.all {
		return true
	}
	_, ok := s.perms[p]
	return ok
}

// List returns the set's members in stable order. For the wildcard it returns
// every currently defined permission.
func (s PermissionSet) List() []Permission {
	if s.all {
		return Permissions()
	}
	out := make([]Permission, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// rolePermissions is the static authorization table. Every role has an entry;
// RoleNone maps to the empty set. Admin holds the wildcard.
var rolePermissions = map[Role]PermissionSet{
	RoleAdmin: AllPermissions(),
	RoleDoctor: ExplicitPermissions(
		PermPatientCreate,
		PermPatientRead,
		PermPredictionCreate,
		PermPredictionRead,
		PermPredictionReview,
	),
	RoleRadiologist: ExplicitPermissions(
		PermPatientRead,
		PermPredictionCreate,
		PermPredictionRead,
		PermPredictionUpdate,
		PermPredictionReview,
	),
	RoleTechnician: ExplicitPermissions(
		PermPatientCreate,
		PermPatientRead,
		PermPatientUpdate,
		PermPredictionCreate,
		PermPredictionRead,
	),
	RoleViewer: ExplicitPermissions(
		PermPatientRead,
		PermPredictionRead,
	),
	RoleNone: ExplicitPermissions(),
}

// PermissionsFor returns the permission set of a role.
// Unknown roles resolve to the empty set.
func PermissionsFor(role Role) PermissionSet {
	if set, ok := rolePermissions[role]; ok {
		return set
	}
	return rolePermissions[RoleNone]
}

// Has reports whether role holds the given permission.
func Has(role Role, p Permission) bool {
	return PermissionsFor(role).Contains(p)
}

// HasAll reports whether role holds every permission in perms.
// An empty list is vacuously true.
func HasAll(role Role, perms []Permission) bool {
	for _, p := range perms {
		if !Has(role, p) {
			return false
		}
	}
	return true
}

// HasAny reports whether role holds at least one permission in perms.
// An empty list is false: there is nothing present to satisfy "any".
func HasAny(role Role, perms []Permission) bool {
	for _, p := range perms {
		if Has(role, p) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role is the full-access role.
func IsAdmin(role Role) bool { return role == RoleAdmin }
