// Package view decides what an authenticated role gets to see: route
// authorization decisions, permission-filtered dashboard composition and the
// per-role landing pages.
package view

import (
	"github.com/oculab/glaucoma-dashboard/internal/metrics"
	"github.com/oculab/glaucoma-dashboard/internal/rbac"
	"github.com/oculab/glaucoma-dashboard/internal/session"
)

// Decision is the outcome of a route authorization check.
type Decision int

const (
	// DecisionWait: session not yet initialized; show a loading state, this
	// is not a final answer.
	DecisionWait Decision = iota
	// DecisionRender: the caller may render the route.
	DecisionRender
	// DecisionRedirectToLogin: no authenticated session.
	DecisionRedirectToLogin
	// DecisionRedirectToFallback: authenticated but not allowed here. A
	// routing decision, not an error.
	DecisionRedirectToFallback
)

func (d Decision) String() string {
	switch d {
	case DecisionWait:
		return "wait"
	case DecisionRender:
		return "render"
	case DecisionRedirectToLogin:
		return "redirect_login"
	case DecisionRedirectToFallback:
		return "redirect_fallback"
	}
	return "unknown"
}

// Requirement gates a route. Zero value means "authenticated is enough".
// When several fields are set, all must hold.
type Requirement struct {
	// Permission the role must hold.
	Permission rbac.Permission
	// AnyOf is satisfied by any one of the listed permissions.
	AnyOf []rbac.Permission
	// Role restricts the route to one specific role.
	Role rbac.Role
}

func (r Requirement) satisfiedBy(role rbac.Role) bool {
	if r.Role != "" && role != r.Role {
		return false
	}
	if r.Permission != "" && !rbac.Has(role, r.Permission) {
		return false
	}
	if len(r.AnyOf) > 0 && !rbac.HasAny(role, r.AnyOf) {
		return false
	}
	return true
}

// AuthorizeRoute evaluates the rule chain in order: initialization first,
// authentication second, authorization last.
func AuthorizeRoute(sess session.Session, req Requirement) Decision {
	d := authorize(sess, req)
	metrics.AuthorizeDecisions.WithLabelValues(d.String()).Inc()
	return d
}

func authorize(sess session.Session, req Requirement) Decision {
	if !sess.IsInitialized {
		return DecisionWait
	}
	if !sess.IsAuthenticated {
		return DecisionRedirectToLogin
	}
	if !req.satisfiedBy(sess.Role) {
		return DecisionRedirectToFallback
	}
	return DecisionRender
}

// Gated is an item whose visibility may depend on a permission.
type Gated interface {
	// Requires returns the gating permission; empty means always visible.
	Requires() rbac.Permission
}

// FilterByPermission keeps ungated items and gated items whose permission the
// snapshot grants. Unknown permissions are never granted (fail closed).
func FilterByPermission[T Gated](items []T, features rbac.Features) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if p := it.Requires(); p != "" && !features.Can(p) {
			continue
		}
		out = append(out, it)
	}
	return out
}
