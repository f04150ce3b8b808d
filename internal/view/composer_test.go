package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oculab/glaucoma-dashboard/internal/rbac"
	"github.com/oculab/glaucoma-dashboard/internal/session"
)

func snapshot(role rbac.Role) session.Session {
	return session.Session{
		Role:            role,
		IsInitialized:   true,
		IsAuthenticated: true,
	}
}

func TestAuthorizeRoute_Order(t *testing.T) {
	// Initialization is checked before authentication, authentication before
	// authorization.
	uninitialized := session.Session{}
	assert.Equal(t, DecisionWait, AuthorizeRoute(uninitialized, Requirement{Permission: rbac.PermPatientRead}))

	unauthenticated := session.Session{IsInitialized: true}
	assert.Equal(t, DecisionRedirectToLogin, AuthorizeRoute(unauthenticated, Requirement{}))
}

func TestAuthorizeRoute_Decisions(t *testing.T) {
	cases := []struct {
		name string
		role rbac.Role
		req  Requirement
		want Decision
	}{
		{"authenticated, no requirement", rbac.RoleViewer, Requirement{}, DecisionRender},
		{"doctor holds patient:read", rbac.RoleDoctor, Requirement{Permission: rbac.PermPatientRead}, DecisionRender},
		{"doctor lacks patient:delete", rbac.RoleDoctor, Requirement{Permission: rbac.PermPatientDelete}, DecisionRedirectToFallback},
		{"admin wildcard covers delete", rbac.RoleAdmin, Requirement{Permission: rbac.PermPatientDelete}, DecisionRender},
		{"viewer fails any-of write set", rbac.RoleViewer, Requirement{AnyOf: []rbac.Permission{rbac.PermPatientCreate, rbac.PermPatientUpdate}}, DecisionRedirectToFallback},
		{"technician passes any-of write set", rbac.RoleTechnician, Requirement{AnyOf: []rbac.Permission{rbac.PermPatientCreate, rbac.PermPatientUpdate}}, DecisionRender},
		{"role-restricted route, wrong role", rbac.RoleDoctor, Requirement{Role: rbac.RoleAdmin}, DecisionRedirectToFallback},
		{"role-restricted route, right role", rbac.RoleAdmin, Requirement{Role: rbac.RoleAdmin}, DecisionRender},
		{"no role holds nothing", rbac.RoleNone, Requirement{Permission: rbac.PermPatientRead}, DecisionRedirectToFallback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AuthorizeRoute(snapshot(tc.role), tc.req))
		})
	}
}

func TestAuthorizeRoute_CombinedRequirement(t *testing.T) {
	// All set fields must hold, not any one of them.
	req := Requirement{
		Role:       rbac.RoleRadiologist,
		Permission: rbac.PermPredictionReview,
	}
	assert.Equal(t, DecisionRender, AuthorizeRoute(snapshot(rbac.RoleRadiologist), req))
	// Doctor holds prediction:review but is not the required role.
	assert.Equal(t, DecisionRedirectToFallback, AuthorizeRoute(snapshot(rbac.RoleDoctor), req))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "wait", DecisionWait.String())
	assert.Equal(t, "render", DecisionRender.String())
	assert.Equal(t, "redirect_login", DecisionRedirectToLogin.String())
	assert.Equal(t, "redirect_fallback", DecisionRedirectToFallback.String())
	assert.Equal(t, "unknown", Decision(99).String())
}

func TestFilterByPermission(t *testing.T) {
	items := []QuickAction{
		{Label: "always"},
		{Label: "read", Permission: rbac.PermPatientRead},
		{Label: "delete", Permission: rbac.PermPatientDelete},
		{Label: "bogus", Permission: rbac.Permission("report:export")},
	}

	t.Run("viewer keeps ungated and granted", func(t *testing.T) {
		got := FilterByPermission(items, rbac.FeaturesFor(rbac.RoleViewer))
		require.Len(t, got, 2)
		assert.Equal(t, "always", got[0].Label)
		assert.Equal(t, "read", got[1].Label)
	})

	t.Run("admin keeps all defined, unknown still dropped", func(t *testing.T) {
		got := FilterByPermission(items, rbac.FeaturesFor(rbac.RoleAdmin))
		require.Len(t, got, 3)
		for _, it := range got {
			assert.NotEqual(t, "bogus", it.Label)
		}
	})

	t.Run("no role keeps only ungated", func(t *testing.T) {
		got := FilterByPermission(items, rbac.FeaturesFor(rbac.RoleNone))
		require.Len(t, got, 1)
		assert.Equal(t, "always", got[0].Label)
	})
}

func TestLandingPath(t *testing.T) {
	cases := map[rbac.Role]string{
		rbac.RoleAdmin:       "/dashboard/admin",
		rbac.RoleDoctor:      "/dashboard/doctor",
		rbac.RoleRadiologist: "/dashboard/radiologist",
		rbac.RoleTechnician:  "/dashboard/technician",
		rbac.RoleViewer:      "/dashboard/viewer",
		rbac.RoleNone:        PathNoRoleLanding,
		// Unknown roles never panic and never reach a privileged page.
		rbac.Role("auditor"): PathNoRoleLanding,
	}
	for role, want := range cases {
		assert.Equal(t, want, LandingPath(role), "role %q", role)
		assert.Equal(t, want, FallbackPath(role), "fallback for role %q", role)
	}
}
