package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oculab/glaucoma-dashboard/internal/rbac"
)

func TestCompose_AdminSeesEverything(t *testing.T) {
	d := Compose(rbac.RoleAdmin, Stats{TotalPatients: 12, TotalPredictions: 40, ActiveUsers: 5, HighRiskCases: 3})

	assert.Equal(t, "Admin Dashboard", d.Title)
	assert.Equal(t, "/dashboard/admin", d.LandingPath)
	require.Len(t, d.Stats, 4)
	assert.Equal(t, "12", d.Stats[0].Value)
	// Admin holds the wildcard, so no action or nav entry drops out.
	assert.Len(t, d.QuickActions, 4)
	assert.Len(t, d.Navigation, 3)
	for _, p := range d.Permissions {
		assert.True(t, p.Granted, "admin missing %s", p.Permission)
	}
}

func TestCompose_ViewerIsReadOnly(t *testing.T) {
	d := Compose(rbac.RoleViewer, Stats{})

	assert.Equal(t, "Viewer Dashboard", d.Title)
	for _, a := range d.QuickActions {
		assert.Contains(t, []rbac.Permission{rbac.PermPatientRead, rbac.PermPredictionRead}, a.Permission)
	}
	granted := map[rbac.Permission]bool{}
	for _, p := range d.Permissions {
		granted[p.Permission] = p.Granted
	}
	assert.True(t, granted[rbac.PermPatientRead])
	assert.False(t, granted[rbac.PermPatientCreate])
	assert.False(t, granted[rbac.PermPredictionReview])
}

func TestCompose_TechnicianCannotReview(t *testing.T) {
	d := Compose(rbac.RoleTechnician, Stats{})

	for _, a := range d.QuickActions {
		assert.NotEqual(t, rbac.PermPredictionReview, a.Permission)
	}
	// Full nav: technician reads both patients and predictions.
	assert.Len(t, d.Navigation, 3)
}

func TestCompose_NoRole(t *testing.T) {
	d := Compose(rbac.RoleNone, Stats{})

	assert.Equal(t, PathNoRoleLanding, d.LandingPath)
	assert.Empty(t, d.Stats)
	assert.Empty(t, d.QuickActions)
	// Only the ungated Dashboard entry survives.
	require.Len(t, d.Navigation, 1)
	assert.Equal(t, "/dashboard", d.Navigation[0].Href)
	for _, p := range d.Permissions {
		assert.False(t, p.Granted)
	}
}

func TestCompose_UnknownRoleNormalizes(t *testing.T) {
	d := Compose(rbac.Role("superuser"), Stats{})

	assert.Equal(t, rbac.RoleNone, d.Role)
	assert.Equal(t, PathNoRoleLanding, d.LandingPath)
	assert.Empty(t, d.QuickActions)
}

func TestCompose_ChecklistCoversAllPermissions(t *testing.T) {
	d := Compose(rbac.RoleDoctor, Stats{})
	require.Len(t, d.Permissions, len(rbac.Permissions()))

	seen := map[rbac.Permission]bool{}
	for _, p := range d.Permissions {
		seen[p.Permission] = true
	}
	for _, p := range rbac.Permissions() {
		assert.True(t, seen[p], "checklist missing %s", p)
	}
}
