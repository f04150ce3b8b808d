package view

import "github.com/oculab/glaucoma-dashboard/internal/rbac"

// Route paths served by the SPA. The gateway only hands them out in
// redirect decisions; it does not serve the pages themselves.
const (
	PathLogin         = "/auth/login"
	PathNoRoleLanding = "/dashboard/no-role"
)

// LandingPath maps a role to its default dashboard. The switch is exhaustive
// over the defined roles; anything else — including roles the backend may
// add before this service learns about them — lands where no_role lands.
func LandingPath(role rbac.Role) string {
	switch role {
	case rbac.RoleAdmin:
		return "/dashboard/admin"
	case rbac.RoleDoctor:
		return "/dashboard/doctor"
	case rbac.RoleRadiologist:
		return "/dashboard/radiologist"
	case rbac.RoleTechnician:
		return "/dashboard/technician"
	case rbac.RoleViewer:
		return "/dashboard/viewer"
	case rbac.RoleNone:
		return PathNoRoleLanding
	default:
		return PathNoRoleLanding
	}
}

// FallbackPath is where RedirectToFallback decisions point: the role's own
// landing page (a denied route never strands the user on a blank page).
func FallbackPath(role rbac.Role) string {
	return LandingPath(role)
}
