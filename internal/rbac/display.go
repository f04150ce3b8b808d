package rbac

// Presentation helpers for roles. Pure and total: unrecognized roles fall
// back to the RoleNone rendering instead of failing.

var roleNames = map[Role]string{
	RoleAdmin:       "Administrator",
	RoleDoctor:      "Doctor",
	RoleRadiologist: "Radiologist",
	RoleTechnician:  "Technician",
	RoleViewer:      "Viewer",
	RoleNone:        "No Role Assigned",
}

// DisplayName returns a human-readable role name.
func DisplayName(role Role) string {
	if name, ok := roleNames[role]; ok {
		return name
	}
	return "Unknown Role"
}

// BadgeColor returns the UI style token for the role badge.
var roleBadges = map[Role]string{
	RoleAdmin:       "error",
	RoleDoctor:      "primary",
	RoleRadiologist: "success",
	RoleTechnician:  "warning",
	RoleViewer:      "info",
	RoleNone:        "secondary",
}

func BadgeColor(role Role) string {
	if c, ok := roleBadges[role]; ok {
		return c
	}
	return "secondary"
}
