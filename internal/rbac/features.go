package rbac

// Features is a denormalized capability snapshot for a single role: every
// defined permission evaluated once. View composition consults the snapshot
// instead of hitting the resolver per item.
type Features struct {
	role    Role
	granted map[Permission]bool
}

// FeaturesFor evaluates all defined permissions against role.
func FeaturesFor(role Role) Features {
	granted := make(map[Permission]bool, len(Permissions()))
	for _, p := range Permissions() {
		granted[p] = Has(role, p)
	}
	return Features{role: role, granted: granted}
}

// Role returns the role the snapshot was taken for.
func (f Features) Role() Role { return f.role }

// Can reports whether the snapshot grants p. Permissions outside the snapshot
// (unknown tokens) are not granted — gated items fail closed.
func (f Features) Can(p Permission) bool {
	return f.granted[p]
}

// Allowed is Can for a raw permission string, used when gate keys arrive from
// configuration or the wire.
func (f Features) Allowed(key string) bool {
	return f.granted[Permission(key)]
}

// IsAdmin reports whether the snapshot belongs to the full-access role.
func (f Features) IsAdmin() bool { return IsAdmin(f.role) }

// Map returns the snapshot as permission -> granted, for serialization.
func (f Features) Map() map[Permission]bool {
	out := make(map[Permission]bool, len(f.granted))
	for p, ok := range f.granted {
		out[p] = ok
	}
	return out
}
