package rbac

import "testing"

func TestHas_TotalOverAllRolesAndPermissions(t *testing.T) {
	for _, role := range Roles() {
		for _, p := range Permissions() {
			// Must never panic, must always return a defined answer.
			_ = Has(role, p)
		}
	}
	// Unknown roles resolve like RoleNone.
	if Has(Role("ophthalmologist"), PermPatientRead) {
		t.Fatal("unknown role must have no permissions")
	}
}

func TestAdmin_WildcardCoversEverything(t *testing.T) {
	for _, p := range Permissions() {
		if !Has(RoleAdmin, p) {
			t.Fatalf("admin missing %q", p)
		}
	}
	// A permission added to the enum later is covered without a table edit.
	if !Has(RoleAdmin, Permission("report:export")) {
		t.Fatal("admin wildcard must cover undeclared permissions")
	}
}

func TestNoRole_HasNothing(t *testing.T) {
	for _, p := range Permissions() {
		if Has(RoleNone, p) {
			t.Fatalf("no_role must not have %q", p)
		}
	}
}

func TestRoleMatrix(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleDoctor, PermPatientCreate, true},
		{RoleDoctor, PermPatientUpdate, false},
		{RoleDoctor, PermPatientDelete, false},
		{RoleDoctor, PermPredictionReview, true},
		{RoleRadiologist, PermPatientCreate, false},
		{RoleRadiologist, PermPredictionUpdate, true},
		{RoleTechnician, PermPatientUpdate, true},
		{RoleTechnician, PermPredictionReview, false},
		{RoleViewer, PermPatientRead, true},
		{RoleViewer, PermPatientCreate, false},
	}
	for _, c := range cases {
		if got := Has(c.role, c.perm); got != c.want {
			t.Errorf("Has(%s, %s) = %v, want %v", c.role, c.perm, got, c.want)
		}
	}
}

func TestHasAllHasAny_VacuousBoundary(t *testing.T) {
	for _, role := range Roles() {
		if !HasAll(role, nil) {
			t.Fatalf("HasAll(%s, empty) must be true", role)
		}
		if HasAny(role, nil) {
			t.Fatalf("HasAny(%s, empty) must be false", role)
		}
	}
}

func TestHasAllHasAny(t *testing.T) {
	perms := []Permission{PermPatientRead, PermPatientDelete}
	if HasAll(RoleDoctor, perms) {
		t.Fatal("doctor lacks patient:delete")
	}
	if !HasAny(RoleDoctor, perms) {
		t.Fatal("doctor has patient:read")
	}
	if !HasAll(RoleAdmin, perms) {
		t.Fatal("admin has everything")
	}
	if HasAny(RoleNone, perms) {
		t.Fatal("no_role has nothing")
	}
}

func TestPermissionSet_List(t *testing.T) {
	if got := len(PermissionsFor(RoleAdmin).List()); got != len(Permissions()) {
		t.Fatalf("wildcard list = %d entries, want %d", got, len(Permissions()))
	}
	if got := len(PermissionsFor(RoleViewer).List()); got != 2 {
		t.Fatalf("viewer list = %d entries, want 2", got)
	}
	if got := len(PermissionsFor(RoleNone).List()); got != 0 {
		t.Fatalf("no_role list = %d entries, want 0", got)
	}
}

func TestFeatures_FailClosed(t *testing.T) {
	f := FeaturesFor(RoleDoctor)
	if !f.Can(PermPatientCreate) {
		t.Fatal("doctor can create patients")
	}
	if f.Can(PermPatientDelete) {
		t.Fatal("doctor cannot delete patients")
	}
	// Keys absent from the snapshot are never satisfied by default.
	if f.Allowed("report:export") {
		t.Fatal("unknown gate keys must fail closed")
	}
	if !FeaturesFor(RoleAdmin).Allowed(string(PermPatientDelete)) {
		t.Fatal("admin snapshot grants all defined permissions")
	}
}

func TestDisplayFallbacks(t *testing.T) {
	if DisplayName(RoleAdmin) != "Administrator" {
		t.Fatal("admin display name")
	}
	if DisplayName(Role("mystery")) != "Unknown Role" {
		t.Fatal("unknown role display fallback")
	}
	if BadgeColor(Role("mystery")) != BadgeColor(RoleNone) {
		t.Fatal("unknown role badge falls back to no_role styling")
	}
}

func TestNormalize(t *testing.T) {
	if Role("mystery").Normalize() != RoleNone {
		t.Fatal("unknown role normalizes to no_role")
	}
	if RoleDoctor.Normalize() != RoleDoctor {
		t.Fatal("known role unchanged")
	}
}
