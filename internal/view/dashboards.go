package view

import (
	"strconv"

	"github.com/oculab/glaucoma-dashboard/internal/rbac"
)

// Trend is a percentage movement shown on a stat card.
type Trend struct {
	Value      float64 `json:"value"`
	IsPositive bool    `json:"is_positive"`
}

// StatCard is one dashboard statistic.
type StatCard struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Trend *Trend `json:"trend,omitempty"`
}

// QuickAction is a dashboard shortcut, optionally permission-gated.
type QuickAction struct {
	Label      string          `json:"label"`
	Icon       string          `json:"icon"`
	Color      string          `json:"color"`
	Href       string          `json:"href"`
	Permission rbac.Permission `json:"permission,omitempty"`
}

func (a QuickAction) Requires() rbac.Permission { return a.Permission }

// NavItem is a sidebar entry, optionally permission-gated.
type NavItem struct {
	Label      string          `json:"label"`
	Href       string          `json:"href"`
	Icon       string          `json:"icon"`
	Permission rbac.Permission `json:"permission,omitempty"`
}

func (n NavItem) Requires() rbac.Permission { return n.Permission }

// PermissionStatus is one row of the "Your Permissions" checklist.
type PermissionStatus struct {
	Label      string          `json:"label"`
	Permission rbac.Permission `json:"permission"`
	Granted    bool            `json:"granted"`
}

// Dashboard is the fully composed, role-filtered dashboard payload.
type Dashboard struct {
	Role         rbac.Role          `json:"role"`
	RoleName     string             `json:"role_name"`
	RoleBadge    string             `json:"role_badge"`
	Title        string             `json:"title"`
	Subtitle     string             `json:"subtitle"`
	LandingPath  string             `json:"landing_path"`
	Stats        []StatCard         `json:"stats"`
	QuickActions []QuickAction      `json:"quick_actions"`
	Navigation   []NavItem          `json:"navigation"`
	Permissions  []PermissionStatus `json:"permissions"`
}

// Stats are the live numbers the gateway gathers for dashboard cards.
type Stats struct {
	TotalPatients    int
	TotalPredictions int
	PredictionsToday int
	PendingReviews   int
	HighRiskCases    int
	ActiveUsers      int
}

// navigation is the shared sidebar; gated entries drop out per role.
var navigation = []NavItem{
	{Label: "Dashboard", Href: "/dashboard", Icon: "home"},
	{Label: "Patients", Href: "/patients", Icon: "users", Permission: rbac.PermPatientRead},
	{Label: "Analysis", Href: "/analysis", Icon: "chart", Permission: rbac.PermPredictionRead},
}

// Navigation returns the sidebar entries visible to the snapshot's role.
func Navigation(features rbac.Features) []NavItem {
	return FilterByPermission(navigation, features)
}

// permissionChecklist drives the "Your Permissions" card.
var permissionChecklist = []struct {
	label string
	perm  rbac.Permission
}{
	{"Create Patients", rbac.PermPatientCreate},
	{"View Patients", rbac.PermPatientRead},
	{"Update Patients", rbac.PermPatientUpdate},
	{"Delete Patients", rbac.PermPatientDelete},
	{"Create Predictions", rbac.PermPredictionCreate},
	{"View Predictions", rbac.PermPredictionRead},
	{"Update Predictions", rbac.PermPredictionUpdate},
	{"Delete Predictions", rbac.PermPredictionDelete},
	{"Review Predictions", rbac.PermPredictionReview},
}

type roleConfig struct {
	title    string
	subtitle string
	stats    func(Stats) []StatCard
	actions  []QuickAction
}

var roleConfigs = map[rbac.Role]roleConfig{
	rbac.RoleAdmin: {
		title:    "Admin Dashboard",
		subtitle: "System overview and administration",
		stats: func(s Stats) []StatCard {
			return []StatCard{
				{Title: "Total Patients", Value: itoa(s.TotalPatients), Icon: "users", Color: "primary"},
				{Title: "Total Predictions", Value: itoa(s.TotalPredictions), Icon: "activity", Color: "success"},
				{Title: "Active Users", Value: itoa(s.ActiveUsers), Icon: "user-check", Color: "info"},
				{Title: "Glaucoma Cases", Value: itoa(s.HighRiskCases), Icon: "alert", Color: "error"},
			}
		},
		actions: []QuickAction{
			{Label: "Add Patient", Icon: "user-plus", Color: "primary", Href: "/patients/new", Permission: rbac.PermPatientCreate},
			{Label: "New Prediction", Icon: "upload", Color: "success", Href: "/prediction", Permission: rbac.PermPredictionCreate},
			{Label: "Review Predictions", Icon: "check-square", Color: "warning", Href: "/analysis", Permission: rbac.PermPredictionReview},
			{Label: "Manage Users", Icon: "settings", Color: "info", Href: "/users"},
		},
	},
	rbac.RoleDoctor: {
		title:    "Doctor Dashboard",
		subtitle: "Manage your patients and review predictions",
		stats: func(s Stats) []StatCard {
			return []StatCard{
				{Title: "My Patients", Value: itoa(s.TotalPatients), Icon: "users", Color: "primary"},
				{Title: "Predictions Today", Value: itoa(s.PredictionsToday), Icon: "activity", Color: "success"},
				{Title: "Pending Reviews", Value: itoa(s.PendingReviews), Icon: "clock", Color: "warning"},
			}
		},
		actions: []QuickAction{
			{Label: "Add Patient", Icon: "user-plus", Color: "primary", Href: "/patients/new", Permission: rbac.PermPatientCreate},
			{Label: "New Prediction", Icon: "upload", Color: "success", Href: "/prediction", Permission: rbac.PermPredictionCreate},
			{Label: "Review Predictions", Icon: "check-square", Color: "warning", Href: "/analysis", Permission: rbac.PermPredictionReview},
			{Label: "View Patients", Icon: "list", Color: "info", Href: "/patients", Permission: rbac.PermPatientRead},
		},
	},
	rbac.RoleRadiologist: {
		title:    "Radiologist Dashboard",
		subtitle: "Review and update glaucoma predictions",
		stats: func(s Stats) []StatCard {
			return []StatCard{
				{Title: "Predictions Reviewed", Value: itoa(s.TotalPredictions), Icon: "activity", Color: "success"},
				{Title: "Pending Reviews", Value: itoa(s.PendingReviews), Icon: "clock", Color: "warning"},
				{Title: "High Risk Cases", Value: itoa(s.HighRiskCases), Icon: "alert", Color: "error"},
			}
		},
		actions: []QuickAction{
			{Label: "Upload Image", Icon: "upload", Color: "primary", Href: "/prediction", Permission: rbac.PermPredictionCreate},
			{Label: "Review Predictions", Icon: "check-square", Color: "warning", Href: "/analysis", Permission: rbac.PermPredictionReview},
			{Label: "View Patients", Icon: "list", Color: "info", Href: "/patients", Permission: rbac.PermPatientRead},
			{Label: "Update Prediction", Icon: "edit", Color: "success", Href: "/analysis", Permission: rbac.PermPredictionUpdate},
		},
	},
	rbac.RoleTechnician: {
		title:    "Technician Dashboard",
		subtitle: "Manage patient data and upload images for analysis",
		stats: func(s Stats) []StatCard {
			return []StatCard{
				{Title: "Patients Managed", Value: itoa(s.TotalPatients), Icon: "users", Color: "primary"},
				{Title: "Images Uploaded", Value: itoa(s.TotalPredictions), Icon: "image", Color: "success"},
				{Title: "Predictions Today", Value: itoa(s.PredictionsToday), Icon: "activity", Color: "info"},
			}
		},
		actions: []QuickAction{
			{Label: "Add Patient", Icon: "user-plus", Color: "primary", Href: "/patients/new", Permission: rbac.PermPatientCreate},
			{Label: "Update Patient", Icon: "edit", Color: "warning", Href: "/patients", Permission: rbac.PermPatientUpdate},
			{Label: "Upload Image", Icon: "upload", Color: "success", Href: "/prediction", Permission: rbac.PermPredictionCreate},
			{Label: "View Patients", Icon: "list", Color: "info", Href: "/patients", Permission: rbac.PermPatientRead},
		},
	},
	rbac.RoleViewer: {
		title:    "Viewer Dashboard",
		subtitle: "Read-only access to patient and prediction data",
		stats: func(s Stats) []StatCard {
			return []StatCard{
				{Title: "Patients Viewed", Value: itoa(s.TotalPatients), Icon: "users", Color: "primary"},
				{Title: "Predictions Reviewed", Value: itoa(s.TotalPredictions), Icon: "activity", Color: "info"},
			}
		},
		actions: []QuickAction{
			{Label: "View Patients", Icon: "list", Color: "primary", Href: "/patients", Permission: rbac.PermPatientRead},
			{Label: "View Predictions", Icon: "chart", Color: "info", Href: "/analysis", Permission: rbac.PermPredictionRead},
		},
	},
	rbac.RoleNone: {
		title:    "Welcome",
		subtitle: "Your account has no role assigned yet. Contact an administrator to request access.",
		stats:    func(Stats) []StatCard { return nil },
	},
}

// Compose builds the dashboard for a role. Quick actions and navigation are
// filtered against the role's capability snapshot; the permissions checklist
// always lists every defined permission with its granted flag.
func Compose(role rbac.Role, stats Stats) Dashboard {
	role = role.Normalize()
	cfg, ok := roleConfigs[role]
	if !ok {
		cfg = roleConfigs[rbac.RoleNone]
	}
	features := rbac.FeaturesFor(role)

	checklist := make([]PermissionStatus, 0, len(permissionChecklist))
	for _, item := range permissionChecklist {
		checklist = append(checklist, PermissionStatus{
			Label:      item.label,
			Permission: item.perm,
			Granted:    features.Can(item.perm),
		})
	}

	return Dashboard{
		Role:         role,
		RoleName:     rbac.DisplayName(role),
		RoleBadge:    rbac.BadgeColor(role),
		Title:        cfg.title,
		Subtitle:     cfg.subtitle,
		LandingPath:  LandingPath(role),
		Stats:        cfg.stats(stats),
		QuickActions: FilterByPermission(cfg.actions, features),
		Navigation:   Navigation(features),
		Permissions:  checklist,
	}
}

func itoa(v int) string { return strconv.Itoa(v) }
