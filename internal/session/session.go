// Package session implements the authentication session state machine.
//
// A Manager owns exactly one logical session: tokens, user profile, role and
// the initialization flag. All transitions (hydrate, login, logout, refresh,
// profile update) go through the Manager; everything else only reads
// snapshots. The durable record behind a Manager lives in the vault
// (internal/session/vault) and is written by the Manager alone.
package session

import (
	"context"

	"github.com/oculab/glaucoma-dashboard/internal/rbac"
)

// State is the lifecycle phase of a Manager.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// User is the authenticated profile, optional until fetched.
type User struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     rbac.Role `json:"role"`
	Avatar   string    `json:"avatar,omitempty"`
	TenantID string    `json:"tenant_id,omitempty"`
}

// ProfileUpdate carries partial profile fields for UpdateProfile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Avatar *string
}

// Session is an immutable snapshot of the session state.
//
// Invariant: IsAuthenticated is true iff AccessToken and Role are both set.
// The token pair and the role are always set or cleared together.
type Session struct {
	User            *User
	AccessToken     string
	RefreshToken    string
	Role            rbac.Role
	IsAuthenticated bool
	IsInitialized   bool
}

// Grant is the credential set issued by the auth backend on login or refresh.
type Grant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	UserID       string
	TenantID     string
	Email        string
	Role         rbac.Role
}

// Authenticator is the slice of the upstream API the Manager needs for its
// own transitions. Implemented by the upstream client.
type Authenticator interface {
	// Refresh exchanges a refresh token for a new grant.
	Refresh(ctx context.Context, refreshToken string) (*Grant, error)
	// Logout invalidates the access token server-side. Best effort: the
	// Manager clears local state regardless of the result.
	Logout(ctx context.Context, accessToken string) error
}
