// Package dto defines the request/response payloads of the gateway API.
package dto

import (
	"github.com/oculab/glaucoma-dashboard/internal/rbac"
	"github.com/oculab/glaucoma-dashboard/internal/session"
)

// LoginRequest carries the credentials for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserPayload is the profile subset exposed to the SPA.
type UserPayload struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// SessionResponse is the SPA's bootstrap payload: who is signed in, what they
// may do, and where their dashboard lives. Tokens never appear here.
type SessionResponse struct {
	Authenticated bool                     `json:"authenticated"`
	Initialized   bool                     `json:"initialized"`
	User          *UserPayload             `json:"user,omitempty"`
	Role          rbac.Role                `json:"role"`
	RoleName      string                   `json:"role_name"`
	RoleBadge     string                   `json:"role_badge"`
	LandingPath   string                   `json:"landing_path"`
	Permissions   map[rbac.Permission]bool `json:"permissions"`
}

// ProfileUpdateRequest carries partial profile fields for PATCH /api/auth/profile.
type ProfileUpdateRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Avatar *string `json:"avatar"`
}

func (r ProfileUpdateRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.Avatar == nil
}

// SessionPayload builds the bootstrap payload from a session snapshot.
func SessionPayload(sess session.Session, roleName, badge, landing string, perms map[rbac.Permission]bool) SessionResponse {
	resp := SessionResponse{
		Authenticated: sess.IsAuthenticated,
		Initialized:   sess.IsInitialized,
		Role:          sess.Role.Normalize(),
		RoleName:      roleName,
		RoleBadge:     badge,
		LandingPath:   landing,
		Permissions:   perms,
	}
	if sess.User != nil {
		resp.User = &UserPayload{
			ID:     sess.User.ID,
			Email:  sess.User.Email,
			Name:   sess.User.Name,
			Role:   string(sess.User.Role),
			Avatar: sess.User.Avatar,
		}
	}
	return resp
}
