// Package controllers implements the gateway's HTTP handlers. Controllers
// stay thin: decode, delegate to the session manager or the backend client,
// encode. Authorization lives in the route middlewares.
package controllers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/oculab/glaucoma-dashboard/internal/httpapi/dto"
	httperrors "github.com/oculab/glaucoma-dashboard/internal/httpapi/errors"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/helpers"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi/middlewares"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
	"github.com/oculab/glaucoma-dashboard/internal/rbac"
	"github.com/oculab/glaucoma-dashboard/internal/session"
	"github.com/oculab/glaucoma-dashboard/internal/upstream"
	"github.com/oculab/glaucoma-dashboard/internal/view"
)

// AuthController handles login, logout, refresh and session bootstrap.
type AuthController struct {
	upstream *upstream.Client
	sessions *session.Registry
	cookie   middlewares.CookieConfig
}

// NewAuthController creates the auth controller.
func NewAuthController(client *upstream.Client, sessions *session.Registry, cookie middlewares.CookieConfig) *AuthController {
	return &AuthController{upstream: client, sessions: sessions, cookie: cookie}
}

// Login handles POST /api/auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("username and password are required"))
		return
	}

	grant, err := c.upstream.Login(ctx, req.Username, req.Password)
	if err != nil {
		if upstream.IsUnauthorized(err) {
			httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
			return
		}
		log.Warn("login failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.FromUpstream(err))
		return
	}

	// Credentials accepted: retire the pre-auth sid and continue under a
	// fresh one. A session identifier minted before authentication must
	// never name an authenticated session (session fixation).
	mgr, sid, err := c.sessions.Renew(ctx, middlewares.GetSession(ctx).SID())
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	middlewares.SetSessionCookie(w, c.cookie, sid)

	if err := mgr.Login(ctx, grant, nil); err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	// Best effort profile enrichment; the grant already authenticated us.
	if user, err := c.upstream.Me(ctx, mgr); err == nil {
		mgr.UpdateProfile(ctx, session.ProfileUpdate{
			Name:   &user.Name,
			Email:  &user.Email,
			Avatar: &user.Avatar,
		})
	} else {
		log.Debug("profile fetch after login failed", logger.Err(err))
	}

	helpers.WriteJSON(w, http.StatusOK, sessionResponse(mgr.Session()))
}

// Logout handles POST /api/auth/logout.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mgr := middlewares.GetSession(ctx)
	mgr.Logout(ctx)
	middlewares.ClearSessionCookie(w, c.cookie)
	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Refresh handles POST /api/auth/refresh: an explicit rotation request from
// the SPA. Most rotation happens implicitly inside the backend client.
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mgr := middlewares.GetSession(ctx)

	_, err := mgr.Refresh(ctx)
	switch {
	case err == nil:
		helpers.WriteJSON(w, http.StatusOK, sessionResponse(mgr.Session()))
	case stderrors.Is(err, session.ErrNoRefreshToken):
		httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("no session to refresh"))
	case stderrors.Is(err, session.ErrSessionInvalid):
		middlewares.ClearSessionCookie(w, c.cookie)
		httperrors.WriteError(w, httperrors.ErrSessionExpired)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// Session handles GET /api/auth/session: the SPA bootstrap payload.
func (c *AuthController) Session(w http.ResponseWriter, r *http.Request) {
	mgr := middlewares.GetSession(r.Context())
	helpers.WriteJSON(w, http.StatusOK, sessionResponse(mgr.Session()))
}

// UpdateProfile handles PATCH /api/auth/profile.
func (c *AuthController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ProfileUpdateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Empty() {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("no profile fields to update"))
		return
	}

	mgr := middlewares.GetSession(ctx)
	mgr.UpdateProfile(ctx, session.ProfileUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
	})
	helpers.WriteJSON(w, http.StatusOK, sessionResponse(mgr.Session()))
}

func sessionResponse(sess session.Session) dto.SessionResponse {
	role := sess.Role.Normalize()
	var perms map[rbac.Permission]bool
	if sess.IsAuthenticated {
		perms = rbac.FeaturesFor(role).Map()
	} else {
		perms = rbac.FeaturesFor(rbac.RoleNone).Map()
	}
	landing := view.PathLogin
	if sess.IsAuthenticated {
		landing = view.LandingPath(role)
	}
	return dto.SessionPayload(sess, rbac.DisplayName(role), rbac.BadgeColor(role), landing, perms)
}
