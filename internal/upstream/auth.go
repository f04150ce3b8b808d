package upstream

import (
	"context"
	"net/url"

	"github.com/oculab/glaucoma-dashboard/internal/rbac"
	"github.com/oculab/glaucoma-dashboard/internal/session"
)

// authResponse is the backend token payload, shared by login and refresh.
type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"user_id"`
	TenantID     string `json:"tenant_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

func (a authResponse) grant() *session.Grant {
	return &session.Grant{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    a.TokenType,
		UserID:       a.UserID,
		TenantID:     a.TenantID,
		Email:        a.Email,
		Role:         rbac.Role(a.Role).Normalize(),
	}
}

// Login authenticates with username/password. The backend expects
// form-urlencoded credentials.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Grant, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var out authResponse
	err := c.call(ctx, nil, request{
		op:     "auth.login",
		method: "POST",
		path:   "/auth/login",
		form:   form,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.grant(), nil
}

// Refresh exchanges a refresh token for a new token pair.
// Satisfies session.Authenticator.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*session.Grant, error) {
	var out authResponse
	err := c.call(ctx, nil, request{
		op:     "auth.refresh",
		method: "POST",
		path:   "/auth/refresh",
		json:   map[string]string{"refresh_token": refreshToken},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.grant(), nil
}

// Logout invalidates the token server-side. Callers treat it as best effort.
// Satisfies session.Authenticator.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.call(ctx, staticToken(accessToken), request{
		op:     "auth.logout",
		method: "POST",
		path:   "/auth/logout",
	}, nil)
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context, ts TokenSource) (*session.User, error) {
	var out struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Avatar   string `json:"avatar"`
		TenantID string `json:"tenant_id"`
	}
	err := c.call(ctx, ts, request{
		op:     "auth.me",
		method: "GET",
		path:   "/auth/me",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &session.User{
		ID:       out.ID,
		Email:    out.Email,
		Name:     out.Name,
		Role:     rbac.Role(out.Role).Normalize(),
		Avatar:   out.Avatar,
		TenantID: out.TenantID,
	}, nil
}

// staticToken is a TokenSource for calls that must use one fixed credential
// and never refresh (e.g. logout of a token being discarded).
type staticToken string

func (t staticToken) AccessToken() string { return string(t) }
func (t staticToken) Reauthorize(context.Context, string) (string, error) {
	return "", &APIError{Status: 401, Code: "unauthorized", Detail: "static token rejected"}
}
