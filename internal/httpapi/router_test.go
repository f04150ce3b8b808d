package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oculab/glaucoma-dashboard/internal/cache"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi"
	mw "github.com/oculab/glaucoma-dashboard/internal/httpapi/middlewares"
	"github.com/oculab/glaucoma-dashboard/internal/rate"
	"github.com/oculab/glaucoma-dashboard/internal/session"
	"github.com/oculab/glaucoma-dashboard/internal/session/vault"
	"github.com/oculab/glaucoma-dashboard/internal/upstream"
)

const (
	testUser     = "ana@clinic.example"
	testPassword = "s3cret"
	testAccess   = "acc-1"
)

// backend fakes the clinical API the gateway proxies.
type backend struct {
	*httptest.Server

	mu          sync.Mutex
	deleteCalls int
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != testUser || r.PostForm.Get("password") != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  testAccess,
			"refresh_token": "ref-1",
			"token_type":    "bearer",
			"user_id":       "u-1",
			"tenant_id":     "t-1",
			"email":         testUser,
			"role":          "doctor",
		})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id": "u-1", "email": testUser, "name": "Ana García", "role": "doctor",
		})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{
			"total_patients": 3, "total_predictions": 12, "predictions_today": 5,
			"pending_reviews": 2, "high_risk_cases": 1, "active_users": 4,
		})
	})
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"patients": []any{}, "total": 3, "page": 1, "page_size": 20, "total_pages": 1,
		})
	})
	mux.HandleFunc("DELETE /patients/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.deleteCalls++
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *backend) deletes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteCalls
}

func newGateway(t *testing.T, backendURL string) *httptest.Server {
	t.Helper()
	client := upstream.New(upstream.Config{BaseURL: backendURL, Timeout: 5 * time.Second})
	registry := session.NewRegistry(client, vault.NewMemory())

	srv := httptest.NewServer(httpapi.NewRouter(httpapi.RouterDeps{
		Upstream: client,
		Sessions: registry,
		Cache:    cache.NewMemory(time.Minute),
		Cookie:   mw.CookieConfig{Name: "dashsid", TTL: time.Hour},
		Version:  "test",
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// doJSONWithSID is doJSON with the session cookie handled by hand, for
// tests that need to replay a specific sid.
func doJSONWithSID(t *testing.T, method, url string, body any, sid string) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "dashsid", Value: sid})
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func sidFrom(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == "dashsid" {
			return c.Value
		}
	}
	return ""
}

func TestHealthz(t *testing.T) {
	gw := newGateway(t, newBackend(t).URL)

	resp, body := doJSON(t, http.DefaultClient, http.MethodGet, gw.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", resp.Header.Get("X-Service-Version"))
	assert.Equal(t, "ok", body["status"])
}

func TestSessionBootstrap_Anonymous(t *testing.T) {
	gw := newGateway(t, newBackend(t).URL)
	browser := newBrowser(t)

	resp, body := doJSON(t, browser, http.MethodGet, gw.URL+"/api/auth/session", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, true, body["initialized"])
	assert.Equal(t, "no_role", body["role"])
	assert.Equal(t, "/auth/login", body["landing_path"])

	// First contact mints the session cookie.
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "dashsid" && c.Value != "" {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "expected a dashsid cookie on first contact")
}

func TestLoginFlow(t *testing.T) {
	be := newBackend(t)
	gw := newGateway(t, be.URL)
	browser := newBrowser(t)

	t.Run("wrong credentials", func(t *testing.T) {
		resp, body := doJSON(t, browser, http.MethodPost, gw.URL+"/api/auth/login",
			map[string]string{"username": testUser, "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, body := doJSON(t, browser, http.MethodPost, gw.URL+"/api/auth/login",
			map[string]string{"username": testUser})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "MISSING_FIELDS", body["code"])
	})

	t.Run("login", func(t *testing.T) {
		resp, body := doJSON(t, browser, http.MethodPost, gw.URL+"/api/auth/login",
			map[string]string{"username": testUser, "password": testPassword})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["authenticated"])
		assert.Equal(t, "doctor", body["role"])
		assert.Equal(t, "/dashboard/doctor", body["landing_path"])

		perms, ok := body["permissions"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, perms["patient:read"])
		assert.Equal(t, false, perms["patient:delete"])

		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, testUser, user["email"])
		assert.Equal(t, "Ana García", user["name"])
	})

	t.Run("dashboard composed for role", func(t *testing.T) {
		resp, body := doJSON(t, browser, http.MethodGet, gw.URL+"/api/dashboard", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "doctor", body["role"])
		assert.Equal(t, "Doctor Dashboard", body["title"])

		stats, ok := body["stats"].([]any)
		require.True(t, ok)
		require.NotEmpty(t, stats)
		first, ok := stats[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "My Patients", first["title"])
		assert.Equal(t, "3", first["value"]) // live count from the backend

		require.Greater(t, len(stats), 1)
		second, ok := stats[1].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Predictions Today", second["title"])
		assert.Equal(t, "5", second["value"]) // from the aggregate endpoint, not a zero placeholder
	})

	t.Run("allowed route", func(t *testing.T) {
		resp, body := doJSON(t, browser, http.MethodGet, gw.URL+"/api/patients", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(3), body["total"])
	})

	t.Run("denied route redirects home", func(t *testing.T) {
		resp, body := doJSON(t, browser, http.MethodDelete, gw.URL+"/api/patients/42", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", body["code"])
		assert.Equal(t, "redirect_fallback", body["decision"])
		assert.Equal(t, "/dashboard/doctor", body["redirect"])
		assert.Equal(t, 0, be.deletes(), "gateway must deny before the backend is reached")
	})

	t.Run("logout", func(t *testing.T) {
		resp, body := doJSON(t, browser, http.MethodPost, gw.URL+"/api/auth/logout", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["ok"])

		resp, body = doJSON(t, browser, http.MethodGet, gw.URL+"/api/auth/session", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, body["authenticated"])
	})
}

func TestGate_Unauthenticated(t *testing.T) {
	gw := newGateway(t, newBackend(t).URL)
	browser := newBrowser(t)

	resp, body := doJSON(t, browser, http.MethodGet, gw.URL+"/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
	assert.Equal(t, "redirect_login", body["decision"])
	assert.Equal(t, "/auth/login", body["redirect"])
}

func TestRefresh_NoSession(t *testing.T) {
	gw := newGateway(t, newBackend(t).URL)
	browser := newBrowser(t)

	resp, body := doJSON(t, browser, http.MethodPost, gw.URL+"/api/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestLogin_RateLimited(t *testing.T) {
	be := newBackend(t)
	client := upstream.New(upstream.Config{BaseURL: be.URL, Timeout: 5 * time.Second})
	registry := session.NewRegistry(client, vault.NewMemory())

	gw := httptest.NewServer(httpapi.NewRouter(httpapi.RouterDeps{
		Upstream:     client,
		Sessions:     registry,
		Cache:        cache.NewMemory(time.Minute),
		Cookie:       mw.CookieConfig{Name: "dashsid", TTL: time.Hour},
		LoginLimiter: rate.NewMemoryLimiter(2, time.Minute),
		Version:      "test",
	}))
	t.Cleanup(gw.Close)
	browser := newBrowser(t)

	creds := map[string]string{"username": testUser, "password": "nope"}
	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, browser, http.MethodPost, gw.URL+"/api/auth/login", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := doJSON(t, browser, http.MethodPost, gw.URL+"/api/auth/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "TOO_MANY_REQUESTS", body["code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// logout is never throttled
	resp, _ = doJSON(t, browser, http.MethodPost, gw.URL+"/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin_RotatesSessionCookie(t *testing.T) {
	gw := newGateway(t, newBackend(t).URL)

	resp, _ := doJSONWithSID(t, http.MethodGet, gw.URL+"/api/auth/session", nil, "")
	preSID := sidFrom(resp)
	require.NotEmpty(t, preSID)

	resp, body := doJSONWithSID(t, http.MethodPost, gw.URL+"/api/auth/login",
		map[string]string{"username": testUser, "password": testPassword}, preSID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])

	// Login retires the identifier minted before authentication and hands
	// the browser a fresh one.
	postSID := sidFrom(resp)
	require.NotEmpty(t, postSID, "login must set a new session cookie")
	assert.NotEqual(t, preSID, postSID)

	// The pre-login sid no longer names a session.
	resp, body = doJSONWithSID(t, http.MethodGet, gw.URL+"/api/auth/session", nil, preSID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["authenticated"])

	// The fresh one carries the authenticated session.
	resp, body = doJSONWithSID(t, http.MethodGet, gw.URL+"/api/auth/session", nil, postSID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "doctor", body["role"])
}

func TestCORS(t *testing.T) {
	const origin = "https://dash.clinic.example"

	be := newBackend(t)
	client := upstream.New(upstream.Config{BaseURL: be.URL, Timeout: 5 * time.Second})
	registry := session.NewRegistry(client, vault.NewMemory())

	gw := httptest.NewServer(httpapi.NewRouter(httpapi.RouterDeps{
		Upstream:       client,
		Sessions:       registry,
		Cache:          cache.NewMemory(time.Minute),
		Cookie:         mw.CookieConfig{Name: "dashsid", TTL: time.Hour},
		AllowedOrigins: []string{origin},
		Version:        "test",
	}))
	t.Cleanup(gw.Close)

	get := func(t *testing.T, method, url, from string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, url, nil)
		require.NoError(t, err)
		if from != "" {
			req.Header.Set("Origin", from)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	t.Run("allowed origin", func(t *testing.T) {
		resp := get(t, http.MethodGet, gw.URL+"/healthz", origin)
		assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, resp.Header.Values("Vary"), "Origin")
	})

	t.Run("preflight", func(t *testing.T) {
		resp := get(t, http.MethodOptions, gw.URL+"/api/auth/login", origin)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
		assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		resp := get(t, http.MethodGet, gw.URL+"/healthz", "https://evil.example")
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
	})
}

func TestNotFound(t *testing.T) {
	gw := newGateway(t, newBackend(t).URL)

	resp, body := doJSON(t, http.DefaultClient, http.MethodGet, gw.URL+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}
