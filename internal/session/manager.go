package session

import (
	"context"
	"errors"
	"sync"

	"github.com/oculab/glaucoma-dashboard/internal/metrics"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
	"github.com/oculab/glaucoma-dashboard/internal/rbac"
	"github.com/oculab/glaucoma-dashboard/internal/session/vault"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotAuthenticated is returned when an operation needs an active session.
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrNoRefreshToken is returned when a refresh is requested without a
	// refresh token on hand.
	ErrNoRefreshToken = errors.New("session: no refresh token")
	// ErrSessionInvalid means the refresh token itself was rejected or the
	// session was torn down while a refresh was in flight. Not recoverable
	// locally; callers redirect to login.
	ErrSessionInvalid = errors.New("session: invalid, re-authentication required")
	// ErrIncompleteGrant is returned for grants missing token or role.
	ErrIncompleteGrant = errors.New("session: grant missing access token or role")
)

// Deps are the Manager dependencies.
type Deps struct {
	SID   string
	Auth  Authenticator
	Vault vault.Store
}

// Manager owns one session and serializes its transitions. Reads return
// value snapshots, so holders never observe partial states.
type Manager struct {
	sid   string
	auth  Authenticator
	vault vault.Store

	mu    sync.RWMutex
	state State
	sess  Session
	// gen increments on every login/logout. A refresh that completes under a
	// different generation than it started with is discarded: its tokens are
	// stale by definition.
	gen uint64

	sf singleflight.Group

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int
}

// NewManager creates an uninitialized Manager. Call Initialize before use.
func NewManager(d Deps) *Manager {
	return &Manager{
		sid:   d.SID,
		auth:  d.Auth,
		vault: d.Vault,
		state: StateUninitialized,
		subs:  map[int]func(Session){},
	}
}

// SID returns the durable session identifier.
func (m *Manager) SID() string { return m.sid }

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess
}

// State returns the lifecycle phase.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers a callback invoked after every transition with the new
// snapshot. The returned function cancels the subscription.
func (m *Manager) Subscribe(fn func(Session)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify(snap Session) {
	m.subMu.Lock()
	fns := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Initialize hydrates the session from the vault and validates persisted
// credentials against the backend. With a refresh token present it performs
// one refresh: success adopts the new pair and authenticates, failure clears
// everything. Either way the session is initialized afterwards. Idempotent:
// repeated calls after the first are no-ops.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return nil
	}
	m.state = StateInitializing
	m.mu.Unlock()

	log := logger.From(ctx).With(logger.Component("session"), logger.Op("Initialize"), logger.SessionID(m.sid))

	rec, err := m.vault.Load(ctx, m.sid)
	if err != nil {
		if !errors.Is(err, vault.ErrNotFound) {
			log.Warn("vault load failed, starting unauthenticated", logger.Err(err))
		}
		m.finishInit(Session{})
		return nil
	}

	if rec.RefreshToken == "" {
		// Nothing to validate with; initialized in whatever state the record
		// implies (a bare record without tokens is unauthenticated).
		m.finishInit(Session{})
		return nil
	}

	grant, err := m.auth.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		log.Info("persisted session rejected on startup", logger.Err(err))
		_ = m.vault.Delete(ctx, m.sid)
		m.finishInit(Session{})
		return nil
	}

	sess := sessionFromRecord(rec, grant)
	m.finishInit(sess)
	m.persist(ctx)
	log.Info("session hydrated", logger.UserID(sess.userID()), logger.Role(string(sess.Role)))
	return nil
}

func (m *Manager) finishInit(sess Session) {
	sess.IsInitialized = true
	m.mu.Lock()
	m.sess = sess
	if sess.IsAuthenticated {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
	snap := m.sess
	m.mu.Unlock()
	m.notify(snap)
}

func sessionFromRecord(rec *vault.Record, grant *Grant) Session {
	role := rbac.Role(rec.Role)
	if role == "" {
		role = grant.Role
	}
	var user *User
	if rec.User != nil {
		user = &User{
			ID:       rec.User.ID,
			Email:    rec.User.Email,
			Name:     rec.User.Name,
			Role:     rbac.Role(rec.User.Role),
			Avatar:   rec.User.Avatar,
			TenantID: rec.TenantID,
		}
	}
	if grant.AccessToken == "" || role == "" {
		return Session{}
	}
	return Session{
		User:            user,
		AccessToken:     grant.AccessToken,
		RefreshToken:    grant.RefreshToken,
		Role:            role,
		IsAuthenticated: true,
	}
}

// Login atomically replaces every session field from the grant (and optional
// resolved profile) and authenticates the session.
func (m *Manager) Login(ctx context.Context, grant *Grant, user *User) error {
	if grant == nil || grant.AccessToken == "" || grant.Role == "" {
		return ErrIncompleteGrant
	}
	if user == nil {
		user = &User{
			ID:       grant.UserID,
			Email:    grant.Email,
			Role:     grant.Role,
			TenantID: grant.TenantID,
		}
	}

	m.mu.Lock()
	m.gen++
	m.sess = Session{
		User:            user,
		AccessToken:     grant.AccessToken,
		RefreshToken:    grant.RefreshToken,
		Role:            grant.Role,
		IsAuthenticated: true,
		IsInitialized:   true,
	}
	m.state = StateAuthenticated
	snap := m.sess
	m.mu.Unlock()

	m.notify(snap)
	m.persist(ctx)
	logger.From(ctx).Info("session established",
		logger.Component("session"), logger.SessionID(m.sid),
		logger.UserID(user.ID), logger.Role(string(grant.Role)))
	return nil
}

// Logout clears the session unconditionally. The server-side logout call is
// best effort; local state is the source of truth for the UI. Reachable from
// any state and idempotent.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	access := m.sess.AccessToken
	wasAuth := m.sess.IsAuthenticated
	m.gen++
	m.sess = Session{IsInitialized: true}
	m.state = StateUnauthenticated
	snap := m.sess
	m.mu.Unlock()

	if access != "" {
		if err := m.auth.Logout(ctx, access); err != nil {
			logger.From(ctx).Debug("server-side logout failed, local state cleared anyway",
				logger.Component("session"), logger.Err(err))
		}
	}
	if err := m.vault.Delete(ctx, m.sid); err != nil && !errors.Is(err, vault.ErrNotFound) {
		logger.From(ctx).Warn("vault delete failed", logger.Component("session"), logger.Err(err))
	}
	if wasAuth {
		logger.From(ctx).Info("session ended", logger.Component("session"), logger.SessionID(m.sid))
	}
	m.notify(snap)
}

// UpdateProfile merges partial profile fields into the current user without
// touching tokens or role. No-op when no user is set.
func (m *Manager) UpdateProfile(ctx context.Context, upd ProfileUpdate) {
	m.mu.Lock()
	if m.sess.User == nil {
		m.mu.Unlock()
		return
	}
	u := *m.sess.User
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	m.sess.User = &u
	snap := m.sess
	m.mu.Unlock()

	m.notify(snap)
	m.persist(ctx)
}

// Refresh exchanges the stored refresh token for a new pair, replacing only
// the tokens and preserving role and user. Concurrent callers share a single
// upstream call. Failure tears the session down and returns ErrSessionInvalid.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.RLock()
	refresh := m.sess.RefreshToken
	startGen := m.gen
	m.mu.RUnlock()

	if refresh == "" {
		return "", ErrNoRefreshToken
	}

	v, err, shared := m.sf.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx, refresh, startGen)
	})
	if shared {
		metrics.TokenRefreshes.WithLabelValues("shared").Inc()
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context, refreshToken string, startGen uint64) (string, error) {
	log := logger.From(ctx).With(logger.Component("session"), logger.Op("Refresh"), logger.SessionID(m.sid))

	grant, err := m.auth.Refresh(ctx, refreshToken)

	m.mu.Lock()
	if m.gen != startGen {
		// A login or logout won the race. Whatever the upstream returned is
		// stale; fail closed without touching the new state.
		m.mu.Unlock()
		metrics.TokenRefreshes.WithLabelValues("stale").Inc()
		return "", ErrSessionInvalid
	}
	if err != nil {
		// Refresh token rejected: full local logout.
		m.gen++
		m.sess = Session{IsInitialized: true}
		m.state = StateUnauthenticated
		snap := m.sess
		m.mu.Unlock()

		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		log.Info("refresh rejected, session invalidated", logger.Err(err))
		_ = m.vault.Delete(ctx, m.sid)
		m.notify(snap)
		return "", ErrSessionInvalid
	}
	if grant == nil || grant.AccessToken == "" {
		// A 200 without a usable token is not a rotation. Keep the current
		// pair; the stored refresh token may still work on the next attempt.
		m.mu.Unlock()
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		log.Warn("refresh returned incomplete grant, keeping current tokens")
		return "", ErrIncompleteGrant
	}
	m.sess.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		m.sess.RefreshToken = grant.RefreshToken
	}
	snap := m.sess
	m.mu.Unlock()

	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	log.Debug("access token refreshed")
	m.notify(snap)
	m.persist(ctx)
	return snap.AccessToken, nil
}

// AccessToken returns the current bearer credential ("" when unauthenticated).
// Part of the upstream TokenSource contract.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.AccessToken
}

// Reauthorize recovers from a rejected access token: at most one refresh per
// rejection. If another caller already rotated the token, the fresh one is
// returned without a new upstream call. Part of the TokenSource contract.
func (m *Manager) Reauthorize(ctx context.Context, rejected string) (string, error) {
	m.mu.RLock()
	current := m.sess.AccessToken
	authed := m.sess.IsAuthenticated
	m.mu.RUnlock()

	if !authed {
		return "", ErrNotAuthenticated
	}
	if current != "" && current != rejected {
		return current, nil
	}
	return m.Refresh(ctx)
}

// persist writes the current session to the vault. The vault is only ever
// written here, keeping memory and durable state from drifting.
func (m *Manager) persist(ctx context.Context) {
	m.mu.RLock()
	sess := m.sess
	m.mu.RUnlock()

	if !sess.IsAuthenticated {
		return
	}
	rec := &vault.Record{
		SID:          m.sid,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		Role:         string(sess.Role),
	}
	if sess.User != nil {
		rec.UserID = sess.User.ID
		rec.TenantID = sess.User.TenantID
		rec.User = &vault.UserRecord{
			ID:     sess.User.ID,
			Email:  sess.User.Email,
			Name:   sess.User.Name,
			Role:   string(sess.User.Role),
			Avatar: sess.User.Avatar,
		}
	}
	if err := m.vault.Save(ctx, rec); err != nil {
		logger.From(ctx).Warn("vault save failed", logger.Component("session"), logger.SessionID(m.sid), logger.Err(err))
	}
}

func (s Session) userID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}
