package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
	"github.com/oculab/glaucoma-dashboard/internal/session/vault"
)

// Registry maps session identifiers to their Manager. Each browser session
// gets exactly one Manager; the gateway resolves the sid cookie through here
// on every request.
type Registry struct {
	auth  Authenticator
	vault vault.Store

	mu       sync.Mutex
	managers map[string]*entry
}

type entry struct {
	mgr      *Manager
	lastSeen time.Time
}

// NewRegistry creates an empty registry. All managers share the given
// authenticator and vault.
func NewRegistry(auth Authenticator, store vault.Store) *Registry {
	return &Registry{
		auth:     auth,
		vault:    store,
		managers: map[string]*entry{},
	}
}

// NewSID mints a fresh session identifier.
func NewSID() string { return uuid.NewString() }

// Resolve returns the Manager for sid, creating and initializing one on first
// sight. Initialization hydrates persisted credentials from the vault, so a
// sid that survived a gateway restart comes back authenticated.
func (r *Registry) Resolve(ctx context.Context, sid string) (*Manager, error) {
	r.mu.Lock()
	e, ok := r.managers[sid]
	if !ok {
		e = &entry{mgr: NewManager(Deps{SID: sid, Auth: r.auth, Vault: r.vault})}
		r.managers[sid] = e
	}
	e.lastSeen = time.Now()
	mgr := e.mgr
	r.mu.Unlock()

	// Initialize is idempotent and serializes itself; no need to hold the
	// registry lock across the vault and upstream calls it makes.
	if err := mgr.Initialize(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}

// Renew retires oldSID and returns a fresh Manager under a brand-new sid.
// Called on privilege changes (login) so an identifier that existed before
// authentication can never name the authenticated session. Anyone who
// planted or observed the pre-auth sid holds a dead key afterwards.
func (r *Registry) Renew(ctx context.Context, oldSID string) (*Manager, string, error) {
	if old, ok := r.Peek(oldSID); ok {
		// Clears the old vault record too; best-effort upstream logout.
		old.Logout(ctx)
	}
	r.Drop(oldSID)

	sid := NewSID()
	mgr, err := r.Resolve(ctx, sid)
	if err != nil {
		return nil, "", err
	}
	return mgr, sid, nil
}

// Peek returns the Manager for sid without creating one.
func (r *Registry) Peek(sid string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.managers[sid]
	if !ok {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.mgr, true
}

// Drop removes the Manager for sid from memory. Durable state is untouched;
// callers that want the vault cleared go through Manager.Logout first.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	delete(r.managers, sid)
	r.mu.Unlock()
}

// Len reports the number of resident managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// EvictIdle removes managers not resolved within maxIdle and returns how many
// were dropped. Evicted sessions are not logged out: the vault record stays,
// and the next Resolve for that sid re-hydrates it.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for sid, e := range r.managers {
		if e.lastSeen.Before(cutoff) {
			delete(r.managers, sid)
			n++
		}
	}
	return n
}

// Sweep runs EvictIdle every interval until ctx is cancelled. Meant to be
// started once as a goroutine next to the HTTP server.
func (r *Registry) Sweep(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.EvictIdle(maxIdle); n > 0 {
				logger.From(ctx).Debug("idle sessions evicted",
					logger.Component("session"), logger.Count(n))
			}
		}
	}
}
