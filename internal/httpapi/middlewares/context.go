package middlewares

import (
	"context"

	"github.com/oculab/glaucoma-dashboard/internal/session"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeySession
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// GetRequestID returns the request ID injected by WithRequestID ("" if absent).
func GetRequestID(ctx context.Context) string {
	rid, _ := ctx.Value(ctxKeyRequestID).(string)
	return rid
}

func setSession(ctx context.Context, m *session.Manager) context.Context {
	return context.WithValue(ctx, ctxKeySession, m)
}

// GetSession returns the session Manager resolved by WithSession.
// Nil when the middleware did not run.
func GetSession(ctx context.Context) *session.Manager {
	m, _ := ctx.Value(ctxKeySession).(*session.Manager)
	return m
}
