// Package vault persists session records. The session Manager is the only
// writer; everything else reads through it. Backends: memory (tests/dev),
// file (one JSON document per session, atomic writes), redis and postgres.
package vault

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a session ID.
var ErrNotFound = errors.New("vault: session record not found")

// UserRecord is the persisted profile subset.
type UserRecord struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// Record is the durable session state: the token pair plus enough identity to
// rebuild a session without a profile fetch.
type Record struct {
	SID          string      `json:"sid"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	UserID       string      `json:"user_id,omitempty"`
	TenantID     string      `json:"tenant_id,omitempty"`
	Role         string      `json:"role"`
	User         *UserRecord `json:"user,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Store is the persistence contract. Save overwrites, Delete is idempotent
// (deleting a missing record is not an error).
type Store interface {
	Load(ctx context.Context, sid string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, sid string) error
}
