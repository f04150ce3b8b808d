package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore persists records in a dashboard_sessions table, one row per sid
// with the record as jsonb. Suitable when the gateway runs more than one
// replica against shared infrastructure.
type pgStore struct {
	pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS dashboard_sessions (
    sid        TEXT PRIMARY KEY,
    record     JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgres creates a postgres-backed store and ensures its table exists.
func NewPostgres(ctx context.Context, dsn string, maxConns int32) (Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("vault: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("vault: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vault: ensure schema: %w", err)
	}
	return &pgStore{pool: pool}, nil
}

func (s *pgStore) Load(ctx context.Context, sid string) (*Record, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM dashboard_sessions WHERE sid = $1`, sid,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault: select %s: %w", sid, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("vault: decode %s: %w", sid, err)
	}
	return &rec, nil
}

func (s *pgStore) Save(ctx context.Context, rec *Record) error {
	cp := *rec
	cp.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("vault: encode %s: %w", rec.SID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO dashboard_sessions (sid, record, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sid) DO UPDATE SET record = $2, updated_at = $3`,
		cp.SID, raw, cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("vault: upsert %s: %w", rec.SID, err)
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, sid string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM dashboard_sessions WHERE sid = $1`, sid); err != nil {
		return fmt.Errorf("vault: delete %s: %w", sid, err)
	}
	return nil
}
