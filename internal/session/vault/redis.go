package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// redisStore keeps records in redis with a TTL, so abandoned sessions expire
// on their own.
type redisStore struct {
	c      *rdb.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr   string
	DB     int
	Prefix string
	// TTL bounds how long an untouched record survives. Zero means no expiry.
	TTL time.Duration
}

// NewRedis creates a redis-backed store.
func NewRedis(opts RedisOptions) Store {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "dashsess"
	}
	return &redisStore{
		c:      rdb.NewClient(&rdb.Options{Addr: opts.Addr, DB: opts.DB}),
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *redisStore) key(sid string) string {
	return s.prefix + ":" + sid
}

func (s *redisStore) Load(ctx context.Context, sid string) (*Record, error) {
	b, err := s.c.Get(ctx, s.key(sid)).Bytes()
	if err == rdb.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault: redis get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("vault: decode %s: %w", sid, err)
	}
	return &rec, nil
}

func (s *redisStore) Save(ctx context.Context, rec *Record) error {
	cp := *rec
	cp.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("vault: encode %s: %w", rec.SID, err)
	}
	if err := s.c.Set(ctx, s.key(rec.SID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("vault: redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sid string) error {
	if err := s.c.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("vault: redis del: %w", err)
	}
	return nil
}
