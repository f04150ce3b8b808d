// Package cache is a small byte cache used for short-lived response
// snapshots (dashboard stats, patient pages). Backends: in-process memory
// and redis.
package cache

import "time"

// Cache is the backend contract. Get reports a miss with ok=false; there is
// no error path — a broken cache behaves like an empty one.
type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
