// Package cache defines a small byte cache used for remotely fetched platform
// public keys. Backends: memory (in-process) and redis (shared).
package cache

import "time"

type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
