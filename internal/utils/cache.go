package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Sentinel errors
	"time"          // Time durations

	"github.com/google/uuid"       // Lock tokens
	"github.com/redis/go-redis/v9" // Redis client
)

// ErrLockHeld is returned when another holder owns the lock
var ErrLockHeld = errors.New("lock already held")

// Key prefixes shared by the portal's Redis users
const (
	PrefixWizard   = "portal:wizard:"   // Wizard state per session and kind
	PrefixBetID    = "portal:betid:"    // Pending bet-ID candidate per session
	PrefixLock     = "portal:lock:"     // In-flight submission locks
	PrefixList     = "portal:list:"     // Cached reference lists
	PrefixSession  = "portal:session:"  // Cached session rows
	PrefixSettings = "portal:settings"  // Cached backend settings
	PrefixLastGood = "portal:lastgood:" // Last successful fetch, no TTL
)

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Bytes() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal(val, dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL, zero keeps it forever
func SetCache(ctx context.Context, rdb redis.Cmdable, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb redis.Cmdable, keys ...string) error {
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// releaseLock deletes the lock only while it still carries the holder's token
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock takes a short lived lock with SETNX; the returned func releases it.
// The TTL bounds how long a crashed holder can keep the lock. A holder that outlives
// the TTL cannot release a lock someone else has taken since.
func AcquireLock(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()                                      // Identifies this holder
	ok, err := rdb.SetNX(ctx, PrefixLock+key, token, ttl).Result() // Try to take the lock
	if err != nil {
		return nil, err // Redis error
	}
	if !ok {
		return nil, ErrLockHeld // Someone else holds it
	}
	return func() {
		// Release on a fresh context so a cancelled request still frees the lock
		_ = releaseLock.Run(context.Background(), rdb, []string{PrefixLock + key}, token).Err()
	}, nil
}
