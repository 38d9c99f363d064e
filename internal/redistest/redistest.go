// Package redistest hands tests a Redis database of their own.
// With REDIS_TEST_ADDR set the tests run against that server, otherwise against an in-process miniredis.
package redistest

import (
	"context"
	"hash/fnv"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// databases is the number of logical databases a default Redis exposes
const databases = 16

// New returns a client on an empty database
func New(t *testing.T) *redis.Client {
	t.Helper()
	if addr := os.Getenv("REDIS_TEST_ADDR"); addr != "" {
		return server(t, addr)
	}
	rdb, _ := Mini(t)
	return rdb
}

// Mini returns a client on an in-process miniredis, for tests that move the server clock
func Mini(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// server returns a client on a flushed database picked from the test name
func server(t *testing.T, addr string) *redis.Client {
	t.Helper()
	h := fnv.New32a()
	_, _ = h.Write([]byte(t.Name()))
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: int(h.Sum32() % databases)})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis unreachable at %s: %v", addr, err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test db: %v", err)
	}
	t.Cleanup(func() {
		_ = rdb.FlushDB(context.Background()).Err()
		_ = rdb.Close()
	})
	return rdb
}
