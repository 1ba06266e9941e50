// Package redistest provides a Redis client for tests.
package redistest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/digineo/pingwatch/internal/redisconn"
)

// DefaultAddr is used when REDIS_ADDR is not set.
const DefaultAddr = "redis://localhost:6379"

// Client returns a client for REDIS_ADDR, or skips the test if no server
// is reachable. The client is closed when the test finishes.
func Client(t testing.TB) redis.UniversalClient {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = DefaultAddr
	}
	client, err := redisconn.New(addr, redisconn.WithDialTimeout(200*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := redisconn.Ping(ctx, client); err != nil {
		client.Close()
		t.Skip(err)
	}

	t.Cleanup(func() { client.Close() })
	return client
}
