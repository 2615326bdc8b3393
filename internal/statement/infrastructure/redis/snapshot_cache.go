package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	statement "billing-desk/internal/statement/domain"
)

const keyPrefix = "statement:snapshot:"

// Dial creates a Redis client and checks the connection.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("snapshot cache: ping: %w", err)
	}
	return client, nil
}

// SnapshotCache stores fetched statement snapshots per client.
type SnapshotCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewSnapshotCache instantiates the cache.
func NewSnapshotCache(client *goredis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func key(clientID string) string {
	return keyPrefix + clientID
}

// Get returns the cached snapshot. A miss is (zero, false, nil).
func (c *SnapshotCache) Get(ctx context.Context, clientID string) (statement.Snapshot, bool, error) {
	if c == nil || c.client == nil {
		return statement.Snapshot{}, false, nil
	}
	payload, err := c.client.Get(ctx, key(clientID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return statement.Snapshot{}, false, nil
	}
	if err != nil {
		return statement.Snapshot{}, false, fmt.Errorf("snapshot cache: get %s: %w", clientID, err)
	}
	var snapshot statement.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		_ = c.client.Del(ctx, key(clientID)).Err()
		return statement.Snapshot{}, false, fmt.Errorf("snapshot cache: decode %s: %w", clientID, err)
	}
	return snapshot, true, nil
}

// Set stores a snapshot under its client id.
func (c *SnapshotCache) Set(ctx context.Context, snapshot statement.Snapshot) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("snapshot cache: encode %s: %w", snapshot.ClientID, err)
	}
	if err := c.client.Set(ctx, key(snapshot.ClientID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot cache: set %s: %w", snapshot.ClientID, err)
	}
	return nil
}

// Invalidate drops the snapshot of a client.
func (c *SnapshotCache) Invalidate(ctx context.Context, clientID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, key(clientID)).Err(); err != nil {
		return fmt.Errorf("snapshot cache: invalidate %s: %w", clientID, err)
	}
	return nil
}
