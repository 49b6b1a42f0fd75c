package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTenantCacheMiss is returned when no entry exists for the user.
var ErrTenantCacheMiss = errors.New("tenant cache miss")

// TenantEntry is the cached outcome of tenant resolution for one user.
type TenantEntry struct {
	TenantID uuid.UUID `json:"tenant_id"`
	IsActive bool      `json:"is_active"`
	CachedAt time.Time `json:"cached_at"`
}

// TenantCache caches user-to-tenant resolution so the middleware skips a
// database lookup on repeat requests. Entries are short-lived; binding
// changes (consolidation, deactivation) also invalidate explicitly.
type TenantCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewTenantCache(client *redis.Client, ttl time.Duration) *TenantCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TenantCache{
		client: client,
		prefix: "tenant:resolve:",
		ttl:    ttl,
	}
}

func (c *TenantCache) Get(ctx context.Context, userUUID string) (*TenantEntry, error) {
	data, err := c.client.Get(ctx, c.prefix+userUUID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTenantCacheMiss
		}
		return nil, fmt.Errorf("failed to read tenant cache: %w", err)
	}

	var entry TenantEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tenant cache entry: %w", err)
	}
	return &entry, nil
}

func (c *TenantCache) Set(ctx context.Context, userUUID string, entry *TenantEntry) error {
	entry.CachedAt = time.Now().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+userUUID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write tenant cache: %w", err)
	}
	return nil
}

// Invalidate drops the entry for one user. Missing keys are not an error.
func (c *TenantCache) Invalidate(ctx context.Context, userUUID string) error {
	if err := c.client.Del(ctx, c.prefix+userUUID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tenant cache: %w", err)
	}
	return nil
}

// InvalidateUsers drops entries for a batch of users, used after
// consolidation rebinds every user of the losing tenants.
func (c *TenantCache) InvalidateUsers(ctx context.Context, userUUIDs []string) error {
	if len(userUUIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userUUIDs))
	for i, id := range userUUIDs {
		keys[i] = c.prefix + id
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tenant cache batch: %w", err)
	}
	return nil
}
