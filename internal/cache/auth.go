package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/punchcard/punchcard/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:ctx:"
	// authCacheTTL is the longest a verified token stays cached.
	authCacheTTL = 5 * time.Minute
)

// CachedAuthContext represents auth context stored in Redis.
type CachedAuthContext struct {
	VendorID string `json:"vendor_id"`
	Email    string `json:"email"`
	TokenID  string `json:"token_id"`
}

// GetAuthContext retrieves a cached auth context by token hash.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, tokenHash string) (*model.AuthContext, error) {
	key := authCachePrefix + tokenHash

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}
	if cached.VendorID == "" {
		return nil, nil
	}

	return &model.AuthContext{
		VendorID: cached.VendorID,
		Email:    cached.Email,
		TokenID:  cached.TokenID,
	}, nil
}

// SetAuthContext caches a verified token's auth context until the token expires,
// capped at authCacheTTL. Expired tokens are not cached.
func (c *Cache) SetAuthContext(ctx context.Context, tokenHash string, auth *model.AuthContext, expiresAt time.Time) error {
	ttl := authTTL(time.Until(expiresAt))
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(CachedAuthContext{
		VendorID: auth.VendorID,
		Email:    auth.Email,
		TokenID:  auth.TokenID,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authCachePrefix+tokenHash, data, ttl).Err()
}

// DeleteAuthContext removes a cached auth context.
func (c *Cache) DeleteAuthContext(ctx context.Context, tokenHash string) error {
	return c.client.Del(ctx, authCachePrefix+tokenHash).Err()
}

// authTTL caps the remaining token lifetime at authCacheTTL.
func authTTL(remaining time.Duration) time.Duration {
	if remaining > authCacheTTL {
		return authCacheTTL
	}
	return remaining
}
