package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

// Cache key prefixes and TTLs.
const (
	vendorKeyPrefix   = "vendor:"
	negCacheKeySuffix = ":neg"

	// DefaultVendorTTL is the TTL for cached vendor profiles.
	DefaultVendorTTL = 10 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetVendor retrieves a cached vendor profile.
// Returns ErrCacheMiss if not found. The password hash is never cached.
func (c *Cache) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	result, err := c.client.HGetAll(ctx, vendorKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrCacheMiss
	}
	return decodeVendor(id, result)
}

// SetVendor stores a vendor profile in cache.
func (c *Cache) SetVendor(ctx context.Context, vendor *model.Vendor) error {
	key := vendorKeyPrefix + vendor.ID

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, encodeVendor(vendor))
	pipe.Expire(ctx, key, DefaultVendorTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache vendor: %w", err)
	}
	return nil
}

// DeleteVendor removes a vendor from cache.
func (c *Cache) DeleteVendor(ctx context.Context, id string) error {
	key := vendorKeyPrefix + id

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete vendor from cache: %w", err)
	}
	return nil
}

// IsNegativelyCached checks if a vendor id is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, id string) (bool, error) {
	exists, err := c.client.Exists(ctx, vendorKeyPrefix+id+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetNegativeCache marks a vendor id as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, id string) error {
	if err := c.client.SetEx(ctx, vendorKeyPrefix+id+negCacheKeySuffix, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}

func encodeVendor(v *model.Vendor) map[string]any {
	return map[string]any{
		"name":          v.Name,
		"business_name": v.BusinessName,
		"email":         v.Email,
		"timezone":      v.Timezone,
		"created_at":    v.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    v.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func decodeVendor(id string, fields map[string]string) (*model.Vendor, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, ErrCacheMiss
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, ErrCacheMiss
	}
	if fields["email"] == "" {
		return nil, ErrCacheMiss
	}
	return &model.Vendor{
		ID:           id,
		Name:         fields["name"],
		BusinessName: fields["business_name"],
		Email:        fields["email"],
		Timezone:     fields["timezone"],
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}, nil
}

// VendorStore is a read-through cache in front of a store.VendorStore.
// GetVendor is served from Redis when possible; writes go to the store and
// invalidate the cached profile. Redis failures degrade to the store.
type VendorStore struct {
	store.VendorStore
	cache  *Cache
	logger *slog.Logger
}

// NewVendorStore wraps next with the vendor profile cache.
func NewVendorStore(next store.VendorStore, c *Cache, logger *slog.Logger) *VendorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &VendorStore{
		VendorStore: next,
		cache:       c,
		logger:      logger.With("component", "vendor_cache"),
	}
}

// GetVendor returns the vendor profile, consulting the cache first.
func (s *VendorStore) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	if neg, err := s.cache.IsNegativelyCached(ctx, id); err == nil && neg {
		return nil, store.ErrNotFound
	}

	cached, err := s.cache.GetVendor(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("vendor cache read failed", "vendor_id", id, "error", err)
	}

	vendor, err := s.VendorStore.GetVendor(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if cerr := s.cache.SetNegativeCache(ctx, id); cerr != nil {
				s.logger.Warn("vendor negative cache write failed", "vendor_id", id, "error", cerr)
			}
		}
		return nil, err
	}

	if err := s.cache.SetVendor(ctx, vendor); err != nil {
		s.logger.Warn("vendor cache write failed", "vendor_id", id, "error", err)
	}
	return vendor, nil
}

// CreateVendor creates the vendor and clears any negative entry for its id.
func (s *VendorStore) CreateVendor(ctx context.Context, vendor *model.Vendor) error {
	if err := s.VendorStore.CreateVendor(ctx, vendor); err != nil {
		return err
	}
	s.invalidate(ctx, vendor.ID)
	return nil
}

// UpdateVendor writes through to the store and drops the cached profile.
func (s *VendorStore) UpdateVendor(ctx context.Context, vendor *model.Vendor) error {
	if err := s.VendorStore.UpdateVendor(ctx, vendor); err != nil {
		return err
	}
	s.invalidate(ctx, vendor.ID)
	return nil
}

func (s *VendorStore) invalidate(ctx context.Context, id string) {
	if err := s.cache.DeleteVendor(ctx, id); err != nil {
		s.logger.Warn("vendor cache invalidation failed", "vendor_id", id, "error", err)
	}
}
