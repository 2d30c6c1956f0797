// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/punchcard/punchcard/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Tables lists every application table, children first.
var Tables = []string{"loyalty_cards", "visits", "customers", "vendors", "schema_migrations"}

// DropSchema drops every application table so migrations can run from scratch.
func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range Tables {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(table)+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// TruncateAll empties every application table, keeping the schema.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range Tables[:len(Tables)-1] {
		if _, err := pool.Exec(ctx, "TRUNCATE "+pq.QuoteIdentifier(table)+" RESTART IDENTITY CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestVendor creates a vendor with a unique email.
func NewTestVendor(t testing.TB) *model.Vendor {
	t.Helper()
	now := model.NormalizeTimestamp(time.Now())
	id := model.NewID()
	return &model.Vendor{
		ID:           id,
		Name:         "Test Vendor",
		BusinessName: "Test Coffee",
		Email:        "vendor-" + id + "@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		Timezone:     "UTC",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestCustomer creates an active customer owned by vendorID.
func NewTestCustomer(t testing.TB, vendorID string) *model.Customer {
	t.Helper()
	now := model.NormalizeTimestamp(time.Now())
	id := model.NewID()
	return &model.Customer{
		ID:        id,
		VendorID:  vendorID,
		Name:      "Test Customer",
		QRPayload: model.QRPayload{CustomerID: id, VendorID: vendorID}.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestVisit creates a punch for the pair at ts.
func NewTestVisit(t testing.TB, vendorID, customerID string, ts time.Time) *model.Visit {
	t.Helper()
	return &model.Visit{
		ID:         model.NewID(),
		VendorID:   vendorID,
		CustomerID: customerID,
		Timestamp:  model.NormalizeTimestamp(ts),
		Source:     model.SourcePunch,
		CreatedAt:  model.NormalizeTimestamp(time.Now()),
	}
}

// NewTestCard creates a loyalty card for the pair starting its cycle at cycleStart.
func NewTestCard(t testing.TB, vendorID, customerID string, threshold int, cycleStart time.Time) *model.LoyaltyCard {
	t.Helper()
	now := model.NormalizeTimestamp(time.Now())
	return &model.LoyaltyCard{
		ID:              model.NewID(),
		VendorID:        vendorID,
		CustomerID:      customerID,
		RewardThreshold: threshold,
		CycleStart:      model.NormalizeTimestamp(cycleStart),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
