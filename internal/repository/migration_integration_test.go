//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"

	"github.com/punchcard/punchcard/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, repo, db := newMigrationTestEnv(t)

	ran, err := repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(ran) != 5 {
		t.Fatalf("applied %v, want 5 migrations", ran)
	}

	for _, table := range []string{"vendors", "customers", "visits", "loyalty_cards"} {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, db, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_Idempotent(t *testing.T) {
	ctx, repo, _ := newMigrationTestEnv(t)

	if _, err := repo.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}
	ran, err := repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(ran) != 0 {
		t.Errorf("second Migrate applied %v, want none", ran)
	}
}

func TestIntegrationMigration_VisitsSchema(t *testing.T) {
	ctx, repo, db := newMigrationTestEnv(t)
	if _, err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	for _, col := range []string{"seq", "id", "vendor_id", "customer_id", "visited_at", "idempotency_key", "source", "created_at"} {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, db, "visits", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in visits table", col)
			}
		})
	}

	var indexExists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM pg_indexes
			WHERE tablename = 'visits' AND indexname = 'idx_visits_idempotency'
		)
	`).Scan(&indexExists)
	if err != nil {
		t.Fatalf("index lookup failed: %v", err)
	}
	if !indexExists {
		t.Error("idx_visits_idempotency should exist")
	}
}

func TestIntegrationMigration_SourceConstraint(t *testing.T) {
	ctx, repo, db := newMigrationTestEnv(t)
	if _, err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	vendor := testutil.NewTestVendor(t)
	if err := repo.CreateVendor(ctx, vendor); err != nil {
		t.Fatalf("CreateVendor failed: %v", err)
	}
	customer := testutil.NewTestCustomer(t, vendor.ID)
	if err := repo.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO visits (id, vendor_id, customer_id, visited_at, source)
		VALUES ($1, $2, $3, NOW(), 'walk-in')
	`, testutil.UniqueID("visit"), vendor.ID, customer.ID)
	if err == nil {
		t.Error("Expected check constraint violation for unknown source")
	}
}

func TestIntegrationMigration_DownScriptsPresent(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	for _, m := range migrations {
		if m.Down == "" {
			t.Errorf("migration %d_%s has no down script", m.Version, m.Name)
		}
	}
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, db *sql.DB, tableName, columnName string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// ============================================================================
// Test Environment Setup
// ============================================================================

// newMigrationTestEnv starts from an empty schema. Schema checks go through
// database/sql so they do not share the repository's pool.
func newMigrationTestEnv(t *testing.T) (context.Context, *Repository, *sql.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("open database/sql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.DropSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("drop schema: %v", err)
	}

	return ctx, repo, db
}
