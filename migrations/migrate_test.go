package migrations_test

import (
	"context"
	"testing"

	"github.com/remoteled/platform/internal/testutil"
	"github.com/remoteled/platform/migrations"
)

func TestApply_IsIdempotent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count < 3 {
		t.Fatalf("expected at least 3 migrations, got %d", count)
	}

	for _, table := range []string{"devices", "services", "orders", "authorizations", "device_logs"} {
		var exists bool
		if err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists); err != nil {
			t.Fatalf("check %s: %v", table, err)
		}
		if !exists {
			t.Fatalf("expected table %s", table)
		}
	}
}
