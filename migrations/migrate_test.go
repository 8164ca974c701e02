package migrations_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cimillas/furniture-backoffice/internal/testutil"
	"github.com/cimillas/furniture-backoffice/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaTables = []string{"users", "products", "orders", "order_lines", "order_history", "surveys", "outbox"}

func migrationCount(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	return n
}

func TestApply_IsIdempotent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	// Tables already exist from earlier runs; reset only the bookkeeping so
	// every file is checked again. All DDL uses IF NOT EXISTS.
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS schema_migrations`); err != nil {
		t.Fatalf("drop schema_migrations: %v", err)
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("apply: %v", err)
	}
	first := migrationCount(t, pool)
	if first < 2 {
		t.Fatalf("expected at least 2 recorded migrations, got %d", first)
	}

	for _, table := range schemaTables {
		var present bool
		if err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&present); err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if !present {
			t.Errorf("table %s missing after migration", table)
		}
	}

	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if again := migrationCount(t, pool); again != first {
		t.Fatalf("second apply recorded more migrations: %d -> %d", first, again)
	}
}

func TestApply_RejectsEditedMigration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	var original string
	if err := pool.QueryRow(ctx, `SELECT checksum FROM schema_migrations WHERE name = '0001_init.sql'`).Scan(&original); err != nil {
		t.Fatalf("read checksum: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `UPDATE schema_migrations SET checksum = $1 WHERE name = '0001_init.sql'`, original)
	})
	if _, err := pool.Exec(ctx, `UPDATE schema_migrations SET checksum = 'stale' WHERE name = '0001_init.sql'`); err != nil {
		t.Fatalf("tamper checksum: %v", err)
	}

	err := migrations.Apply(ctx, pool)
	if !errors.Is(err, migrations.ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}
