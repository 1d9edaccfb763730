package tcpostgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/iracelog-stewarding-go/pkg/db/migrate"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/db/postgres"
)

// SetupTestDB starts a migrated postgres and returns a pool together with
// the connection url. The test is skipped in short mode.
func SetupTestDB(t *testing.T) (pool *pgxpool.Pool, dbURL string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	dbURL, err := startPostgres(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err = migrate.MigrateDB(dbURL); err != nil {
		t.Fatal(err)
	}
	if pool, err = postgres.InitWithURL(ctx, dbURL); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	return pool, dbURL
}

//nolint:errcheck // testsetup
func ClearAllTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from outbox_message")
	pool.Exec(context.Background(), "delete from archive_run")
}
