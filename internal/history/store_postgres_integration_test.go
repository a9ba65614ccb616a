//go:build integration

package history

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tablewatch"),
		tcpostgres.WithUsername("tablewatch"),
		tcpostgres.WithPassword("tablewatch"),
		tcpostgres.WithSQLDriver("pgx"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	runStoreSuite(t, func(t *testing.T, clock *fakeClock) Store {
		s, err := Open(ctx, dsn, WithClock(clock.Now))
		if err != nil {
			t.Fatal(err)
		}
		// Subtests share the container; start each from an empty table.
		if _, err := s.(*SQLStore).db.ExecContext(ctx, `TRUNCATE table_status RESTART IDENTITY`); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
