//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/racetiming-analytics/pkg/db/migrate"
	database "github.com/mpapenbr/racetiming-analytics/pkg/db/postgres"
)

// create a pg connection pool for the racetiming testdatabase
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("racetiming-analytics-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbUrl := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())
	return setupPool(ctx, dbUrl)
}

// SetupExternalTestDb uses the database given by TESTDB_URL.
func SetupExternalTestDb() *pgxpool.Pool {
	return setupPool(context.Background(), os.Getenv("TESTDB_URL"))
}

func setupPool(ctx context.Context, dbUrl string) *pgxpool.Pool {
	if _, err := migrate.MigrateDb(dbUrl); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithUrl(ctx, dbUrl)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearAllTables(pool *pgxpool.Pool) {
	for _, table := range []string{"lap_flag", "pit_stop", "lap_timing", "race"} {
		pool.Exec(context.Background(), "delete from "+table)
	}
}
