package testdb

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/mpapenbr/racetiming-analytics/testsupport/tcpostgres"
)

// InitTestDB returns a pool on a migrated and empty database.
// TESTDB_URL selects an external database instead of a container.
func InitTestDB() *pgxpool.Pool {
	var pool *pgxpool.Pool
	if os.Getenv("TESTDB_URL") != "" {
		pool = tcpg.SetupExternalTestDb()
	} else {
		pool = tcpg.SetupTestDb()
	}
	tcpg.ClearAllTables(pool)
	return pool
}
