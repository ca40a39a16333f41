package migrate

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// MigrateDb applies all pending migrations. It returns the resulting
// schema version.
func MigrateDb(dbURI string) (uint, error) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, prepareURL(dbURI))
	if err != nil {
		return 0, err
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}
	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, err
	}
	return version, nil
}

// the pgx/v5 driver registers the pgx5 scheme
func prepareURL(dbURI string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURI, prefix) {
			return "pgx5://" + strings.TrimPrefix(dbURI, prefix)
		}
	}
	return dbURI
}
