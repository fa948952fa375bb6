package eventstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

const migrationsTable = "domain_event_schema_migrations"

// initSchema provisions the domain_event table and, where the dialect
// supports them, the access routines. Already applied migrations are skipped.
// Migrations run on a dedicated connection which is returned to the pool
// before initSchema returns
func initSchema(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaInitialization, err)
	}

	var (
		dbDriver database.Driver
		dir      string
	)

	dialect := db.Dialector.Name()

	switch dialect {
	case "postgres":
		var conn *sql.Conn

		conn, err = sqlDB.Conn(ctx)
		if err != nil {
			return fmt.Errorf("%w: acquire migration connection: %v", ErrSchemaInitialization, err)
		}

		defer conn.Close()

		dir = "migrations/postgres"
		dbDriver, err = postgres.WithConnection(ctx, conn, &postgres.Config{
			MigrationsTable: migrationsTable,
		})

	case "sqlite":
		dir = "migrations/sqlite"
		dbDriver, err = sqlite3.WithInstance(sqlDB, &sqlite3.Config{
			MigrationsTable: migrationsTable,
		})

	default:
		return fmt.Errorf("%w: unsupported dialect %q", ErrSchemaInitialization, dialect)
	}

	if err != nil {
		return fmt.Errorf("%w: create migration db driver: %v", ErrSchemaInitialization, err)
	}

	sourceDriver, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("%w: create migration source: %v", ErrSchemaInitialization, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dialect, dbDriver)
	if err != nil {
		return fmt.Errorf("%w: create migrator: %v", ErrSchemaInitialization, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: apply migrations: %v", ErrSchemaInitialization, err)
	}

	return nil
}
