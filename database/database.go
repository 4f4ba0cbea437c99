package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"tailorfinder/config"
	"tailorfinder/storage"
)

//go:embed migrations
var migrations embed.FS

// Open connects the configured backend. SQL backends are migrated before the
// store is handed out.
func Open(ctx context.Context, cfg config.Storage) (storage.Store, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "mongo":
		return storage.NewMongoStore(ctx, cfg.DSN, cfg.Database)
	}

	dialect, err := storage.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dialect.DriverName, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if dialect.Name == storage.SQLite.Name {
		// sqlite allows one writer; an in-memory database also lives and dies
		// with its connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s: %w", dialect.Name, err)
	}

	if err := Migrate(db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	return storage.NewSQLStore(db, dialect), nil
}

// Migrate brings the kv_entries schema up to date for the dialect.
func Migrate(db *sqlx.DB, dialect storage.Dialect) error {
	src, err := iofs.New(migrations, "migrations/"+migrationDir(dialect))
	if err != nil {
		return err
	}

	driver, err := migrationDriver(db, dialect)
	if err != nil {
		return err
	}

	mig, err := migrate.NewWithInstance("iofs", src, dialect.Name, driver)
	if err != nil {
		return err
	}
	if err := mig.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		logrus.Debugf("migrations: %s", err.Error())
	}
	return nil
}

func migrationDir(dialect storage.Dialect) string {
	if dialect.Name == storage.PGX.Name {
		return storage.Postgres.Name
	}
	return dialect.Name
}

func migrationDriver(db *sqlx.DB, dialect storage.Dialect) (migratedb.Driver, error) {
	switch dialect.Name {
	case storage.Postgres.Name:
		return migratepg.WithInstance(db.DB, &migratepg.Config{})
	case storage.PGX.Name:
		return migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	case storage.MySQL.Name:
		return migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	case storage.SQLite.Name:
		return migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	}
	return nil, fmt.Errorf("no migration driver for %s", dialect.Name)
}
