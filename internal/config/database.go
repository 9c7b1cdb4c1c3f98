package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/Kerhoff/ShoplistBot/internal/repository/sqlstore"
	"github.com/Kerhoff/ShoplistBot/migrations"
)

const sqliteScheme = "sqlite://"

// Database holds database connection and configuration
type Database struct {
	*sql.DB
	Driver string
	logger *logrus.Logger
}

// NewDatabase opens the database named by databaseURL. PostgreSQL URLs
// (postgres://, postgresql://) use lib/pq; sqlite://<path> opens a SQLite file.
func NewDatabase(databaseURL string, logger *logrus.Logger) (*Database, error) {
	driver, dsn, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if driver == sqlstore.DriverSQLite {
		// SQLite allows a single writer; one connection serializes transactions.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithField("driver", driver).Info("Database connection established successfully")

	return &Database{
		DB:     db,
		Driver: driver,
		logger: logger,
	}, nil
}

func parseDatabaseURL(databaseURL string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return sqlstore.DriverPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, sqliteScheme):
		path := strings.TrimPrefix(databaseURL, sqliteScheme)
		if path == "" {
			return "", "", errors.New("sqlite database URL has no path")
		}
		if !strings.Contains(path, "?") {
			path += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
		}
		return sqlstore.DriverSQLite, "file:" + path, nil
	default:
		return "", "", fmt.Errorf("unsupported database URL %q", databaseURL)
	}
}

// Migrate applies the embedded migrations for the connected database.
func (d *Database) Migrate() error {
	var (
		driver database.Driver
		err    error
	)
	switch d.Driver {
	case sqlstore.DriverPostgres:
		driver, err = migratepostgres.WithInstance(d.DB, &migratepostgres.Config{})
	case sqlstore.DriverSQLite:
		driver, err = migratesqlite.WithInstance(d.DB, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("no migrations for driver %q", d.Driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, d.Driver)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, d.Driver, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}

// Store returns the repository store backed by this database.
func (d *Database) Store() *sqlstore.Store {
	return sqlstore.New(d.DB, d.Driver)
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
