package keys

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/provider"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// FromSQLite reads secrets from a local SQLite database, for deployments
// that keep provider keys out of the environment. The schema is applied on
// first open. Rows naming unknown providers are skipped rather than failing
// the load; a broken database is a ConfigError.
func FromSQLite(dsn string) Source {
	return func() (map[provider.Provider]string, error) {
		db, err := sqlx.Connect("sqlite3", dsn)
		if err != nil {
			return nil, &api.ConfigError{Source: dsn, Err: fmt.Errorf("open sqlite: %w", err)}
		}
		defer func() {
			_ = db.Close()
		}()

		db.SetMaxOpenConns(1)

		if err := runMigrations(db); err != nil {
			return nil, &api.ConfigError{Source: dsn, Err: fmt.Errorf("migrate: %w", err)}
		}

		var rows []struct {
			Provider string `db:"provider"`
			Secret   string `db:"secret"`
		}
		if err := db.Select(&rows, `SELECT provider, secret FROM credentials`); err != nil {
			return nil, &api.ConfigError{Source: dsn, Err: fmt.Errorf("select credentials: %w", err)}
		}

		pairs := make(map[provider.Provider]string, len(rows))
		for _, row := range rows {
			p, ok := provider.Parse(row.Provider)
			if !ok {
				continue
			}
			pairs[p] = row.Secret
		}
		return pairs, nil
	}
}

func runMigrations(db *sqlx.DB) error {
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
