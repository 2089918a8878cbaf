package db

import (
	"database/sql"
	"embed"

	"github.com/arkeindustries/requestcore/pkg/log"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite3
var migrationFiles embed.FS

// Migrate applies every pending migration to raw, the way
// repository.checkDBVersion does at node startup in the teacher. It is
// fatal on failure: a node with a schema mismatch must not start serving
// requests.
func Migrate(raw *sql.DB) {
	driver, err := sqlite3.WithInstance(raw, &sqlite3.Config{})
	if err != nil {
		log.Fatal(err)
	}

	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		log.Fatal(err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal(err)
	}
}
