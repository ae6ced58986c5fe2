// migrate-db applies the Postgres schema for the feature window table.
// Usage: migrate-db [up|down|version]
package main

import (
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"sentryflow/shared/config"
)

func main() {
	dbURL := config.Get("DATABASE_URL", "postgres://localhost:5432/sentryflow?sslmode=disable")
	src := config.Get("MIGRATIONS_DIR", "file://tools/cli/cmd/migrate-db/migrations")

	m, err := migrate.New(src, dbURL)
	if err != nil {
		log.Fatalf("migrate-db: open migrations: %v", err)
	}
	defer m.Close()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil {
			log.Fatalf("migrate-db: version: %v", verr)
		}
		log.Printf("migrate-db: version=%d dirty=%v", v, dirty)
		return
	default:
		log.Fatalf("migrate-db: unknown command %q (want up, down, or version)", cmd)
	}
	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("migrate-db: %s failed: %v", cmd, err)
	}
	log.Printf("migrate-db: %s complete", cmd)
}
